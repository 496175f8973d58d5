package handler

import (
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/smartnote/internal/pkg/response"
)

type ExportHandler struct {
	export exportAPI
}

func NewExportHandler(export exportAPI) *ExportHandler {
	return &ExportHandler{export: export}
}

func (h *ExportHandler) Export(c *gin.Context) {
	result, err := h.export.Export(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

// Download streams an export archive previously produced for the caller.
func (h *ExportHandler) Download(c *gin.Context) {
	key := c.Param("key")
	reader, err := h.export.Open(c.Request.Context(), getUserID(c), key)
	if err != nil {
		handleError(c, err)
		return
	}
	defer func() { _ = reader.Close() }()
	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(key)))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		logutil.GetLogger(c.Request.Context()).Error("stream export failed",
			zap.String("key", key), zap.Error(err))
	}
}
