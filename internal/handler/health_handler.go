package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	appErr "github.com/xxxsen/smartnote/internal/pkg/errors"
	"github.com/xxxsen/smartnote/internal/pkg/response"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Health(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			handleError(c, appErr.ErrInternal)
			return
		}
	}
	response.Success(c, gin.H{"status": "ok"})
}
