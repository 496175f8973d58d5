package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/smartnote/internal/middleware"
	"github.com/xxxsen/smartnote/internal/pkg/errcode"
	appErr "github.com/xxxsen/smartnote/internal/pkg/errors"
	"github.com/xxxsen/smartnote/internal/pkg/response"
	"github.com/xxxsen/smartnote/internal/service"
)

func getUserID(c *gin.Context) string {
	return c.GetString(middleware.ContextUserIDKey)
}

func queryInt(c *gin.Context, name string) int {
	value := c.Query(name)
	if value == "" {
		return 0
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}

func invalidRequest(c *gin.Context, msg string) {
	response.Error(c, errcode.ErrInvalid, msg)
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	code, msg := classifyError(err)
	log := logutil.GetLogger(c.Request.Context()).With(
		zap.String("request_id", c.GetString(middleware.ContextRequestIDKey)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("user_id", getUserID(c)),
		zap.Error(err),
	)
	if code == errcode.ErrInternal {
		log.Error("request failed")
	} else {
		log.Debug("request rejected", zap.Int("code", code))
	}
	response.Error(c, code, msg)
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrRegisterDisabled):
		return errcode.ErrRegisterDisabled, "registration disabled"
	case errors.Is(err, appErr.ErrAIUnavailable):
		return errcode.ErrAIUnavailable, "ai unavailable"
	case errors.Is(err, appErr.ErrUnauthorized):
		return errcode.ErrUnauthorized, "unauthorized"
	case errors.Is(err, appErr.ErrForbidden):
		return errcode.ErrForbidden, "forbidden"
	case errors.Is(err, appErr.ErrNotFound):
		return errcode.ErrNotFound, "not found"
	case errors.Is(err, appErr.ErrInvalid):
		return errcode.ErrInvalid, err.Error()
	case errors.Is(err, appErr.ErrConflict):
		return errcode.ErrConflict, "conflict"
	case errors.Is(err, appErr.ErrTooMany):
		return errcode.ErrTooMany, "too many requests"
	default:
		return errcode.ErrInternal, "internal error"
	}
}
