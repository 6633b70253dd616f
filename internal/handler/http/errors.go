package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/abdulaziz-backend/pixelpainter/internal/domain"
	"github.com/abdulaziz-backend/pixelpainter/internal/service"
)

// HandleServiceError 把 service/domain 层的错误映射为 HTTP 响应
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidToken):
		ErrorResponse(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrSessionClosed):
		ErrorResponse(c, http.StatusNotFound, service.ErrSessionNotFound.Error())
	case errors.Is(err, domain.ErrInvalidColor),
		errors.Is(err, service.ErrInvalidImage),
		errors.Is(err, service.ErrInvalidAction):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrImageTooLarge):
		ErrorResponse(c, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrStaleImport):
		ErrorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		ErrorResponse(c, http.StatusServiceUnavailable, "request timed out")
	default:
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
