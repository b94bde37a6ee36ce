package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/services"
)

type JSONResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Field   string      `json:"field,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func RespondJSON(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, JSONResponse{
		Status:  code >= 200 && code < 300,
		Message: message,
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, err error) {
	c.JSON(code, JSONResponse{
		Status:  false,
		Message: err.Error(),
		Data:    nil,
	})
}

// RespondServiceError maps a service failure to its HTTP status. Conflicts carry
// the current state in data; anything untyped is logged and reported as a 500.
func RespondServiceError(c *gin.Context, err error) {
	var serr *services.Error
	if !errors.As(err, &serr) {
		ErrorLogger.WithError(err).WithField("path", c.FullPath()).Error("unhandled service error")
		RespondError(c, http.StatusInternalServerError, errors.New("internal server error"))
		return
	}

	if serr.Kind == services.KindUnavailable {
		ErrorLogger.WithError(err).WithField("path", c.FullPath()).Warn("retryable failure")
	}

	c.JSON(StatusForKind(serr.Kind), JSONResponse{
		Status:  false,
		Message: serr.Error(),
		Code:    serr.Code,
		Field:   serr.Field,
		Data:    serr.Current,
	})
}

func StatusForKind(kind services.Kind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindConflict:
		return http.StatusConflict
	case services.KindPrecondition:
		return http.StatusPreconditionFailed
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
