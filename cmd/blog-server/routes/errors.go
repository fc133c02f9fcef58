package routes

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/lgulliver/blogshelf/cmd/blog-server/middleware"
	"github.com/lgulliver/blogshelf/pkg/types"
)

const internalErrorMsg = "Internal server error"

// statusFor maps the error taxonomy onto an HTTP status and a client-safe
// message. Internal error text never reaches the client.
func statusFor(err error, notFoundMsg string) (int, string) {
	var verr *types.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Message
	case errors.Is(err, types.ErrPayloadTooLarge), isBodyTooLarge(err):
		return http.StatusBadRequest, "payload too large"
	case errors.Is(err, types.ErrUnsupportedMediaType):
		return http.StatusBadRequest, "unsupported media type"
	case errors.Is(err, types.ErrValidation):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound, notFoundMsg
	default:
		return http.StatusInternalServerError, internalErrorMsg
	}
}

func respondError(c *gin.Context, err error, notFoundMsg string) {
	status, msg := statusFor(err, notFoundMsg)

	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).
		Str("request_id", middleware.GetRequestID(c)).
		Str("path", c.Request.URL.Path).
		Int("status", status).
		Msg("request failed")

	_ = c.Error(err)
	c.JSON(status, types.APIResponse{Success: false, Msg: msg})
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "request body too large")
}
