package middlewares

import (
	"MediCare/services"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog"
)

// RespondJSON writes a JSON response to the client.
func RespondJSON(c *gin.Context, data interface{}, status int) {
	c.JSON(status, data)
}

// HttpError logs an error and writes an HTTP error response to the client.
func HttpError(c *gin.Context, message string, status int, err error) {
	logger := zerolog.Ctx(c.Request.Context())
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).Int("status", status).Msg(message)
	c.JSON(status, gin.H{"error": message})
}

// StatusFor maps a service error onto an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrStorageUnavailable), errors.Is(err, services.ErrDeliveryUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

var messages = map[int]string{
	http.StatusBadRequest:          "Invalid request",
	http.StatusUnauthorized:        "Invalid credentials",
	http.StatusForbidden:           "Forbidden",
	http.StatusNotFound:            "Not found",
	http.StatusConflict:            "Conflict",
	http.StatusServiceUnavailable:  "Service temporarily unavailable",
	http.StatusInternalServerError: "Internal server error",
}

// RespondError writes the response for a service error. Validation
// failures carry their field errors.
func RespondError(c *gin.Context, err error) {
	status := StatusFor(err)

	var fields validation.Errors
	if status == http.StatusBadRequest && errors.As(err, &fields) {
		zerolog.Ctx(c.Request.Context()).Debug().Err(err).Msg("validation failed")
		c.JSON(status, gin.H{"error": messages[status], "fields": fields})
		return
	}

	message := messages[status]
	if status == http.StatusConflict || status == http.StatusBadRequest {
		message = err.Error()
	}
	HttpError(c, message, status, err)
}
