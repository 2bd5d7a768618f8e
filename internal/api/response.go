package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/victorivanov/mship/internal/service"
)

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error sends a JSON error response.
func Error(c echo.Context, status int, code, message string) error {
	return c.JSON(status, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message},
	})
}

// errorJSON is an alias for Error (used by middleware).
var errorJSON = Error

// successJSON sends a JSON success response with a data envelope.
func successJSON(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, map[string]interface{}{"data": data})
}

// mapServiceError writes the envelope for an error returned by a service.
// Anything that is not a *service.ServiceError is reported as internal.
func mapServiceError(c echo.Context, err error) error {
	var se *service.ServiceError
	if !errors.As(err, &se) {
		c.Logger().Errorf("unmapped service error: %v", err)
		return Error(c, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(se, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(se, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(se, service.ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(se, service.ErrConflict):
		status = http.StatusConflict
	case errors.Is(se, service.ErrUnauthorized):
		status = http.StatusUnauthorized
	}
	return Error(c, status, se.Code, se.Message)
}
