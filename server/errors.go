package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gaborage/taskclient/logger"
)

// APIError is rendered as {"detail": ...}. Detail is a string, or a list of
// field errors for validation failures.
type APIError struct {
	Status int
	Detail any
}

func (e *APIError) Error() string {
	if s, ok := e.Detail.(string); ok {
		return s
	}
	return http.StatusText(e.Status)
}

// NewAPIError creates an error with a string detail.
func NewAPIError(status int, detail string) *APIError {
	return &APIError{Status: status, Detail: detail}
}

// NewNotFoundError reports a missing task.
func NewNotFoundError(id string) *APIError {
	return NewAPIError(http.StatusNotFound, "Task with ID "+id+" not found")
}

// NewUnauthorizedError reports a missing or rejected bearer token.
func NewUnauthorizedError(detail string) *APIError {
	if detail == "" {
		detail = "Not authenticated"
	}
	return NewAPIError(http.StatusUnauthorized, detail)
}

type errorBody struct {
	Detail any `json:"detail"`
}

// errorHandler renders every failure with the {"detail": ...} envelope.
func errorHandler(log logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		var detail any = "Internal server error"

		var apiErr *APIError
		var he *echo.HTTPError
		switch {
		case errors.As(err, &apiErr):
			status, detail = apiErr.Status, apiErr.Detail
		case errors.As(err, &he):
			status = he.Code
			switch m := he.Message.(type) {
			case string:
				detail = m
			case error:
				detail = m.Error()
			default:
				detail = http.StatusText(status)
			}
		}

		if status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("url.path", c.Request().URL.Path).Msg("Unhandled stub server error")
		}
		if status == http.StatusUnauthorized {
			c.Response().Header().Set(HeaderWWWAuthenticate, "Bearer")
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, errorBody{Detail: detail})
	}
}
