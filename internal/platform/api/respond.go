// Package api shapes the JSON envelope returned by every handler and maps
// classified application errors onto HTTP status codes.
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mentalspace/practice-api/internal/platform/apperror"
)

// Envelope is the uniform response body: {success, data} on success and
// {success, message, errors} on failure.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

// OK writes a 200 success envelope.
func OK(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 success envelope.
func Created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// StatusFor maps an error kind to its HTTP status code.
func StatusFor(k apperror.Kind) int {
	switch k {
	case apperror.KindBadRequest:
		return http.StatusBadRequest
	case apperror.KindUnauthorized:
		return http.StatusUnauthorized
	case apperror.KindForbidden:
		return http.StatusForbidden
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ErrorHandler returns an echo.HTTPErrorHandler that renders classified
// errors as envelopes. Internal errors are logged with their cause but the
// response body only says "internal server error".
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := Envelope{Success: false, Message: "internal server error"}

		var ae *apperror.Error
		var he *echo.HTTPError
		switch {
		case errors.As(err, &ae):
			status = StatusFor(ae.Kind)
			body.Message = ae.Message
			body.Errors = ae.Details
		case errors.As(err, &he):
			status = he.Code
			if msg, ok := he.Message.(string); ok {
				body.Message = msg
			}
		}

		if status >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}
