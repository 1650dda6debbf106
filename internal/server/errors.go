package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eliteGoblin/focusd/web_mon/internal/usecase"
)

// APIError is the control API error envelope body.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Message
}

func newAPIError(status int, code, message string) *APIError {
	return &APIError{Status: status, Code: code, Message: message}
}

func badRequest(code, message string) *APIError {
	return newAPIError(http.StatusBadRequest, code, message)
}

// errorEnvelope is the wire form: {"error": {"code", "message"}}.
type errorEnvelope struct {
	Error *APIError `json:"error"`
}

// toAPIError maps engine sentinel errors to HTTP statuses.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, usecase.ErrStrictMode):
		return newAPIError(http.StatusConflict, "strict_mode", err.Error())
	case errors.Is(err, usecase.ErrPomodoroLocked):
		return newAPIError(http.StatusConflict, "pomodoro_locked", err.Error())
	case errors.Is(err, usecase.ErrNotBlocking):
		return newAPIError(http.StatusConflict, "not_blocking", err.Error())
	case errors.Is(err, usecase.ErrPomodoroIdle):
		return newAPIError(http.StatusConflict, "pomodoro_idle", err.Error())
	case errors.Is(err, usecase.ErrInvalidDuration),
		errors.Is(err, usecase.ErrInvalidRuleSet),
		errors.Is(err, usecase.ErrInvalidSchedule):
		return badRequest("invalid_input", err.Error())
	case errors.Is(err, usecase.ErrRuleSetNotFound),
		errors.Is(err, usecase.ErrScheduleNotFound):
		return newAPIError(http.StatusNotFound, "not_found", err.Error())
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func writeError(c *gin.Context, err error) {
	apiErr := toAPIError(err)
	c.AbortWithStatusJSON(apiErr.Status, errorEnvelope{Error: apiErr})
}
