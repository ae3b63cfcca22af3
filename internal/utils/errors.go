// internal/utils/errors.go
package utils

import (
	"errors"
	"net/http"
)

// Domain-level errors used by the service layer to provide
// fine-grained failure reasons.
var (
	ErrUserNotFound = errors.New("user_not_found")

	// Signin failures
	ErrNoCookie        = errors.New("no_cookie")
	ErrTransport       = errors.New("transport_error")
	ErrNoEligibleUsers = errors.New("no_eligible_users")
	ErrNoActiveTask    = errors.New("no_active_task")

	// Brute-force search failures
	ErrSearchInProgress = errors.New("search_in_progress")
	ErrCodeExhausted    = errors.New("code_exhausted")
)

// AppError for structured error handling from services to controllers.
type AppError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// HandleAppError centralizes responding to AppErrors.
func HandleAppError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		RespondErrorWithCode(w, appErr.StatusCode, appErr.Code, appErr.Message, nil, appErr.Err)
	} else {
		// Fallback for unexpected error types
		RespondErrorWithCode(w, http.StatusInternalServerError, ErrCodeInternal, "An unexpected error occurred", nil, err)
	}
}
