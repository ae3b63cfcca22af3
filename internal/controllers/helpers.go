package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/utils"
)

var validate = validator.New()

// decodeAndValidate binds a JSON body into dst and runs struct validation,
// writing the error response itself. Returns false when the request is bad.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid JSON payload", nil, err,
		)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Request failed validation", nil, err,
		)
		return false
	}
	return true
}

// pathID extracts and parses the {id} route variable.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := mux.Vars(r)["id"]
	id, err := uuid.Parse(raw)
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid id in path", nil, err,
		)
		return uuid.Nil, false
	}
	return id, true
}

// respondServiceError maps well-known service errors onto HTTP codes.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, utils.ErrUserNotFound):
		utils.HandleAppError(w, &utils.AppError{
			StatusCode: http.StatusNotFound, Code: utils.ErrCodeNotFound,
			Message: "User not found", Err: err,
		})
	case errors.Is(err, utils.ErrNoCookie):
		utils.HandleAppError(w, &utils.AppError{
			StatusCode: http.StatusConflict, Code: utils.ErrCodeNoCookie,
			Message: "No usable session cookie for this account", Err: err,
		})
	case errors.Is(err, utils.ErrNoEligibleUsers):
		utils.HandleAppError(w, &utils.AppError{
			StatusCode: http.StatusConflict, Code: utils.ErrCodeNoEligibleUsers,
			Message: "No auto check-in users are available", Err: err,
		})
	case errors.Is(err, utils.ErrNoActiveTask):
		utils.HandleAppError(w, &utils.AppError{
			StatusCode: http.StatusNotFound, Code: utils.ErrCodeNoActiveTask,
			Message: "No numeric rollcall is currently open", Err: err,
		})
	case errors.Is(err, utils.ErrSearchInProgress):
		utils.HandleAppError(w, &utils.AppError{
			StatusCode: http.StatusConflict, Code: utils.ErrCodeSearchInProgress,
			Message: "A code search is already running; retry later or supply a code", Err: err,
		})
	case errors.Is(err, utils.ErrCodeExhausted):
		utils.HandleAppError(w, &utils.AppError{
			StatusCode: http.StatusNotFound, Code: utils.ErrCodeSearchExhausted,
			Message: "Searched 0000-9999 without finding the code", Err: err,
		})
	case errors.Is(err, utils.ErrTransport):
		utils.HandleAppError(w, &utils.AppError{
			StatusCode: http.StatusBadGateway, Code: utils.ErrCodeTransport,
			Message: "LMS backend is unreachable", Err: err,
		})
	default:
		utils.HandleAppError(w, err)
	}
}
