// internal/controllers/history_controller.go
package controllers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/models"
	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/repositories"
	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/utils"
)

const defaultPageSize = 10

type HistoryController struct {
	attempts repositories.SigninAttemptRepository
	scans    repositories.ScanRecordRepository
}

func NewHistoryController(
	attempts repositories.SigninAttemptRepository,
	scans repositories.ScanRecordRepository,
) *HistoryController {
	return &HistoryController{attempts: attempts, scans: scans}
}

// GET /history/signin?count=&index=&user_id=
func (c *HistoryController) SigninHistoryHandler(w http.ResponseWriter, r *http.Request) {
	count, index, userID, ok := pagination(w, r)
	if !ok {
		return
	}
	history, err := c.attempts.List(r.Context(), count, index, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if history == nil {
		history = []*models.SigninAttempt{}
	}
	utils.RespondWithJSON(w, http.StatusOK, history)
}

// GET /history/scan?count=&index=&user_id=
func (c *HistoryController) ScanHistoryHandler(w http.ResponseWriter, r *http.Request) {
	count, index, userID, ok := pagination(w, r)
	if !ok {
		return
	}
	history, err := c.scans.List(r.Context(), count, index, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if history == nil {
		history = []*models.ScanRecord{}
	}
	utils.RespondWithJSON(w, http.StatusOK, history)
}

func pagination(w http.ResponseWriter, r *http.Request) (count, index int, userID *uuid.UUID, ok bool) {
	count = queryInt(r, "count", defaultPageSize)
	index = queryInt(r, "index", 0)
	if count < 1 || index < 0 {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "count/index out of range", nil,
		)
		return 0, 0, nil, false
	}

	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			utils.RespondErrorWithCode(
				w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid user_id", nil, err,
			)
			return 0, 0, nil, false
		}
		userID = &id
	}
	return count, index, userID, true
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
