// internal/controllers/user_controller.go
package controllers

import (
	"net/http"

	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/dtos"
	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/models"
	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/services"
	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/utils"
)

const (
	defaultAbsencePlusMinutes  = 100
	defaultAbsenceMinusMinutes = 15
)

type UserController struct {
	svc   services.UserService
	audit services.AuditService
}

func NewUserController(svc services.UserService, audit services.AuditService) *UserController {
	return &UserController{svc: svc, audit: audit}
}

// GET /user/list
func (c *UserController) ListHandler(w http.ResponseWriter, r *http.Request) {
	users, err := c.svc.List(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if users == nil {
		users = []*models.UserWithCookie{}
	}
	utils.RespondWithJSON(w, http.StatusOK, users)
}

// POST /user/add
func (c *UserController) AddHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.AddUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	u, err := c.svc.Add(r.Context(), req.Name)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	resp := dtos.AddUserResponse{ID: u.ID}
	c.audit.Record(r.Context(), models.LogUserAdd, req.UAInfo, nil, map[string]any{"name": req.Name}, resp)
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// POST /user/remove/{id}
func (c *UserController) RemoveHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req dtos.RemoveUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := c.svc.Remove(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}

	c.audit.Record(r.Context(), models.LogUserRemove, req.UAInfo, map[string]any{"user_id": id}, nil, dtos.SuccessResponse{Success: true})
	utils.RespondWithJSON(w, http.StatusOK, dtos.SuccessResponse{Success: true})
}

// POST /user/rename/{id}
func (c *UserController) RenameHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req dtos.RenameUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	u, err := c.svc.Rename(r.Context(), id, req.NewName)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	c.audit.Record(r.Context(), models.LogUserRename, req.UAInfo, map[string]any{"user_id": id}, map[string]any{"new_name": req.NewName}, u)
	utils.RespondWithJSON(w, http.StatusOK, u)
}

// POST /user/refresh/{id}
func (c *UserController) RefreshCookieHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req dtos.RefreshCookieRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	cookie, err := c.svc.RefreshCookie(r.Context(), id, req.Cookie, req.Expires)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	// The cookie value itself stays out of the action log.
	c.audit.Record(r.Context(), models.LogUserRefreshCookie, req.UAInfo, map[string]any{"user_id": id}, nil, map[string]any{"cookie_id": cookie.ID})
	utils.RespondWithJSON(w, http.StatusOK, cookie)
}

// POST /user/auto/{id}
func (c *UserController) SetAutoHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req dtos.SetAutoRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	u, err := c.svc.SetAuto(r.Context(), id, *req.IsAuto)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	c.audit.Record(r.Context(), models.LogUserSetAuto, req.UAInfo, map[string]any{"user_id": id}, map[string]any{"is_auto": *req.IsAuto}, u)
	utils.RespondWithJSON(w, http.StatusOK, u)
}

// POST /user/absence/{id}
func (c *UserController) AddAbsenceHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req dtos.AddAbsenceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	plus := defaultAbsencePlusMinutes
	if req.PlusMinutes != nil {
		plus = *req.PlusMinutes
	}
	minus := defaultAbsenceMinusMinutes
	if req.MinusMinutes != nil {
		minus = *req.MinusMinutes
	}

	a, err := c.svc.AddAbsence(r.Context(), id, req.ClassBeginAt, plus, minus)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	c.audit.Record(r.Context(), models.LogAbsenceAdd, req.UAInfo, map[string]any{"user_id": id}, req, a)
	utils.RespondWithJSON(w, http.StatusOK, a)
}

// POST /user/absence/remove/{id}
func (c *UserController) RemoveAbsenceHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req dtos.RemoveAbsenceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := c.svc.RemoveAbsence(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}

	c.audit.Record(r.Context(), models.LogAbsenceRemove, req.UAInfo, map[string]any{"absence_id": id}, nil, dtos.SuccessResponse{Success: true})
	utils.RespondWithJSON(w, http.StatusOK, dtos.SuccessResponse{Success: true})
}
