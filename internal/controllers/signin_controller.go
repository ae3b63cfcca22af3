// internal/controllers/signin_controller.go
package controllers

import (
	"net/http"

	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/dtos"
	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/models"
	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/services"
	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/utils"
)

type SigninController struct {
	svc   services.SigninService
	audit services.AuditService
}

func NewSigninController(svc services.SigninService, audit services.AuditService) *SigninController {
	return &SigninController{svc: svc, audit: audit}
}

// POST /signin — upload one scan result, check in every eligible user.
func (c *SigninController) ScanHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.ScanSigninRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := c.svc.ProcessScan(r.Context(), req.ScanResult, req.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	c.audit.Record(r.Context(), models.LogScanSignin, req.UAInfo,
		map[string]any{"user_id": req.UserID},
		map[string]any{"scan_result": req.ScanResult},
		result,
	)

	userIDs := make([]string, 0, len(result.Attempts))
	for _, a := range result.Attempts {
		userIDs = append(userIDs, a.UserID.String())
	}
	c.audit.Record(r.Context(), models.LogSigninAuto, req.UAInfo,
		map[string]any{"scan_record_id": result.ScanRecord.ID},
		map[string]any{"user_ids": userIDs},
		nil,
	)

	utils.RespondWithJSON(w, http.StatusOK, result)
}

// POST /signin-digital — answer open numeric rollcalls, brute-forcing the
// code when the caller does not supply one.
func (c *SigninController) DigitalHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.DigitalSigninRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := c.svc.ProcessDigital(r.Context(), req.Data, req.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	c.audit.Record(r.Context(), models.LogDigitalSignin, req.UAInfo,
		map[string]any{"user_id": req.UserID},
		map[string]any{"data": req.Data},
		result,
	)

	utils.RespondWithJSON(w, http.StatusOK, result)
}
