// internal/models/signin_attempt.go
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AttemptOutcome string

const (
	AttemptSuccess AttemptOutcome = "success"
	AttemptFailure AttemptOutcome = "failure"
)

// SigninAttempt is the audit record of one outbound check-in call for one
// user. It is written once and never mutated; transport failures leave
// ResponseStatus and ResponseBody nil and set Error.
type SigninAttempt struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"user_id"`
	Cookie         *string         `json:"cookie"`
	ScanRecordID   *uuid.UUID      `json:"scan_record_id"`
	RequestPayload json.RawMessage `json:"request_data"`
	ResponseStatus *int            `json:"response_code"`
	ResponseBody   json.RawMessage `json:"response_data"`
	Outcome        AttemptOutcome  `json:"outcome"`
	Error          *string         `json:"error,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}
