// internal/models/action_log.go
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type LogAction string

const (
	LogUserAdd           LogAction = "USER_ADD"
	LogUserRemove        LogAction = "USER_REMOVE"
	LogUserRename        LogAction = "USER_RENAME"
	LogUserRefreshCookie LogAction = "USER_REFRESH_COOKIE"
	LogUserSetAuto       LogAction = "USER_SET_AUTO"
	LogAbsenceAdd        LogAction = "ABSENCE_ADD"
	LogAbsenceRemove     LogAction = "ABSENCE_REMOVE"
	LogScanSignin        LogAction = "SCAN_SIGNIN"
	LogSigninAuto        LogAction = "SIGNIN_AUTO"
	LogDigitalSignin     LogAction = "DIGITAL_SIGNIN"
)

type ActionLog struct {
	ID        uuid.UUID       `json:"id"`
	Action    LogAction       `json:"action"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}
