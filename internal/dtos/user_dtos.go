// internal/dtos/user_dtos.go
package dtos

import (
	"time"

	"github.com/google/uuid"
)

// UAInfo is a free-form client identifier carried on every mutating request;
// it only feeds the action log, there is no authentication behind it.

type AddUserRequest struct {
	UAInfo string `json:"ua_info"`
	Name   string `json:"name" validate:"required"`
}

type AddUserResponse struct {
	ID uuid.UUID `json:"id"`
}

type RemoveUserRequest struct {
	UAInfo string `json:"ua_info"`
}

type RenameUserRequest struct {
	UAInfo  string `json:"ua_info"`
	NewName string `json:"new_name" validate:"required"`
}

type RefreshCookieRequest struct {
	UAInfo  string     `json:"ua_info"`
	Cookie  string     `json:"cookie" validate:"required"`
	Expires *time.Time `json:"expires"`
}

type SetAutoRequest struct {
	UAInfo string `json:"ua_info"`
	IsAuto *bool  `json:"is_auto" validate:"required"`
}

type AddAbsenceRequest struct {
	UAInfo       string    `json:"ua_info"`
	ClassBeginAt time.Time `json:"class_begin_at" validate:"required"`

	// Window around the class start, in minutes. Defaults mirror a two-hour
	// block: 15 before, 100 after.
	PlusMinutes  *int `json:"plus_minutes" validate:"omitempty,min=0"`
	MinusMinutes *int `json:"minus_minutes" validate:"omitempty,min=0"`
}

type RemoveAbsenceRequest struct {
	UAInfo string `json:"ua_info"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}
