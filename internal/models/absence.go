package models

import (
	"time"

	"github.com/google/uuid"
)

// Absence marks a user as on leave around one class session. The user is
// excluded from auto check-in for any instant inside [StartsAt, EndsAt].
type Absence struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	ClassBeginAt time.Time `json:"class_begin_at"`
	StartsAt     time.Time `json:"starts_at"`
	EndsAt       time.Time `json:"ends_at"`
	CreatedAt    time.Time `json:"created_at"`
}
