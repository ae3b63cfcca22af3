package models

import (
	"time"

	"github.com/google/uuid"
)

// Cookie is one stored LMS session cookie for a user. Cookies are append-only;
// the newest row per user is the active session.
type Cookie struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Value     string     `json:"value"`
	Expires   *time.Time `json:"expires"`
	CreatedAt time.Time  `json:"created_at"`
}
