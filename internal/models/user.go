// internal/models/user.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IsAuto    bool      `json:"is_auto"`
	CreatedAt time.Time `json:"created_at"`
}

// UserWithCookie is a user joined with their newest stored session cookie.
// LatestCookie is nil when the user has never had a cookie recorded.
type UserWithCookie struct {
	User
	LatestCookie  *string    `json:"latest_cookie"`
	CookieExpires *time.Time `json:"expires"`
}
