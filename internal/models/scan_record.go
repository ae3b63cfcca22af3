package models

import (
	"time"

	"github.com/google/uuid"
)

// ScanRecord is the raw scan text as uploaded, kept before decoding so a
// bad payload is still auditable.
type ScanRecord struct {
	ID        uuid.UUID  `json:"id"`
	Result    string     `json:"result"`
	UserID    *uuid.UUID `json:"user_id"`
	CreatedAt time.Time  `json:"created_at"`
}
