// internal/dtos/signin_dtos.go
package dtos

import "github.com/google/uuid"

type ScanSigninRequest struct {
	UAInfo     string     `json:"ua_info"`
	ScanResult string     `json:"scan_result" validate:"required"`
	UserID     *uuid.UUID `json:"user_id"`
}

type DigitalSigninRequest struct {
	UAInfo string `json:"ua_info"`

	// Data is the numeric code when the caller already knows it; omitted, the
	// server brute-forces the 4-digit space with the requester's account.
	Data   *string   `json:"data" validate:"omitempty,len=4,number"`
	UserID uuid.UUID `json:"user_id" validate:"required"`
}
