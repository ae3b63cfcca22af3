// Package lms talks to the TronClass backend. Every call authenticates with
// a raw session cookie captured out-of-band; there is no token refresh here.
package lms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// The LMS rejects desktop user agents on the rollcall endpoints, so every
// request identifies as the Android client.
const userAgent = "Mozilla/5.0 (Linux; Android 6.0; Nexus 5 Build/MRA58N) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/141.0.0.0 Mobile Safari/537.36 Edg/141.0.0.0"

// CheckinRequest is the wire body of one check-in call. Exactly one of Data
// (QR mode) or NumberCode (numeric mode) is set.
type CheckinRequest struct {
	Data       string `json:"data,omitempty"`
	NumberCode string `json:"numberCode,omitempty"`
	DeviceID   string `json:"deviceId"`
}

// CheckinResult captures the upstream response verbatim for auditing.
type CheckinResult struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the check-in was accepted (2xx).
func (r *CheckinResult) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Rollcall is one attendance task from the radar feed.
type Rollcall struct {
	RollcallID json.Number `json:"rollcall_id"`
	Status     string      `json:"status"`
	IsNumber   bool        `json:"is_number"`
	IsRadar    bool        `json:"is_radar"`
}

// NeedsNumberCode reports whether this task is an open numeric check-in.
func (rc Rollcall) NeedsNumberCode() bool {
	return rc.Status == "absent" && rc.IsNumber && !rc.IsRadar
}

type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the given LMS origin. The timeout bounds
// every call; the upstream occasionally hangs mid-rollcall and a stuck probe
// would otherwise stall a whole brute-force batch.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// AnswerQRRollcall submits a QR-derived check-in for one rollcall.
func (c *Client) AnswerQRRollcall(ctx context.Context, cookie, rollcallID string, body CheckinRequest) (*CheckinResult, error) {
	url := fmt.Sprintf("%s/api/rollcall/%s/answer_qr_rollcall", c.baseURL, rollcallID)
	return c.putJSON(ctx, cookie, url, body)
}

// AnswerNumberRollcall submits a numeric-code check-in for one rollcall.
func (c *Client) AnswerNumberRollcall(ctx context.Context, cookie, rollcallID string, body CheckinRequest) (*CheckinResult, error) {
	url := fmt.Sprintf("%s/api/rollcall/%s/answer_number_rollcall", c.baseURL, rollcallID)
	return c.putJSON(ctx, cookie, url, body)
}

// ActiveRollcalls fetches the radar feed of currently open rollcall tasks.
func (c *Client) ActiveRollcalls(ctx context.Context, cookie string) ([]Rollcall, error) {
	url := c.baseURL + "/api/radar/rollcalls?api_version=1.1.0"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Cookie", cookie)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("radar feed returned status %d", resp.StatusCode)
	}

	var payload struct {
		Rollcalls []Rollcall `json:"rollcalls"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding radar feed: %w", err)
	}
	return payload.Rollcalls, nil
}

func (c *Client) putJSON(ctx context.Context, cookie, url string, body CheckinRequest) (*CheckinResult, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cookie", cookie)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &CheckinResult{StatusCode: resp.StatusCode, Body: respBody}, nil
}
