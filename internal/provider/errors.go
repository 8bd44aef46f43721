package provider

import (
	"errors"
	"fmt"
)

// ErrNotFound marks a 404 from the provider. Call sites that treat absence as
// a valid outcome (requisition/agreement existence checks) match it with
// errors.Is.
var ErrNotFound = errors.New("provider: not found")

// AuthError means both token refresh and full credential exchange failed.
// The token state has been reset by the time this is returned.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("failed to authenticate with provider: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// RateLimitInfo carries whatever quota detail a 429 response exposed: the
// JSON body fields when the body parsed, otherwise the rate-limit headers.
type RateLimitInfo struct {
	Summary            string `json:"summary,omitempty"`
	Detail             string `json:"detail,omitempty"`
	StatusCode         int    `json:"status_code,omitempty"`
	RetryAfter         string `json:"retry_after,omitempty"`
	RateLimitRemaining string `json:"rate_limit_remaining,omitempty"`
	RateLimitReset     string `json:"rate_limit_reset,omitempty"`
}

// RateLimitError is an HTTP 429 from the provider. Never retried here; the
// caller decides whether spending another call is worth it.
type RateLimitError struct {
	Info RateLimitInfo
}

func (e *RateLimitError) Error() string {
	if e.Info.Summary != "" {
		return fmt.Sprintf("provider rate limit exceeded: %s: %s", e.Info.Summary, e.Info.Detail)
	}
	return fmt.Sprintf("provider rate limit exceeded (retry-after=%s remaining=%s)",
		e.Info.RetryAfter, e.Info.RateLimitRemaining)
}

// APIError is any other non-2xx provider response.
type APIError struct {
	StatusCode int
	Status     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider request failed: %d %s", e.StatusCode, e.Status)
}

// Is lets errors.Is(err, ErrNotFound) match a 404 APIError.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == 404
}
