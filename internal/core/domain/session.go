package domain

import "time"

// Session represents a persisted login session referenced by the sid cookie.
// The login flow is intentionally a stub; the session only carries enough
// identity for rate-limit scoping.
type Session struct {
	UserID    string    `json:"uid"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}
