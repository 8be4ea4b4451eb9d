package domain

import "time"

// Session is a server-side login session. The ID is an opaque token
// carried inside the signed session JWT; logging out removes the row,
// which invalidates the token even before it expires.
type Session struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}
