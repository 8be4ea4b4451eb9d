package domain

import "time"

// User is a registered account. PasswordHash is a bcrypt hash; the
// plaintext password is never persisted anywhere.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
