package repository

import "errors"

// ErrNotFound is returned when a row does not exist. Repositories wrap it
// with context; callers match with errors.Is.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a uniqueness constraint rejects a write
// (currently only the users.username column).
var ErrDuplicate = errors.New("already exists")
