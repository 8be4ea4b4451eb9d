package service

import "errors"

var (
	// ErrInvalidCredentials indicates that provided login credentials are
	// incorrect. Unknown usernames and wrong passwords both map here so the
	// response never reveals which one failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = errors.New("username taken")
	// ErrIncorrectOldPassword is returned by a password change whose old
	// password does not match the stored hash.
	ErrIncorrectOldPassword = errors.New("incorrect old password")
	// ErrUnauthenticated means no valid session backs the request.
	ErrUnauthenticated = errors.New("not logged in")
	// ErrForbidden means the record exists but belongs to another user.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound means no record has the requested id.
	ErrNotFound = errors.New("record not found")
	// ErrFolderNotOwned rejects a catch filed into a folder the submitting
	// user does not own (or that does not exist).
	ErrFolderNotOwned = errors.New("folder does not exist or is not yours")
	// ErrValidation wraps field validation failures.
	ErrValidation = errors.New("validation failed")
)
