package models

import "errors"

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint is violated
	ErrDuplicate = errors.New("duplicate entry")
	// ErrForbidden is returned when the current identity may not perform an action
	ErrForbidden = errors.New("permission denied")
	// ErrInvalidCredentials is returned for any failed login, whatever the cause
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrSelfFollow is returned when a user tries to follow or unfollow themselves
	ErrSelfFollow = errors.New("cannot follow yourself")
	// ErrSelfDelete is returned when an admin tries to delete their own account
	ErrSelfDelete = errors.New("cannot delete yourself")
)
