package memberrepo

import "errors"

var (
	// ErrNotFound indicates the requested member does not exist.
	ErrNotFound = errors.New("member not found")

	// ErrAlreadyExists indicates a member already exists with the provided ID.
	ErrAlreadyExists = errors.New("member already exists")

	// ErrEmailInUse indicates another non-deleted member already uses the email address.
	ErrEmailInUse = errors.New("member email already in use")
)
