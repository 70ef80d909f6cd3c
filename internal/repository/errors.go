package repository

import "errors"

// Storage-level outcomes that callers branch on. Not-found is a normal
// negative result here, not an exceptional condition.
var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)
