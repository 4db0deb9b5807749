package core

import "errors"

// Common errors.
var (
	ErrNoteNotFound    = errors.New("note not found")
	ErrInvalidLocation = errors.New("invalid location")
	ErrReadOnly        = errors.New("repository is in read-only mode")
	ErrEmptyTitle      = errors.New("note title cannot be empty")
)
