package repository

import "errors"

// Common repository errors
var (
	ErrSnapshotNotFound = errors.New("metadata snapshot not found")
	ErrInvalidUUID      = errors.New("invalid UUID format")
)
