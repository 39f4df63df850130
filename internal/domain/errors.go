package domain

import "errors"

// Domain errors - use these for consistent error handling
var (
	// Catalog errors
	ErrPinnedFileNotFound = errors.New("pinned file not found")
	ErrInvalidScope       = errors.New("scope id is required")

	// Profile errors
	ErrProfileNotFound = errors.New("profile not found")

	// Mirror errors
	ErrMirrorDisabled = errors.New("object storage mirror is not configured")
	ErrNotMirrored    = errors.New("pinned file has no mirrored copy")
)
