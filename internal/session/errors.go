package session

import "errors"

var (
	// ErrGroupNotFound is returned for operations on an unknown group id.
	ErrGroupNotFound = errors.New("group not found")

	// ErrTabNotFound is returned for operations on an unknown tab id.
	ErrTabNotFound = errors.New("tab not found")

	// ErrFatalSpawn means even the default shell could not be started. The
	// host environment is broken; only the attempted tab creation is aborted.
	ErrFatalSpawn = errors.New("default shell failed to spawn")
)
