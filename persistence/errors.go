package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrPersistenceFailure wraps every I/O or codec failure of the snapshot store
	ErrPersistenceFailure = errors.New("persistence failure")
	// ErrNoSnapshot means the canonical snapshot file does not exist yet
	ErrNoSnapshot = errors.New("no snapshot")
)

func failure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistenceFailure, op, err)
}
