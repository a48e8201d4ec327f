package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a document with the requested ID does not exist.
var ErrNotFound = errors.New("not found")

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}
