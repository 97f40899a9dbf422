package catalog

import (
	"errors"
	"fmt"

	"mediaflow/internal/services"
)

var (
	// ErrNotFound is returned when no item has the requested id.
	ErrNotFound = fmt.Errorf("media item %w", services.ErrNotFound)
	// ErrInvalidState marks a record that would break the status/stage/progress invariants.
	ErrInvalidState = errors.New("invalid item state")
)
