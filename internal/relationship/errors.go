package relationship

import (
	"context"
	"errors"
	"fmt"

	"github.com/mr1hm/go-alert-relationships/internal/client"
)

var (
	// ErrNetwork is returned when the backend could not be reached. Local
	// state is left as it was.
	ErrNetwork = errors.New("network error")

	// ErrNotFound is returned for an unknown template or a node id that is
	// not part of the current tree.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned before any mutation for invalid input, such
	// as binding an alert to itself or spawning an alert without a name.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when an operation overlaps a load or save that
	// is still in flight.
	ErrConflict = errors.New("conflicting operation in flight")

	// ErrStaleResponse is returned to the caller of a load that was
	// superseded by a newer one. Its result has been discarded; callers
	// should not surface it.
	ErrStaleResponse = errors.New("stale response discarded")

	// ErrMalformedResponse is returned when the backend answered with a body
	// that does not describe a tree.
	ErrMalformedResponse = errors.New("malformed response")
)

// classify maps backend failures onto the store's error kinds, keeping the
// original error in the chain.
func classify(err error) error {
	switch {
	case errors.Is(err, client.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, client.ErrMalformed):
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	case errors.Is(err, client.ErrNetwork), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	return err
}
