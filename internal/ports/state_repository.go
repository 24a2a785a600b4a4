package ports

import (
	"context"

	"github.com/bft-labs/scanwave/internal/domain"
)

// StateRepository persists playback progress for resuming interrupted runs.
// Implementations persist state to disk (or other storage) atomically.
type StateRepository interface {
	// Load retrieves the last saved state.
	// Returns an empty state and nil error if no state exists.
	Load(ctx context.Context) (domain.PlaybackState, error)

	// Save persists the current state atomically.
	Save(ctx context.Context, state domain.PlaybackState) error

	// Clear removes any saved state. Clearing an empty repository is not an error.
	Clear() error
}
