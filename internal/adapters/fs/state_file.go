package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/bft-labs/scanwave/internal/domain"
)

const stateFileName = "playback.json"

// StateFileRepository implements ports.StateRepository using a JSON file.
type StateFileRepository struct {
	dir string
}

// NewStateFileRepository creates a new StateFileRepository for the given directory.
func NewStateFileRepository(dir string) *StateFileRepository {
	return &StateFileRepository{dir: dir}
}

// Load retrieves the last saved state from disk.
// Returns an empty state and nil error if no state file exists.
func (r *StateFileRepository) Load(ctx context.Context) (domain.PlaybackState, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return domain.PlaybackState{}, nil
		}
		return domain.PlaybackState{}, err
	}

	var state domain.PlaybackState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.PlaybackState{}, err
	}
	return state, nil
}

// Save persists the current state atomically (temp file, then rename).
func (r *StateFileRepository) Save(ctx context.Context, state domain.PlaybackState) error {
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now().UTC()
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	path := r.Path()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Clear removes the state file. A missing file is not an error.
func (r *StateFileRepository) Clear() error {
	if err := os.Remove(r.Path()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Path returns the full path to the state file.
func (r *StateFileRepository) Path() string {
	return filepath.Join(r.dir, stateFileName)
}
