// Package checkpoint persists per-iteration snapshots of run state so a run
// can be inspected or resumed later.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vinayprograms/pursuit/internal/controller"
)

// ErrNoCheckpoint is returned when a run has no saved snapshot.
var ErrNoCheckpoint = errors.New("no checkpoint")

const filePrefix = "iter-"

// Checkpoint is the full run state after an iteration.
type Checkpoint struct {
	RunID     string           `json:"run_id"`
	Iteration int              `json:"iteration"`
	Status    string           `json:"status"`
	SavedAt   time.Time        `json:"saved_at"`
	State     controller.State `json:"state"`
}

// Store keeps checkpoints under <dir>/<run id>/iter-NNNN.json. Saving the
// same iteration twice, e.g. after a pause, replaces the earlier snapshot.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// NewStore creates a checkpoint store.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes a snapshot of st.
func (s *Store) Save(st controller.State) (*Checkpoint, error) {
	if st.RunID == "" {
		return nil, fmt.Errorf("cannot checkpoint a run without an id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := &Checkpoint{
		RunID:     st.RunID,
		Iteration: st.Iteration,
		Status:    string(st.Status),
		SavedAt:   time.Now(),
		State:     st.Clone(),
	}

	runDir := filepath.Join(s.dir, st.RunID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	path := filepath.Join(runDir, fileName(st.Iteration))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return nil, fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return cp, nil
}

// Load reads the snapshot for one iteration.
func (s *Store) Load(runID string, iteration int) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load(runID, iteration)
}

func (s *Store) load(runID string, iteration int) (*Checkpoint, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, runID, fileName(iteration)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w for run %s at iteration %d", ErrNoCheckpoint, runID, iteration)
		}
		return nil, err
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to parse checkpoint: %w", err)
	}
	return &cp, nil
}

// Iterations lists the checkpointed iterations of a run in ascending order.
func (s *Store) Iterations(runID string) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.iterations(runID)
}

func (s *Store) iterations(runID string) ([]int, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []int
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || filepath.Ext(name) != ".json" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), ".json"))
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	sort.Ints(out)
	return out, nil
}

// Latest returns the most recent snapshot of a run.
func (s *Store) Latest(runID string) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	iters, err := s.iterations(runID)
	if err != nil {
		return nil, err
	}
	if len(iters) == 0 {
		return nil, fmt.Errorf("%w for run %s", ErrNoCheckpoint, runID)
	}
	return s.load(runID, iters[len(iters)-1])
}

// Runs lists the run IDs that have checkpoints.
func (s *Store) Runs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var runs []string
	for _, entry := range entries {
		if entry.IsDir() {
			runs = append(runs, entry.Name())
		}
	}
	sort.Strings(runs)
	return runs, nil
}

func fileName(iteration int) string {
	return fmt.Sprintf("%s%04d.json", filePrefix, iteration)
}

// Recorder saves a checkpoint after every state change. It is a
// driver.Observer.
type Recorder struct {
	store *Store
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(store *Store) *Recorder {
	return &Recorder{store: store}
}

// Observe implements driver.Observer.
func (r *Recorder) Observe(_ context.Context, _, next controller.State) error {
	if next.RunID == "" {
		return nil
	}
	_, err := r.store.Save(next)
	return err
}
