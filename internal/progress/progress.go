// Package progress tracks the ephemeral progress files that analyzer runs
// overwrite while scanning. Each run gets its own handle keyed by a run
// identifier, so concurrent analyses never clobber each other's reporting.
package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// ErrMalformedSnapshot indicates a progress file that exists and is readable
// but does not parse as a snapshot document.
var ErrMalformedSnapshot = errors.New("malformed progress snapshot")

// Snapshot is the status record the analyzer periodically rewrites during a
// scan. Percent ranges 0 to 100.
type Snapshot struct {
	Stage     string  `json:"stage"`
	Percent   float64 `json:"percent"`
	Message   string  `json:"message"`
	Timestamp string  `json:"timestamp"`
}

// Tracker registers active runs and answers polls. The zero value is not
// usable; construct with NewTracker.
type Tracker struct {
	mu      sync.Mutex
	handles map[string]*Handle
	latest  string
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{handles: make(map[string]*Handle)}
}

// Handle is one run's claim on a progress file. Close always removes the
// file, whether or not the analyzer ever wrote it.
type Handle struct {
	tracker *Tracker
	runID   string
	path    string
}

// Begin registers a new run and reserves a progress file path under dir
// (the OS temp dir when empty). The file is not created; the analyzer
// writes it. The newest run becomes the answer to Latest.
func (t *Tracker) Begin(dir string) *Handle {
	if dir == "" {
		dir = os.TempDir()
	}

	runID := uuid.NewString()

	handle := &Handle{
		tracker: t,
		runID:   runID,
		path:    filepath.Join(dir, "codegnosis-progress-"+runID+".json"),
	}

	t.mu.Lock()
	t.handles[runID] = handle
	t.latest = runID
	t.mu.Unlock()

	return handle
}

// Poll reads the snapshot for a specific run. A run that was never
// registered, or whose file has not been written yet, is "no progress
// available", not an error.
func (t *Tracker) Poll(runID string) (Snapshot, bool, error) {
	t.mu.Lock()
	handle, ok := t.handles[runID]
	t.mu.Unlock()

	if !ok {
		return Snapshot{}, false, nil
	}

	return handle.Poll()
}

// Latest polls the run that most recently began. This preserves the old
// single-slot behavior for callers that track only one analysis at a time.
func (t *Tracker) Latest() (Snapshot, bool, error) {
	t.mu.Lock()
	runID := t.latest
	t.mu.Unlock()

	return t.Poll(runID)
}

// RunID returns the run's correlation identifier.
func (h *Handle) RunID() string {
	return h.runID
}

// Path returns the progress file path handed to the analyzer.
func (h *Handle) Path() string {
	return h.path
}

// Poll reads the current snapshot. An unreadable or empty file means the
// analyzer has not written a full snapshot yet and yields an empty answer;
// readable but unparsable content is ErrMalformedSnapshot.
func (h *Handle) Poll() (Snapshot, bool, error) {
	raw, err := os.ReadFile(h.path)
	if err != nil || len(raw) == 0 {
		return Snapshot{}, false, nil
	}

	var snap Snapshot

	parseErr := json.Unmarshal(raw, &snap)
	if parseErr != nil {
		return Snapshot{}, false, fmt.Errorf("%w: %v", ErrMalformedSnapshot, parseErr)
	}

	return snap, true, nil
}

// Close removes the progress file and unregisters the run. Safe to call
// after a failed analysis; cleanup runs regardless of outcome.
func (h *Handle) Close() error {
	h.tracker.mu.Lock()
	delete(h.tracker.handles, h.runID)

	if h.tracker.latest == h.runID {
		h.tracker.latest = ""
	}
	h.tracker.mu.Unlock()

	removeErr := os.Remove(h.path)
	if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
		return fmt.Errorf("remove progress file: %w", removeErr)
	}

	return nil
}
