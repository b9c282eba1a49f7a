package transaction

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// State represents the state of a provisioning step.
type State string

const (
	StatePending    State = "pending"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateSkipped    State = "skipped"
	StateFailed     State = "failed"
)

// Step records one provisioning step.
type Step struct {
	Name      string    `json:"name"`
	State     State     `json:"state"`
	Started   time.Time `json:"started,omitempty"`
	Finished  time.Time `json:"finished,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// Journal records the steps of one provisioning run. It is safe for
// concurrent use by the two provisioning branches.
type Journal struct {
	mu sync.Mutex

	Version int       `json:"version"` // Schema version for future evolution
	RunID   string    `json:"run_id"`
	Started time.Time `json:"started"`
	Steps   []Step    `json:"steps"`
}

// NewJournal creates a journal for runID with the given steps pending.
func NewJournal(runID string, steps ...string) *Journal {
	j := &Journal{
		Version: 1,
		RunID:   runID,
		Started: time.Now().UTC(),
		Steps:   make([]Step, 0, len(steps)),
	}
	for _, name := range steps {
		j.Steps = append(j.Steps, Step{Name: name, State: StatePending})
	}
	return j
}

// Update sets the state of step, appending it if unknown. err is recorded
// for failed steps.
func (j *Journal) Update(step string, state State, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	idx := -1
	for i := range j.Steps {
		if j.Steps[i].Name == step {
			idx = i
			break
		}
	}
	if idx < 0 {
		j.Steps = append(j.Steps, Step{Name: step})
		idx = len(j.Steps) - 1
	}

	s := &j.Steps[idx]
	now := time.Now().UTC()
	s.State = state
	switch state {
	case StateInProgress:
		s.Started = now
	case StateCompleted, StateSkipped, StateFailed:
		s.Finished = now
	}
	if err != nil {
		s.LastError = err.Error()
	} else {
		s.LastError = ""
	}
}

// Lookup returns a copy of the named step.
func (j *Journal) Lookup(step string) (Step, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, s := range j.Steps {
		if s.Name == step {
			return s, true
		}
	}
	return Step{}, false
}

// Failed returns the names of failed steps.
func (j *Journal) Failed() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	var names []string
	for _, s := range j.Steps {
		if s.State == StateFailed {
			names = append(names, s.Name)
		}
	}
	return names
}

// Interrupted reports whether a step was left in progress.
func (j *Journal) Interrupted() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, s := range j.Steps {
		if s.State == StateInProgress {
			return true
		}
	}
	return false
}

// Save writes the journal to path atomically.
// Uses write-then-rename pattern for atomicity.
func (j *Journal) Save(path string) error {
	j.mu.Lock()
	data, err := json.MarshalIndent(j, "", "  ")
	j.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal journal: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create journal directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("write temporary journal file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename journal file: %w", err)
	}

	// Sync directory for durability
	if df, err := os.Open(dir); err == nil {
		syncErr := df.Sync()
		_ = df.Close()
		if syncErr != nil {
			return fmt.Errorf("sync directory: %w", syncErr)
		}
	}
	return nil
}

// LoadJournal reads a journal from disk.
func LoadJournal(path string) (*Journal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read journal file: %w", err)
	}

	var j Journal
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("unmarshal journal: %w", err)
	}
	return &j, nil
}
