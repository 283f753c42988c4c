// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bartekus/cadence/internal/projection"
)

// StateStore persists run summaries under a base directory.
type StateStore struct {
	baseDir string
}

// NewStateStore creates a store at baseDir (e.g. .cadence/run).
func NewStateStore(baseDir string) *StateStore {
	return &StateStore{baseDir: baseDir}
}

// Dir returns the base directory.
func (s *StateStore) Dir() string {
	return s.baseDir
}

func (s *StateStore) lastRunPath() string {
	return filepath.Join(s.baseDir, "last-run.json")
}

// ReadLastRun loads the last run summary. A missing file returns nil, nil.
func (s *StateStore) ReadLastRun() (*LastRun, error) {
	f, err := os.Open(s.lastRunPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening last run file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var last LastRun
	if err := json.NewDecoder(f).Decode(&last); err != nil {
		return nil, fmt.Errorf("decoding last run: %w", err)
	}
	return &last, nil
}

// WriteLastRun replaces the run summary.
func (s *StateStore) WriteLastRun(last LastRun) error {
	data, err := json.MarshalIndent(last, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding last run: %w", err)
	}
	return projection.AtomicWrite(s.lastRunPath(), append(data, '\n'))
}

// Reset clears the state directory.
func (s *StateStore) Reset() error {
	return os.RemoveAll(s.baseDir)
}
