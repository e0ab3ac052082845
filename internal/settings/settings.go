// Package settings persists user settings as a single JSON file, the server
// analog of the browser cookie the original tool used.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/yemble/pointcast/internal/forecast"
)

// Store reads and writes one settings file. Writes replace the whole file;
// last write wins.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the persisted settings, or the provided defaults when no file
// exists yet.
func (s *Store) Load(defaults forecast.Settings) (forecast.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return defaults, nil
	}
	if err != nil {
		return defaults, fmt.Errorf("reading settings file: %w", err)
	}

	var st forecast.Settings
	if err := json.Unmarshal(data, &st); err != nil {
		return defaults, fmt.Errorf("parsing settings file: %w", err)
	}

	if st.IntervalHours < 1 || st.IntervalHours > 3 {
		st.IntervalHours = defaults.IntervalHours
	}
	if st.Units != forecast.UnitsImperial && st.Units != forecast.UnitsMetric {
		st.Units = defaults.Units
	}
	if !st.DefaultLocation.Valid() {
		st.DefaultLocation = defaults.DefaultLocation
	}
	return st, nil
}

// Save writes the settings file, creating parent directories as needed.
func (s *Store) Save(st forecast.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating settings directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(st, "", " ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing settings file: %w", err)
	}
	return nil
}
