package draftstore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// FSStore archives the generated drafts of each run as JSON files so a
// failed or surprising run can be replayed against what was actually
// published.
type FSStore struct{ base string }

func NewFSStore(base string) (*FSStore, error) {
	if base == "" {
		base = "./data/drafts"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{base: base}, nil
}

// Put writes one draft document under runID/name.json.
func (s *FSStore) Put(runID, name string, v interface{}) error {
	if runID == "" || name == "" {
		return errors.New("empty key")
	}
	dir := filepath.Join(s.base, filepath.Clean(runID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, filepath.Clean(name)+".json"), b, 0o644)
}

// Get reads one archived draft back into v.
func (s *FSStore) Get(runID, name string, v interface{}) error {
	b, err := os.ReadFile(filepath.Join(s.base, filepath.Clean(runID), filepath.Clean(name)+".json"))
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
