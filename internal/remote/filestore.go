package remote

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/confsync/confsync/internal/interfaces"
)

// fileState is the on-disk shape of a file-backed target.
type fileState struct {
	Resources map[interfaces.ResourceType]map[string]map[string]interface{} `json:"resources"`
}

// FileClientSet is an InMemoryClientSet persisted to a JSON file. It backs
// the CLI's local targets: the file plays the role of the remote platform,
// which makes plan and deploy exercisable without a live session.
type FileClientSet struct {
	*InMemoryClientSet
	path string
}

// OpenFileClientSet loads (or initializes) the target state file.
func OpenFileClientSet(path string) (*FileClientSet, error) {
	set := &FileClientSet{
		InMemoryClientSet: NewInMemoryClientSet(),
		path:              path,
	}

	data, err := os.ReadFile(path) // #nosec G304 - path is a validated CLI argument
	if os.IsNotExist(err) {
		return set, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read target state %s: %w", path, err)
	}

	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse target state %s: %w", path, err)
	}
	for resourceType, byID := range state.Resources {
		for externalID, fields := range byID {
			set.Seed(resourceType, externalID, fields)
		}
	}
	return set, nil
}

// Save writes the current collections back to the state file.
func (s *FileClientSet) Save() error {
	s.mu.Lock()
	state := fileState{Resources: s.records}
	data, err := json.MarshalIndent(state, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to encode target state: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write target state %s: %w", s.path, err)
	}
	return nil
}
