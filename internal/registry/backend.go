package registry

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/Grazulex/servermark/internal/driver"
	"github.com/Grazulex/servermark/internal/errors"
)

// Selection is the persisted backend choice.
type Selection struct {
	Active driver.Backend `json:"active"`
}

// BackendStore reads and writes webserver.json.
type BackendStore struct {
	path string
}

// NewBackendStore creates a store for the webserver.json inside dir.
func NewBackendStore(dir string) *BackendStore {
	return &BackendStore{path: filepath.Join(dir, backendFile)}
}

// Load returns the active backend, defaulting to Caddy.
func (s *BackendStore) Load() (driver.Backend, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return driver.Caddy, nil
	}
	if err != nil {
		return "", errors.Persistence("failed to read backend selection", err)
	}

	var raw struct {
		Active string `json:"active"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", errors.Persistence("failed to parse "+s.path, err)
	}
	if raw.Active == "" {
		return driver.Caddy, nil
	}
	b, err := driver.ParseBackend(raw.Active)
	if err != nil {
		return "", errors.Persistence("invalid backend selection in "+s.path, err)
	}
	return b, nil
}

// Save persists b as the active backend.
func (s *BackendStore) Save(b driver.Backend) error {
	data, err := json.MarshalIndent(Selection{Active: b}, "", "  ")
	if err != nil {
		return errors.Persistence("failed to encode backend selection", err)
	}
	if err := writeAtomic(s.path, append(data, '\n')); err != nil {
		return errors.Persistence("failed to write backend selection", err)
	}
	return nil
}
