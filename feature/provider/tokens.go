package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoToken means the store has no saved credentials under the given name.
// Strategies that need interactive authorization surface this with a hint to
// run the authorize flow first.
var ErrNoToken = errors.New("no saved token")

// TokenStore persists provider credentials between runs. Names are scoped per
// provider ("oura", "garmin.session", ...), contents are opaque bytes so each
// strategy can keep whatever shape its auth flow produces.
type TokenStore interface {
	Load(name string) ([]byte, error)
	Save(name string, data []byte) error
}

// FileTokenStore keeps one file per token under a state directory.
type FileTokenStore struct {
	dir string
}

// NewFileTokenStore creates the state directory if needed.
func NewFileTokenStore(dir string) (*FileTokenStore, error) {
	if dir == "" {
		return nil, errors.New("token store directory is empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	return &FileTokenStore{dir: dir}, nil
}

func (s *FileTokenStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func (s *FileTokenStore) Load(name string) ([]byte, error) {
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoToken, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read token %s: %w", name, err)
	}
	return data, nil
}

// Save writes through a temp file so a crash never leaves a truncated token.
func (s *FileTokenStore) Save(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, name+".*")
	if err != nil {
		return fmt.Errorf("write token %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write token %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write token %s: %w", name, err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("write token %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), s.path(name)); err != nil {
		return fmt.Errorf("write token %s: %w", name, err)
	}
	return nil
}

// LoadJSON decodes a saved token into out.
func LoadJSON(store TokenStore, name string, out any) error {
	data, err := store.Load(name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode token %s: %w", name, err)
	}
	return nil
}

// SaveJSON encodes in and saves it under name.
func SaveJSON(store TokenStore, name string, in any) error {
	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token %s: %w", name, err)
	}
	return store.Save(name, data)
}
