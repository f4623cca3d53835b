// Package storage persists JSON documents keyed by hierarchical schema
// strings (e.g. "middleware/usage/get_repository_info"). Each document is
// wrapped in an envelope carrying the save timestamp.
//
// The store gives single-document atomicity: Save replaces the document
// with a temp-file rename, so a concurrent Load never observes a partial
// write. It does not serialize read-modify-write sequences; callers that
// need that (the usage interceptor) hold their own per-key lock.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Envelope wraps a stored document with its save timestamp.
type Envelope struct {
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Store is a durable key-value store rooted at a directory. Directories for
// key prefixes are created on demand.
type Store struct {
	root string
	now  func() time.Time
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{root: dir, now: time.Now}
}

// path maps a schema key to a file location under the root, rejecting keys
// that would escape it.
func (s *Store) path(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("storage key cannot be empty")
	}
	if filepath.IsAbs(key) {
		return "", fmt.Errorf("storage key cannot be absolute: %s", key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("invalid storage key segment in %q", key)
		}
	}
	return filepath.Join(s.root, filepath.FromSlash(key)) + ".json", nil
}

// Load reads the document stored under key into out, which must be a
// pointer. It returns false with a nil error when no document exists.
func (s *Store) Load(key string, out any) (bool, error) {
	path, err := s.path(key)
	if err != nil {
		return false, err
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return false, fmt.Errorf("failed to decode %s data: %w", key, err)
		}
	}
	return true, nil
}

// LoadEnvelope reads the raw envelope stored under key.
func (s *Store) LoadEnvelope(key string) (*Envelope, bool, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, false, err
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return &env, true, nil
}

// Save persists data under key, overwriting any prior document. The write
// goes to a temp file in the same directory followed by a rename, so
// readers never see a torn document. Returns the file path.
func (s *Store) Save(key string, data any) (string, error) {
	path, err := s.path(key)
	if err != nil {
		return "", err
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", key, err)
	}

	env, err := json.MarshalIndent(Envelope{
		Timestamp: s.now().UTC(),
		Data:      raw,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode envelope for %s: %w", key, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file for %s: %w", key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(env); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to close temp file for %s: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to replace %s: %w", key, err)
	}
	return path, nil
}
