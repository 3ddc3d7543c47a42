package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// MemoryStore keeps session state in memory, lost on restart.
type MemoryStore struct {
	mu    sync.Mutex
	state State
	set   bool
}

// NewMemoryStore returns an empty in-memory token store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

var _ TokenStore = (*MemoryStore)(nil)

func (s *MemoryStore) Load() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return State{}, nil
	}
	return s.state, nil
}

func (s *MemoryStore) Save(state State) error {
	s.mu.Lock()
	s.state = state
	s.set = true
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	s.state = State{}
	s.set = false
	s.mu.Unlock()
	return nil
}

// FileStore persists session state as JSON on disk so a restarted process
// keeps its login.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore builds a file-backed token store at path. Parent directories
// are created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

var _ TokenStore = (*FileStore)(nil)

func (s *FileStore) Load() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("session: read %s: %w", s.path, err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("session: decode %s: %w", s.path, err)
	}
	return state, nil
}

func (s *FileStore) Save(state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("session: encode state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("session: create dir: %w", err)
	}
	// Tokens are credentials, keep the file private.
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("session: write %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("session: remove %s: %w", s.path, err)
	}
	return nil
}
