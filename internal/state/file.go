package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/deusflow/newspulse/internal/logger"
)

// FileStore keeps the watermarks in a single JSON document:
// { source: { category: "<RFC 3339 timestamp>" } }.
// Writes go through a temp file + rename so a concurrent reader never
// observes a partial document.
type FileStore struct {
	filePath string
	mu       sync.RWMutex
	marks    map[string]map[string]string
}

func NewFileStore(filePath string) *FileStore {
	return &FileStore{
		filePath: filePath,
		marks:    make(map[string]map[string]string),
	}
}

// Load reads the persisted state. A missing file is the first-run bootstrap;
// an unreadable or corrupt file is logged and treated as empty state.
func (s *FileStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		logger.Warn("failed to read state file, starting with empty state", "path", s.filePath, "error", err)
		return nil
	}
	if len(data) == 0 {
		return nil
	}

	var marks map[string]map[string]string
	if err := json.Unmarshal(data, &marks); err != nil {
		logger.Warn("failed to parse state file, starting with empty state", "path", s.filePath, "error", err)
		return nil
	}
	s.marks = marks
	return nil
}

func (s *FileStore) Get(source, category string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.marks[source][category]
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		logger.Warn("ignoring unparseable watermark", "source", source, "category", category, "value", raw)
		return time.Time{}, false
	}
	return t, true
}

// Update mutates the in-memory state and rewrites the whole persisted
// document synchronously.
func (s *FileStore) Update(source, category string, published time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.marks[source] == nil {
		s.marks[source] = make(map[string]string)
	}
	s.marks[source][category] = published.UTC().Format(time.RFC3339)

	return s.persist()
}

func (s *FileStore) persist() error {
	data, err := json.MarshalIndent(s.marks, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	dir := filepath.Dir(s.filePath)
	tmp, err := os.CreateTemp(dir, ".state-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Rename(tmpName, s.filePath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
