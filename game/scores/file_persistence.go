package scores

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FilePersistence stores the score table in a single JSON file
type FilePersistence struct {
	path string
	mu   sync.Mutex
}

// NewFilePersistence creates a file-based persistence layer, creating the parent directory
func NewFilePersistence(path string) (*FilePersistence, error) {
	if path == "" {
		return nil, fmt.Errorf("scores file path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create scores directory: %w", err)
		}
	}
	return &FilePersistence{path: path}, nil
}

// Path returns the backing file
func (fp *FilePersistence) Path() string {
	return fp.path
}

// Load reads the score file. A missing file is an empty table.
func (fp *FilePersistence) Load() (map[string]int, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	jsonData, err := os.ReadFile(fp.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]int{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read scores file: %w", err)
	}
	if len(jsonData) == 0 {
		return map[string]int{}, nil
	}

	scores := make(map[string]int)
	if err := json.Unmarshal(jsonData, &scores); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scores: %w", err)
	}
	return scores, nil
}

// Save overwrites the score file atomically through a temp file and rename
func (fp *FilePersistence) Save(scores map[string]int) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	jsonData, err := json.MarshalIndent(scores, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal scores: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fp.path), ".scores-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp scores file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(jsonData); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write scores file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close scores file: %w", err)
	}
	if err := os.Rename(tmpName, fp.path); err != nil {
		return fmt.Errorf("failed to replace scores file: %w", err)
	}
	return nil
}
