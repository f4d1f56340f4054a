package settings

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/replypilot/replypilot/internal/models"
)

// FileStore keeps settings in a local JSON file. It is the default
// backend when no sync storage account is configured.
type FileStore struct {
	path string
	mu   sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a store writing to path. The file is created on
// first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load(ctx context.Context) (models.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadLocked()
}

func (f *FileStore) loadLocked() (models.Settings, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		logrus.Debugf("No settings file at %s, using defaults", f.path)
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return models.Settings{}, &StoreError{Op: "load", Err: err}
	}
	var s models.Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return models.Settings{}, &StoreError{Op: "load", Err: err}
	}
	s.Normalize()
	return s, nil
}

func (f *FileStore) Save(ctx context.Context, s models.Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saveLocked(s)
}

func (f *FileStore) saveLocked(s models.Settings) error {
	s.Normalize()
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return &StoreError{Op: "save", Err: err}
	}
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &StoreError{Op: "save", Err: err}
		}
	}
	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		return &StoreError{Op: "save", Err: err}
	}
	return nil
}

func (f *FileStore) AddStats(ctx context.Context, delta models.Stats) (models.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.loadLocked()
	if err != nil {
		return models.Stats{}, err
	}
	s.Stats = s.Stats.Add(delta)
	if err := f.saveLocked(s); err != nil {
		return models.Stats{}, err
	}
	return s.Stats, nil
}
