package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/multierr"
)

const fileVersion = 1

type fileDoc struct {
	Version int     `json:"version"`
	Entries []Entry `json:"entries"`
}

// FileBackend keeps the whole table in one JSON document and rewrites it on
// every append through a temp file and rename.
type FileBackend struct {
	mu      sync.Mutex
	path    string
	entries []Entry
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (f *FileBackend) Load(_ context.Context) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			f.entries = nil
			return nil, nil
		}
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	var doc fileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode leaderboard: %w", err)
	}
	f.entries = doc.Entries
	return append([]Entry(nil), doc.Entries...), nil
}

func (f *FileBackend) Append(_ context.Context, e Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := append(append([]Entry(nil), f.entries...), e)
	if err := f.write(next); err != nil {
		return err
	}
	f.entries = next
	return nil
}

func (f *FileBackend) write(entries []Entry) (err error) {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create leaderboard dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".leaderboard-*.json")
	if err != nil {
		return fmt.Errorf("create temp leaderboard: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	encErr := enc.Encode(fileDoc{Version: fileVersion, Entries: entries})
	if err := multierr.Combine(encErr, tmp.Close()); err != nil {
		return fmt.Errorf("write leaderboard: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace leaderboard: %w", err)
	}
	return nil
}

func (f *FileBackend) Close() error { return nil }
