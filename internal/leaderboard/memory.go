package leaderboard

import (
	"context"
	"slices"
	"sync"
)

// MemoryBackend keeps entries for the lifetime of the process only. Tests use
// it to inject load and append failures.
type MemoryBackend struct {
	mu        sync.Mutex
	entries   []Entry
	LoadErr   error
	AppendErr error
}

func NewMemoryBackend(seed ...Entry) *MemoryBackend {
	return &MemoryBackend{entries: slices.Clone(seed)}
}

func (m *MemoryBackend) Load(_ context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return slices.Clone(m.entries), nil
}

func (m *MemoryBackend) Append(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *MemoryBackend) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.entries)
}

func (m *MemoryBackend) Close() error { return nil }
