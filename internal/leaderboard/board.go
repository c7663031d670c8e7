package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNotPersisted wraps backend failures on save. The score is still on the
// in-memory board when this is returned.
var ErrNotPersisted = errors.New("score not persisted")

type Entry struct {
	Seq        int64     `json:"seq"`
	PlayerName string    `json:"player_name"`
	Score      int       `json:"score"`
	CreatedAt  time.Time `json:"created_at"`
}

// Backend durably stores entries in insertion order.
type Backend interface {
	Load(ctx context.Context) ([]Entry, error)
	Append(ctx context.Context, e Entry) error
	Close() error
}

// Board is the process-wide ranked score table. Entries are ordered by score
// descending, then by insertion (Seq) ascending.
type Board struct {
	mu      sync.RWMutex
	entries []Entry // sorted by rank
	nextSeq int64
	backend Backend
	log     *zap.Logger
	now     func() time.Time
}

// Open loads the backend's entries. A load failure is logged and the board
// starts empty.
func Open(ctx context.Context, backend Backend, logger *zap.Logger) *Board {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Board{backend: backend, log: logger, now: func() time.Time { return time.Now().UTC() }}
	if backend == nil {
		return b
	}

	loaded, err := backend.Load(ctx)
	if err != nil {
		logger.Warn("leaderboard load failed, starting empty", zap.Error(err))
		return b
	}
	b.entries = append(b.entries, loaded...)
	for _, e := range b.entries {
		b.nextSeq = max(b.nextSeq, e.Seq)
	}
	slices.SortStableFunc(b.entries, byRank)
	logger.Info("leaderboard loaded", zap.Int("entries", len(b.entries)))
	return b
}

func byRank(x, y Entry) int {
	if x.Score != y.Score {
		if x.Score > y.Score {
			return -1
		}
		return 1
	}
	return cmpSeq(x.Seq, y.Seq)
}

func cmpSeq(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// SaveScore appends a new entry. It never rejects a score and never merges
// entries for the same name.
func (b *Board) SaveScore(ctx context.Context, name string, score int) error {
	b.mu.Lock()
	b.nextSeq++
	e := Entry{
		Seq:        b.nextSeq,
		PlayerName: strings.TrimSpace(name),
		Score:      score,
		CreatedAt:  b.now(),
	}
	// Insert after every entry that outranks it; all existing entries were
	// inserted earlier, so ties land behind them.
	i, _ := slices.BinarySearchFunc(b.entries, e, byRank)
	b.entries = slices.Insert(b.entries, i, e)
	backend := b.backend
	b.mu.Unlock()

	if backend == nil {
		return nil
	}
	if err := backend.Append(ctx, e); err != nil {
		b.log.Warn("leaderboard save failed",
			zap.String("player", e.PlayerName),
			zap.Int("score", e.Score),
			zap.Error(err))
		return fmt.Errorf("%w: %w", ErrNotPersisted, err)
	}
	return nil
}

func (b *Board) TopScores(n int) []Entry {
	if n <= 0 {
		return []Entry{}
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	n = min(n, len(b.entries))
	return slices.Clone(b.entries[:n])
}

// PlayerRank is the 1-based position (name, score) would take if saved now.
func (b *Board) PlayerRank(_ string, score int) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ahead := 0
	for _, e := range b.entries {
		if e.Score < score {
			break
		}
		ahead++
	}
	return ahead + 1
}

func (b *Board) IsNewHighScore(_ string, score int) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries) == 0 || score > b.entries[0].Score
}

func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

func (b *Board) Close() error {
	if b.backend == nil {
		return nil
	}
	return b.backend.Close()
}
