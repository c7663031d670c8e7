package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownBackend = errors.New("unknown leaderboard backend")

const (
	KindMemory   = "memory"
	KindFile     = "file"
	KindSQLite   = "sqlite"
	KindPostgres = "postgres"
)

// NewBackend builds the backend named by kind. path is used by the file and
// sqlite backends, dsn by postgres.
func NewBackend(ctx context.Context, kind, path, dsn string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindMemory:
		return NewMemoryBackend(), nil
	case KindFile, "":
		if path == "" {
			return nil, fmt.Errorf("file backend: path is required")
		}
		return NewFileBackend(path), nil
	case KindSQLite:
		if path == "" {
			return nil, fmt.Errorf("sqlite backend: path is required")
		}
		return NewSQLiteBackend(path)
	case KindPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("postgres backend: database url is required")
		}
		return NewPostgresBackend(ctx, dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
	}
}
