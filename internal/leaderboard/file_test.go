package leaderboard

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackend_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "scores", "leaderboard.json")

	b := Open(ctx, NewFileBackend(path), nil)
	require.NoError(t, b.SaveScore(ctx, "ana", 30))
	require.NoError(t, b.SaveScore(ctx, "bo", 30))
	require.NoError(t, b.SaveScore(ctx, "cy", 40))
	require.NoError(t, b.Close())

	again := Open(ctx, NewFileBackend(path), nil)
	assert.Equal(t, []string{"cy", "ana", "bo"}, names(again.TopScores(10)))
}

func TestFileBackend_MissingFileIsEmpty(t *testing.T) {
	entries, err := NewFileBackend(filepath.Join(t.TempDir(), "nope.json")).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileBackend_CorruptFileFallsBackToEmptyBoard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leaderboard.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileBackend(path).Load(context.Background())
	require.Error(t, err)

	b := Open(context.Background(), NewFileBackend(path), nil)
	assert.Zero(t, b.Len())
}

func TestSQLiteBackend_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "typerush.db")

	backend, err := NewSQLiteBackend(path)
	require.NoError(t, err)
	b := Open(ctx, backend, nil)
	require.NoError(t, b.SaveScore(ctx, "ana", 10))
	require.NoError(t, b.SaveScore(ctx, "bo", 10))
	require.NoError(t, b.Close())

	backend, err = NewSQLiteBackend(path)
	require.NoError(t, err)
	again := Open(ctx, backend, nil)
	defer again.Close()

	assert.Equal(t, []string{"ana", "bo"}, names(again.TopScores(5)))
	require.NoError(t, again.SaveScore(ctx, "cy", 10))
	assert.Equal(t, int64(3), again.TopScores(5)[2].Seq)
}

func TestPostgresBackend_RoundTrip(t *testing.T) {
	dsn := os.Getenv("TYPERUSH_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TYPERUSH_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	backend, err := NewPostgresBackend(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, backend.db.Exec("DELETE FROM leaderboard_scores").Error)

	b := Open(ctx, backend, nil)
	require.NoError(t, b.SaveScore(ctx, "ana", 10))
	require.NoError(t, b.SaveScore(ctx, "bo", 20))
	require.NoError(t, b.Close())

	backend, err = NewPostgresBackend(ctx, dsn)
	require.NoError(t, err)
	again := Open(ctx, backend, nil)
	defer again.Close()
	assert.Equal(t, []string{"bo", "ana"}, names(again.TopScores(5)))
}
