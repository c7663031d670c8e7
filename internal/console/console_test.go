package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/typerush-backend/internal/difficulty"
	"github.com/DoyleJ11/typerush-backend/internal/engine"
	"github.com/DoyleJ11/typerush-backend/internal/leaderboard"
	"github.com/DoyleJ11/typerush-backend/internal/prompt"
	"github.com/DoyleJ11/typerush-backend/internal/session"
)

const sentence = "The quick brown fox jumps over the lazy dog."

// syncBuffer guards the buffer for the race detector; the console lock
// already orders writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestPlay_LivesExhausted(t *testing.T) {
	board := leaderboard.Open(context.Background(), leaderboard.NewMemoryBackend(
		leaderboard.Entry{Seq: 1, PlayerName: "bo", Score: 5},
	), nil)

	var out syncBuffer
	c := New(&out)
	s := session.New(context.Background(), session.Config{
		ID:         "t1",
		PlayerName: "ana",
		Profile:    difficulty.ProfileFor(difficulty.TierMedium),
		Rules:      engine.Rules{InitialLives: 2, PointsPerCorrect: 10, BonusSeconds: 5, EscalateEvery: 5},
		Loader:     prompt.NewDirLoader(fstest.MapFS{"medium_sentences.txt": {Data: []byte(sentence + "\n")}}),
		Scores:     board,
		Observer:   c,
	})
	defer s.Close()

	in := strings.NewReader(sentence + "\nnope\n  nope  \n")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res, err := c.Play(ctx, s, in)
	require.NoError(t, err)
	assert.Equal(t, engine.ReasonLivesExhausted, res.Reason)
	assert.Equal(t, 10, res.Player.Score)
	assert.Equal(t, 1, res.RoundsCompleted)
	assert.True(t, res.NewHighScore)

	text := out.String()
	for _, want := range []string{
		"Difficulty: medium  Time: 30s  Lives: 2",
		"Type: " + sentence,
		"Correct! Score: 10  Round: 2",
		"Wrong! Lives left: 1",
		"Wrong! Lives left: 0",
		"GAME OVER (out of lives)",
		"Rounds completed: 1",
		"Rank: #1",
		"*** NEW HIGH SCORE! ***",
		"Top 2:",
		">   1. ana",
		"    2. bo",
	} {
		assert.Contains(t, text, want)
	}
}

func TestPlay_ExpiryWithoutInput(t *testing.T) {
	var out syncBuffer
	c := New(&out)
	s := session.New(context.Background(), session.Config{
		ID:           "t2",
		PlayerName:   "ana",
		Profile:      difficulty.Profile{Tier: difficulty.TierEasy, InitialSeconds: 2, PromptSourceID: "easy_sentences.txt"},
		TickInterval: 10 * time.Millisecond,
		Loader:       prompt.EmbeddedLoader(),
		Observer:     c,
	})
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res, err := c.Play(ctx, s, strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, engine.ReasonTimeUp, res.Reason)
	assert.Contains(t, out.String(), "Time's up!")
	assert.Contains(t, out.String(), "GAME OVER (time up)")
}

func TestWriteSummary_SaveWarning(t *testing.T) {
	var buf bytes.Buffer
	writeSummary(&buf, session.Result{
		Player:  engine.Player{Name: "ana", Score: 0, Round: 1},
		Tier:    difficulty.TierHard,
		Reason:  engine.ReasonTimeUp,
		SaveErr: errors.New("read-only filesystem"),
	})
	assert.Contains(t, buf.String(), "warning: score not saved: read-only filesystem")
	assert.NotContains(t, buf.String(), "Rank:")
	assert.NotContains(t, buf.String(), "NEW HIGH SCORE")
}

func TestWriteSummary_MarksOwnRow(t *testing.T) {
	res := session.Result{
		Player: engine.Player{Name: "ana", Score: 30, Round: 4},
		Tier:   difficulty.TierEasy,
		Reason: engine.ReasonTimeUp,
		Rank:   3,
		Top: []leaderboard.Entry{
			{PlayerName: "bo", Score: 50},
			{PlayerName: "ana", Score: 30},
			{PlayerName: "ana", Score: 30},
			{PlayerName: "cy", Score: 10},
		},
	}
	var buf bytes.Buffer
	writeSummary(&buf, res)

	var marked []string
	for _, l := range strings.Split(buf.String(), "\n") {
		if strings.HasPrefix(l, "> ") {
			marked = append(marked, l)
		}
	}
	require.Len(t, marked, 1)
	assert.Contains(t, marked[0], "3. ana")

	res.Rank = 11
	buf.Reset()
	writeSummary(&buf, res)
	assert.NotContains(t, buf.String(), "> ")
}
