package session

import (
	"context"
	"errors"
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
)

const onlyPrompt = "The cat sat on the mat."

// countingBoard wraps a real board and counts saves.
type countingBoard struct {
	*leaderboard.Board
	mu    sync.Mutex
	saves int
}

func (c *countingBoard) SaveScore(ctx context.Context, name string, score int) error {
	c.mu.Lock()
	c.saves++
	c.mu.Unlock()
	return c.Board.SaveScore(ctx, name, score)
}

func (c *countingBoard) Saves() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves
}

func newCountingBoard(backend leaderboard.Backend) *countingBoard {
	return &countingBoard{Board: leaderboard.Open(context.Background(), backend, nil)}
}

type recordingObserver struct {
	mu         sync.Mutex
	ticks      []int
	expires    int
	corrects   [][2]int
	incorrects []int
	gameOvers  []Result
}

func (r *recordingObserver) OnTick(remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks = append(r.ticks, remaining)
}

func (r *recordingObserver) OnExpire() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expires++
}

func (r *recordingObserver) OnCorrect(score, round int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.corrects = append(r.corrects, [2]int{score, round})
}

func (r *recordingObserver) OnIncorrect(lives int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.incorrects = append(r.incorrects, lives)
}

func (r *recordingObserver) OnGameOver(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gameOvers = append(r.gameOvers, res)
}

func singlePromptLoader() prompt.Loader {
	return prompt.NewDirLoader(fstest.MapFS{
		"easy_sentences.txt": {Data: []byte(onlyPrompt + "\n")},
	})
}

func testConfig(seconds int, tick time.Duration) Config {
	return Config{
		ID:           "s1",
		PlayerName:   "ana",
		Profile:      difficulty.Profile{Tier: difficulty.TierEasy, InitialSeconds: seconds, PromptSourceID: "easy_sentences.txt"},
		Rules:        engine.DefaultRules(),
		TickInterval: tick,
		Loader:       singlePromptLoader(),
		Prompts:      prompt.NewSeededSource(1, nil),
	}
}

func waitResult(t *testing.T, s *Session, within time.Duration) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), within)
	defer cancel()
	res, err := s.Result(ctx)
	require.NoError(t, err, "waiting for game over")
	return res
}

func TestSession_SubmitBeforeStart(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, testConfig(45, time.Hour))
	defer s.Close()

	_, err := s.Submit(ctx, onlyPrompt)
	require.ErrorIs(t, err, engine.ErrInvalidState)
}

func TestSession_StartTwice(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, testConfig(45, time.Hour))
	defer s.Close()

	require.NoError(t, s.Start(ctx))
	require.ErrorIs(t, s.Start(ctx), engine.ErrInvalidState)

	v, err := s.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.PhaseActive, v.Phase)
	assert.Equal(t, onlyPrompt, v.Prompt)
	assert.Equal(t, 45, v.Remaining)
}

func TestSession_FiveCorrectThenThreeWrong(t *testing.T) {
	ctx := context.Background()
	var milestones []int
	cfg := testConfig(45, time.Hour)
	cfg.Rules.InitialLives = 5
	cfg.Escalation = engine.EscalationFunc(func(m int, base time.Duration) time.Duration {
		milestones = append(milestones, m)
		return base / 2
	})
	obs := &recordingObserver{}
	cfg.Observer = obs

	s := New(ctx, cfg)
	defer s.Close()
	require.NoError(t, s.Start(ctx))

	for i := range 5 {
		out, err := s.Submit(ctx, onlyPrompt)
		require.NoError(t, err)
		require.True(t, out.Correct, "submission %d", i)
	}
	for range 3 {
		out, err := s.Submit(ctx, "the cat sat on the mat")
		require.NoError(t, err)
		require.False(t, out.Correct)
	}

	v, err := s.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.Player{Name: "ana", Score: 50, Round: 6, Lives: 2}, v.Player)
	assert.Equal(t, engine.PhaseActive, v.Phase)
	assert.Equal(t, 1, v.Escalations)
	assert.Equal(t, time.Hour/2, v.TickInterval)
	assert.Equal(t, 45+5*5, v.Remaining)
	assert.Equal(t, []int{1}, milestones)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, [][2]int{{10, 2}, {20, 3}, {30, 4}, {40, 5}, {50, 6}}, obs.corrects)
	assert.Equal(t, []int{4, 3, 2}, obs.incorrects)
	assert.Empty(t, obs.gameOvers)
}

func TestSession_LivesExhaustedEndsGame(t *testing.T) {
	ctx := context.Background()
	board := newCountingBoard(leaderboard.NewMemoryBackend())
	cfg := testConfig(45, time.Hour)
	cfg.Scores = board
	obs := &recordingObserver{}
	cfg.Observer = obs

	s := New(ctx, cfg)
	defer s.Close()
	require.NoError(t, s.Start(ctx))

	_, err := s.Submit(ctx, onlyPrompt)
	require.NoError(t, err)
	for range 3 {
		_, err := s.Submit(ctx, "nope")
		require.NoError(t, err)
	}

	res := waitResult(t, s, time.Second)
	assert.Equal(t, engine.ReasonLivesExhausted, res.Reason)
	assert.Equal(t, 10, res.Player.Score)
	assert.Equal(t, 0, res.Player.Lives)
	assert.Equal(t, 1, res.RoundsCompleted)
	assert.Equal(t, 1, res.Rank)
	assert.True(t, res.NewHighScore)
	require.Len(t, res.Top, 1)
	assert.Equal(t, "ana", res.Top[0].PlayerName)
	assert.NoError(t, res.SaveErr)
	assert.Equal(t, 1, board.Saves())

	_, err = s.Submit(ctx, onlyPrompt)
	require.ErrorIs(t, err, engine.ErrInvalidState)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Len(t, obs.gameOvers, 1)
	assert.Zero(t, obs.expires)
}

func TestSession_ExpiryEndsGame(t *testing.T) {
	ctx := context.Background()
	board := newCountingBoard(nil)
	cfg := testConfig(3, 5*time.Millisecond)
	cfg.Scores = board
	obs := &recordingObserver{}
	cfg.Observer = obs

	s := New(ctx, cfg)
	defer s.Close()
	require.NoError(t, s.Start(ctx))

	res := waitResult(t, s, 2*time.Second)
	assert.Equal(t, engine.ReasonTimeUp, res.Reason)
	assert.Equal(t, 3, res.Player.Lives)
	assert.Equal(t, 1, board.Saves())

	// Nothing more may arrive once the game is over.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, board.Saves())

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, 1, obs.expires)
	assert.Len(t, obs.gameOvers, 1)
	for _, v := range obs.ticks {
		assert.GreaterOrEqual(t, v, 0)
	}
}

func TestSession_ExpiryAndLastLifeRaceSavesOnce(t *testing.T) {
	for i := range 20 {
		ctx := context.Background()
		board := newCountingBoard(nil)
		cfg := testConfig(1, time.Duration(i%4+1)*time.Millisecond)
		cfg.Scores = board
		cfg.Rules.InitialLives = 1

		s := New(ctx, cfg)
		require.NoError(t, s.Start(ctx))

		_, err := s.Submit(ctx, "wrong")
		if err != nil {
			require.ErrorIs(t, err, engine.ErrInvalidState)
		}

		res := waitResult(t, s, time.Second)
		assert.Contains(t, []engine.Reason{engine.ReasonTimeUp, engine.ReasonLivesExhausted}, res.Reason)
		time.Sleep(10 * time.Millisecond)
		assert.Equal(t, 1, board.Saves(), "iteration %d", i)
		s.Close()
	}
}

func TestSession_RankAgainstExistingBoard(t *testing.T) {
	ctx := context.Background()
	backend := leaderboard.NewMemoryBackend(
		leaderboard.Entry{Seq: 1, PlayerName: "bo", Score: 30},
		leaderboard.Entry{Seq: 2, PlayerName: "cy", Score: 10},
	)
	cfg := testConfig(45, time.Hour)
	cfg.Scores = leaderboard.Open(ctx, backend, nil)
	cfg.Rules.InitialLives = 1

	s := New(ctx, cfg)
	defer s.Close()
	require.NoError(t, s.Start(ctx))
	_, err := s.Submit(ctx, onlyPrompt)
	require.NoError(t, err)
	_, err = s.Submit(ctx, "x")
	require.NoError(t, err)

	res := waitResult(t, s, time.Second)
	// Tied with cy, who got there first.
	assert.Equal(t, 3, res.Rank)
	assert.False(t, res.NewHighScore)
	require.Len(t, res.Top, 3)
	assert.Equal(t, []string{"bo", "cy", "ana"}, []string{res.Top[0].PlayerName, res.Top[1].PlayerName, res.Top[2].PlayerName})
	assert.Len(t, backend.Entries(), 3)
}

func TestSession_SaveFailureIsAWarning(t *testing.T) {
	ctx := context.Background()
	backend := leaderboard.NewMemoryBackend()
	backend.AppendErr = errors.New("disk full")
	cfg := testConfig(45, time.Hour)
	cfg.Scores = leaderboard.Open(ctx, backend, nil)
	cfg.Rules.InitialLives = 1

	s := New(ctx, cfg)
	defer s.Close()
	require.NoError(t, s.Start(ctx))
	_, err := s.Submit(ctx, "x")
	require.NoError(t, err)

	res := waitResult(t, s, time.Second)
	require.ErrorIs(t, res.SaveErr, leaderboard.ErrNotPersisted)
	assert.Equal(t, 1, res.Rank)
	assert.Len(t, res.Top, 1)
}

func TestSession_JoinReceivesUpdates(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, testConfig(45, time.Hour))
	defer s.Close()

	out := make(chan Update, 8)
	s.Inbox() <- Join{ClientID: "c1", Outbox: out}
	first := recvUpdate(t, out, 100*time.Millisecond)
	assert.Equal(t, UpdateJoined, first.Kind)
	assert.Equal(t, 0, first.Version)

	require.NoError(t, s.Start(ctx))
	started := recvUpdate(t, out, 100*time.Millisecond)
	assert.Equal(t, UpdateStarted, started.Kind)
	assert.Equal(t, 1, started.Version)

	_, err := s.Submit(ctx, onlyPrompt)
	require.NoError(t, err)
	correct := recvUpdate(t, out, 100*time.Millisecond)
	assert.Equal(t, UpdateCorrect, correct.Kind)
	assert.Equal(t, 10, correct.View.Player.Score)
}

func TestSession_DropSlowClient(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, testConfig(45, time.Hour))
	defer s.Close()

	out := make(chan Update, 1)
	s.Inbox() <- Join{ClientID: "c1", Outbox: out}
	require.NoError(t, s.Start(ctx))

	// The join update filled the buffer, so the start broadcast drops us.
	recvUpdate(t, out, 100*time.Millisecond)
	select {
	case _, ok := <-out:
		assert.False(t, ok, "expected outbox to be closed")
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("expected outbox to be closed")
	}
}

func TestSession_CloseUnblocksResult(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, testConfig(45, time.Hour))
	require.NoError(t, s.Start(ctx))
	s.Close()

	_, err := s.Result(ctx)
	require.ErrorIs(t, err, ErrClosed)
}

func recvUpdate(t *testing.T, ch <-chan Update, within time.Duration) Update {
	t.Helper()
	select {
	case u, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return u
	case <-time.After(within):
		t.Fatalf("timed out waiting for update")
	}
	return Update{}
}

func TestSession_EscalationNeverSlowsFastClock(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(10000, 300*time.Millisecond)
	cfg.Escalation = engine.DefaultEscalation()

	s := New(ctx, cfg)
	defer s.Close()
	require.NoError(t, s.Start(ctx))

	for range 5 {
		out, err := s.Submit(ctx, onlyPrompt)
		require.NoError(t, err)
		require.True(t, out.Correct)
	}

	v, err := s.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Escalations)
	assert.LessOrEqual(t, v.TickInterval, 300*time.Millisecond)
}

func TestSession_CloseIfIdle(t *testing.T) {
	ctx := context.Background()

	idle := New(ctx, testConfig(45, time.Hour))
	closed, err := idle.CloseIfIdle(ctx)
	require.NoError(t, err)
	assert.True(t, closed)
	require.ErrorIs(t, idle.Start(ctx), ErrClosed)

	running := New(ctx, testConfig(45, time.Hour))
	defer running.Close()
	require.NoError(t, running.Start(ctx))
	closed, err = running.CloseIfIdle(ctx)
	require.NoError(t, err)
	assert.False(t, closed)

	v, err := running.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.PhaseActive, v.Phase)
}
