package session

import (
	"context"
	"time"

	"github.com/DoyleJ11/typerush-backend/internal/difficulty"
	"github.com/DoyleJ11/typerush-backend/internal/engine"
	"github.com/DoyleJ11/typerush-backend/internal/leaderboard"
)

// Scoreboard is the slice of the leaderboard a session needs.
// *leaderboard.Board satisfies it.
type Scoreboard interface {
	SaveScore(ctx context.Context, name string, score int) error
	TopScores(n int) []leaderboard.Entry
	PlayerRank(name string, score int) int
	IsNewHighScore(name string, score int) bool
}

type Result struct {
	Player          engine.Player
	Tier            difficulty.Tier
	Reason          engine.Reason
	RoundsCompleted int
	Rank            int
	NewHighScore    bool
	Top             []leaderboard.Entry
	// SaveErr is set when the score could not be stored durably. The
	// result itself is still final.
	SaveErr error
}

type View struct {
	ID           string
	Tier         difficulty.Tier
	Phase        engine.Phase
	Player       engine.Player
	Prompt       string
	Remaining    int
	TickInterval time.Duration
	Escalations  int
	Result       *Result
}

type UpdateKind string

const (
	UpdateJoined    UpdateKind = "joined"
	UpdateStarted   UpdateKind = "started"
	UpdateTick      UpdateKind = "tick"
	UpdateExpired   UpdateKind = "expired"
	UpdateCorrect   UpdateKind = "correct"
	UpdateIncorrect UpdateKind = "incorrect"
	UpdateGameOver  UpdateKind = "game_over"
)

type Update struct {
	Version int
	Kind    UpdateKind
	View    View
}

type Outcome struct {
	Correct bool
	View    View
}
