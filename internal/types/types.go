package types

import (
	"github.com/DoyleJ11/typerush-backend/internal/leaderboard"
	"github.com/DoyleJ11/typerush-backend/internal/session"
	wire "github.com/DoyleJ11/typerush-backend/pkg/types"
)

type ClientMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type ServerMessage struct {
	Type    string         `json:"type"` // see pkg/types for the full list
	Version int            `json:"version,omitempty"`
	Event   string         `json:"event,omitempty"`
	State   *wire.Snapshot `json:"state,omitempty"`
	Result  *wire.GameOver `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func SnapshotFromView(v session.View) wire.Snapshot {
	return wire.Snapshot{
		SessionID:  v.ID,
		Difficulty: v.Tier.String(),
		Phase:      string(v.Phase),
		Prompt:     v.Prompt,
		Player: wire.Player{
			Name:  v.Player.Name,
			Score: v.Player.Score,
			Lives: v.Player.Lives,
			Round: v.Player.Round,
		},
		RemainingSec: v.Remaining,
		TickMs:       v.TickInterval.Milliseconds(),
		Escalations:  v.Escalations,
	}
}

func GameOverFromResult(r session.Result) wire.GameOver {
	out := wire.GameOver{
		Reason:          string(r.Reason),
		Difficulty:      r.Tier.String(),
		FinalScore:      r.Player.Score,
		RoundsCompleted: r.RoundsCompleted,
		Rank:            r.Rank,
		NewHighScore:    r.NewHighScore,
		Top:             ScoreRows(r.Top),
	}
	if r.SaveErr != nil {
		out.Warning = r.SaveErr.Error()
	}
	return out
}

func ScoreRows(entries []leaderboard.Entry) []wire.ScoreRow {
	rows := make([]wire.ScoreRow, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, wire.ScoreRow{Rank: i + 1, PlayerName: e.PlayerName, Score: e.Score})
	}
	return rows
}

// FromUpdate turns a session update into the message sent to clients.
func FromUpdate(u session.Update) ServerMessage {
	snap := SnapshotFromView(u.View)
	msg := ServerMessage{Type: wire.MsgStateSnapshot, Version: u.Version, Event: string(u.Kind), State: &snap}
	if u.Kind == session.UpdateGameOver && u.View.Result != nil {
		res := GameOverFromResult(*u.View.Result)
		msg.Type = wire.MsgGameOver
		msg.Result = &res
	}
	return msg
}
