package types

type Player struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
	Lives int    `json:"lives"`
	Round int    `json:"round"`
}

type Snapshot struct {
	SessionID    string `json:"session_id"`
	Difficulty   string `json:"difficulty"`
	Phase        string `json:"phase"` // "idle" | "active" | "game_over"
	Prompt       string `json:"prompt,omitempty"`
	Player       Player `json:"player"`
	RemainingSec int    `json:"remaining_sec"`
	TickMs       int64  `json:"tick_ms"`
	Escalations  int    `json:"escalations"`
}

type ScoreRow struct {
	Rank       int    `json:"rank"`
	PlayerName string `json:"player_name"`
	Score      int    `json:"score"`
}

type GameOver struct {
	Reason          string     `json:"reason"` // "time_up" | "lives_exhausted"
	Difficulty      string     `json:"difficulty"`
	FinalScore      int        `json:"final_score"`
	RoundsCompleted int        `json:"rounds_completed"`
	Rank            int        `json:"rank"`
	NewHighScore    bool       `json:"new_high_score"`
	Top             []ScoreRow `json:"top"`
	Warning         string     `json:"warning,omitempty"`
}
