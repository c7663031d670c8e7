package types

// Client -> Server (websocket, JSON text frames)
// Start: {}
//   starts the clock and reveals the first prompt
//
// Submit:
//   text: string
//
// Server -> Client
// StateSnapshot:
//   version: number
//   event: "joined" | "started" | "tick" | "expired" | "correct" | "incorrect" | "game_over"
//   state: Snapshot
//
// GameOver:
//   version: number
//   state: Snapshot
//   result: GameOver
//
// FeedbackCleared: {}
//   sent a few seconds after "correct" / "incorrect" so clients can drop
//   their feedback line
//
// Error:
//   error: string

const (
	MsgStart           = "Start"
	MsgSubmit          = "Submit"
	MsgStateSnapshot   = "StateSnapshot"
	MsgGameOver        = "GameOver"
	MsgFeedbackCleared = "FeedbackCleared"
	MsgError           = "Error"
)
