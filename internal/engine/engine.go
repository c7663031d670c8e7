package engine

import (
	"errors"
	"strings"
)

var ErrInvalidState = errors.New("invalid session state")
var ErrNoPrompt = errors.New("no prompt to type")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseActive   Phase = "active"
	PhaseGameOver Phase = "game_over"
)

type Reason string

const (
	ReasonNone           Reason = ""
	ReasonTimeUp         Reason = "time_up"
	ReasonLivesExhausted Reason = "lives_exhausted"
)

type Player struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
	Lives int    `json:"lives"`
	Round int    `json:"round"`
}

type Rules struct {
	InitialLives     int
	PointsPerCorrect int
	BonusSeconds     int
	EscalateEvery    int
}

type State struct {
	Phase       Phase
	Player      Player
	Prompt      string
	Escalations int
	Reason      Reason
	Rules       Rules
}

type CommandType string

const (
	CmdStart     CommandType = "Start"
	CmdSubmit    CommandType = "Submit"
	CmdSetPrompt CommandType = "SetPrompt"
	CmdExpire    CommandType = "Expire"
)

/*
	CmdStart     -> EvtStarted
	CmdSubmit    -> EvtCorrect -> EvtTimeBonus -> (EvtEscalated)
	             -> EvtIncorrect -> (EvtGameOver)
	CmdSetPrompt -> EvtPromptChanged
	CmdExpire    -> EvtTimerExpired -> EvtGameOver

	The caller owns the side effects: it adds the bonus to the clock, speeds the
	clock up on EvtEscalated and draws the next prompt after EvtCorrect.
*/

type Command struct {
	Type   CommandType
	Text   string
	Prompt string
}

type EventType string

const (
	EvtStarted       EventType = "Started"
	EvtCorrect       EventType = "Correct"
	EvtTimeBonus     EventType = "TimeBonus"
	EvtEscalated     EventType = "Escalated"
	EvtPromptChanged EventType = "PromptChanged"
	EvtIncorrect     EventType = "Incorrect"
	EvtTimerExpired  EventType = "TimerExpired"
	EvtGameOver      EventType = "GameOver"
)

type Event struct {
	Type      EventType
	Score     int
	Round     int
	Lives     int
	Seconds   int
	Milestone int
	Prompt    string
	Reason    Reason
}

func Apply(s State, cmd Command) ([]Event, State, error) {
	newState := s

	switch cmd.Type {
	case CmdStart:
		if s.Phase != PhaseIdle {
			return nil, s, ErrInvalidState
		}
		if cmd.Prompt == "" {
			return nil, s, ErrNoPrompt
		}
		newState.Phase = PhaseActive
		newState.Prompt = cmd.Prompt
		return []Event{{Type: EvtStarted, Prompt: cmd.Prompt, Lives: s.Player.Lives, Round: s.Player.Round}}, newState, nil

	case CmdSubmit:
		if s.Phase != PhaseActive {
			return nil, s, ErrInvalidState
		}

		if strings.TrimSpace(cmd.Text) == s.Prompt {
			newState.Player.Score += s.Rules.PointsPerCorrect
			newState.Player.Round++

			events := []Event{
				{Type: EvtCorrect, Score: newState.Player.Score, Round: newState.Player.Round},
				{Type: EvtTimeBonus, Seconds: s.Rules.BonusSeconds},
			}
			if ShouldEscalate(newState.Player.Round, s.Rules.EscalateEvery) {
				newState.Escalations++
				events = append(events, Event{
					Type:      EvtEscalated,
					Round:     newState.Player.Round,
					Milestone: newState.Escalations,
				})
			}
			return events, newState, nil
		}

		// Wrong answer: the prompt stays, a life goes.
		newState.Player.Lives = max(s.Player.Lives-1, 0)
		events := []Event{{Type: EvtIncorrect, Lives: newState.Player.Lives}}
		if newState.Player.Lives == 0 {
			newState.Phase = PhaseGameOver
			newState.Reason = ReasonLivesExhausted
			events = append(events, gameOverEvent(newState))
		}
		return events, newState, nil

	case CmdSetPrompt:
		if s.Phase != PhaseActive {
			return nil, s, ErrInvalidState
		}
		if cmd.Prompt == "" {
			return nil, s, ErrNoPrompt
		}
		newState.Prompt = cmd.Prompt
		return []Event{{Type: EvtPromptChanged, Prompt: cmd.Prompt}}, newState, nil

	case CmdExpire:
		switch s.Phase {
		case PhaseGameOver:
			// Lost the race against the last life; nothing left to do.
			return nil, s, nil
		case PhaseActive:
			newState.Phase = PhaseGameOver
			newState.Reason = ReasonTimeUp
			return []Event{{Type: EvtTimerExpired}, gameOverEvent(newState)}, newState, nil
		default:
			return nil, s, ErrInvalidState
		}

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func gameOverEvent(s State) Event {
	return Event{
		Type:   EvtGameOver,
		Score:  s.Player.Score,
		Round:  s.Player.Round,
		Lives:  s.Player.Lives,
		Reason: s.Reason,
	}
}

// Reduce replays events on top of a fresh state for the given player.
func Reduce(name string, rules Rules, events []Event) State {
	s := NewState(name, rules)
	for _, event := range events {
		switch event.Type {
		case EvtStarted:
			s.Phase = PhaseActive
			s.Prompt = event.Prompt
		case EvtCorrect:
			s.Player.Score = event.Score
			s.Player.Round = event.Round
		case EvtEscalated:
			s.Escalations = event.Milestone
		case EvtPromptChanged:
			s.Prompt = event.Prompt
		case EvtIncorrect:
			s.Player.Lives = event.Lives
		case EvtGameOver:
			s.Phase = PhaseGameOver
			s.Reason = event.Reason
		}
	}
	return s
}
