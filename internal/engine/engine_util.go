package engine

func DefaultRules() Rules {
	return Rules{
		InitialLives:     3,
		PointsPerCorrect: 10,
		BonusSeconds:     5,
		EscalateEvery:    5,
	}
}

func NewState(name string, rules Rules) State {
	if rules.InitialLives <= 0 {
		rules.InitialLives = DefaultRules().InitialLives
	}
	return State{
		Phase: PhaseIdle,
		Player: Player{
			Name:  name,
			Lives: rules.InitialLives,
			Round: 1,
		},
		Rules: rules,
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func FindEvent(events []Event, eventType EventType) (Event, bool) {
	for _, event := range events {
		if event.Type == eventType {
			return event, true
		}
	}
	return Event{}, false
}

func (s State) Terminal() bool { return s.Phase == PhaseGameOver }
