package session

// Observer receives presentation callbacks. Calls arrive on the session's
// own goroutine, never on the clock's, so a slow observer delays later
// submissions but never the countdown.
type Observer interface {
	OnTick(remaining int)
	OnExpire()
	OnCorrect(score, round int)
	OnIncorrect(livesRemaining int)
	OnGameOver(res Result)
}

// NopObserver can be embedded to implement only some callbacks.
type NopObserver struct{}

func (NopObserver) OnTick(int)         {}
func (NopObserver) OnExpire()          {}
func (NopObserver) OnCorrect(int, int) {}
func (NopObserver) OnIncorrect(int)    {}
func (NopObserver) OnGameOver(Result)  {}
