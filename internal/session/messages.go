package session

type Msg interface{ isSessionMsg() }

type Start struct {
	Reply chan error
}

func (Start) isSessionMsg() {}

type Submit struct {
	Text  string
	Reply chan SubmitReply
}

func (Submit) isSessionMsg() {}

type SubmitReply struct {
	Outcome Outcome
	Err     error
}

type Join struct {
	ClientID string
	Outbox   chan Update // where this client wants to receive updates
}

func (Join) isSessionMsg() {}

type Leave struct{ ClientID string }

func (Leave) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

// CloseIfIdle shuts the session down only if it was never started.
type CloseIfIdle struct {
	Reply chan bool
}

func (CloseIfIdle) isSessionMsg() {}
