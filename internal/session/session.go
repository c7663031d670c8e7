package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/typerush-backend/internal/countdown"
	"github.com/DoyleJ11/typerush-backend/internal/difficulty"
	"github.com/DoyleJ11/typerush-backend/internal/engine"
	"github.com/DoyleJ11/typerush-backend/internal/prompt"
)

var ErrClosed = errors.New("session closed")

const (
	DefaultTopN  = 10
	saveTimeout  = 5 * time.Second
	inboxBuffer  = 64
	defaultLives = 3
)

type Config struct {
	ID         string
	PlayerName string
	Profile    difficulty.Profile
	Rules      engine.Rules
	Escalation engine.EscalationPolicy
	// TickInterval is the starting clock period. Zero means one second.
	TickInterval time.Duration
	Loader       prompt.Loader
	Prompts      *prompt.Source
	Scores       Scoreboard
	Observer     Observer
	TopN         int
	Logger       *zap.Logger
}

// Session runs one game. Submissions, clock ticks and expiry are all
// handled on a single goroutine, so the two ways a game can end never
// interleave and the score is saved once.
type Session struct {
	id         string
	profile    difficulty.Profile
	inbox      chan Msg
	state      engine.State
	version    int
	clients    map[string]chan Update
	clock      *countdown.Countdown
	feed       *countdown.Feed
	expired    <-chan struct{}
	base       time.Duration
	escalation engine.EscalationPolicy
	loader     prompt.Loader
	prompts    *prompt.Source
	scores     Scoreboard
	observer   Observer
	topN       int
	result     *Result
	done       chan struct{}
	log        *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc
}

func New(parent context.Context, cfg Config) *Session {
	ctx, cancel := context.WithCancel(parent)

	if cfg.Rules == (engine.Rules{}) {
		cfg.Rules = engine.DefaultRules()
	}
	if cfg.Rules.InitialLives <= 0 {
		cfg.Rules.InitialLives = defaultLives
	}
	if cfg.Escalation == nil {
		cfg.Escalation = engine.DefaultEscalation()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = countdown.DefaultInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Prompts == nil {
		cfg.Prompts = prompt.NewSource(nil, cfg.Logger)
	}
	if cfg.Observer == nil {
		cfg.Observer = NopObserver{}
	}
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultTopN
	}

	feed := countdown.NewFeed()
	s := &Session{
		id:         cfg.ID,
		profile:    cfg.Profile,
		inbox:      make(chan Msg, inboxBuffer),
		state:      engine.NewState(cfg.PlayerName, cfg.Rules),
		clients:    make(map[string]chan Update),
		clock:      countdown.New(cfg.Profile.InitialSeconds, countdown.WithInterval(cfg.TickInterval)),
		feed:       feed,
		expired:    feed.Expired(),
		base:       cfg.TickInterval,
		escalation: cfg.Escalation,
		loader:     cfg.Loader,
		prompts:    cfg.Prompts,
		scores:     cfg.Scores,
		observer:   cfg.Observer,
		topN:       cfg.TopN,
		done:       make(chan struct{}),
		log: cfg.Logger.With(
			zap.String("session", cfg.ID),
			zap.String("player", cfg.PlayerName),
			zap.String("tier", cfg.Profile.Tier.String()),
		),
		ctx:    ctx,
		cancel: cancel,
	}

	go s.loop()
	return s
}

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case remaining := <-s.feed.Ticks():
			if s.state.Terminal() {
				break
			}
			s.observer.OnTick(remaining)
			s.broadcast(UpdateTick)

		case <-s.expired:
			s.expired = nil // closed channels stay ready
			s.handleExpire()

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Start:
				msg.Reply <- s.handleStart()

			case Submit:
				out, err := s.handleSubmit(msg.Text)
				msg.Reply <- SubmitReply{Outcome: out, Err: err}

			case Join:
				// Register client + send current view immediately
				s.clients[msg.ClientID] = msg.Outbox
				s.send(msg.ClientID, msg.Outbox, Update{Version: s.version, Kind: UpdateJoined, View: s.view()})

			case Leave:
				delete(s.clients, msg.ClientID)

			case GetState:
				msg.Reply <- s.view()

			case CloseIfIdle:
				idle := s.state.Phase == engine.PhaseIdle
				msg.Reply <- idle
				if idle {
					s.log.Info("idle session closed")
					s.shutdown()
					return
				}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) handleStart() error {
	if s.state.Phase != engine.PhaseIdle {
		return engine.ErrInvalidState
	}

	s.prompts.Load(s.loader, s.profile.PromptSourceID)
	first, err := s.prompts.Next()
	if err != nil {
		return err
	}
	_, next, err := engine.Apply(s.state, engine.Command{Type: engine.CmdStart, Prompt: first})
	if err != nil {
		return err
	}
	if err := s.clock.Start(s.feed); err != nil {
		return err
	}
	s.state = next
	s.log.Info("session started", zap.Int("seconds", s.profile.InitialSeconds))
	s.broadcast(UpdateStarted)
	return nil
}

func (s *Session) handleSubmit(text string) (Outcome, error) {
	events, next, err := engine.Apply(s.state, engine.Command{Type: engine.CmdSubmit, Text: text})
	if err != nil {
		return Outcome{View: s.view()}, err
	}
	s.state = next

	correct := engine.ContainsEvent(events, engine.EvtCorrect)
	for _, e := range events {
		switch e.Type {
		case engine.EvtTimeBonus:
			s.clock.AddTime(e.Seconds)
		case engine.EvtEscalated:
			interval := s.escalation.TickInterval(e.Milestone, s.base)
			s.clock.SetTickRate(interval)
			s.log.Info("speed escalated", zap.Int("round", e.Round), zap.Duration("tick", interval))
		}
	}
	if correct {
		s.nextPrompt()
	}

	for _, e := range events {
		switch e.Type {
		case engine.EvtCorrect:
			s.observer.OnCorrect(e.Score, e.Round)
			s.broadcast(UpdateCorrect)
		case engine.EvtIncorrect:
			s.observer.OnIncorrect(e.Lives)
			s.broadcast(UpdateIncorrect)
		case engine.EvtGameOver:
			s.finish()
		}
	}
	return Outcome{Correct: correct, View: s.view()}, nil
}

func (s *Session) nextPrompt() {
	p, err := s.prompts.Next()
	if err != nil {
		s.log.Error("draw next prompt", zap.Error(err))
		return
	}
	_, next, err := engine.Apply(s.state, engine.Command{Type: engine.CmdSetPrompt, Prompt: p})
	if err != nil {
		s.log.Error("set next prompt", zap.Error(err))
		return
	}
	s.state = next
}

func (s *Session) handleExpire() {
	events, next, err := engine.Apply(s.state, engine.Command{Type: engine.CmdExpire})
	if err != nil {
		s.log.Warn("expiry ignored", zap.Error(err))
		return
	}
	s.state = next
	if !engine.ContainsEvent(events, engine.EvtTimerExpired) {
		return
	}
	s.observer.OnExpire()
	s.broadcast(UpdateExpired)
	if engine.ContainsEvent(events, engine.EvtGameOver) {
		s.finish()
	}
}

// finish runs once per session: it stops the clock, ranks and saves the
// score, and publishes the result.
func (s *Session) finish() {
	if s.result != nil {
		return
	}
	s.clock.Stop()

	p := s.state.Player
	res := Result{
		Player:          p,
		Tier:            s.profile.Tier,
		Reason:          s.state.Reason,
		RoundsCompleted: p.Round - 1,
	}
	if s.scores != nil {
		// Rank and high-score status are taken before the save so the new
		// entry is not compared against itself.
		res.NewHighScore = s.scores.IsNewHighScore(p.Name, p.Score)
		res.Rank = s.scores.PlayerRank(p.Name, p.Score)

		ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), saveTimeout)
		res.SaveErr = s.scores.SaveScore(ctx, p.Name, p.Score)
		cancel()
		if res.SaveErr != nil {
			s.log.Warn("score kept in memory only", zap.Error(res.SaveErr))
		}
		res.Top = s.scores.TopScores(s.topN)
	}
	s.result = &res

	s.log.Info("game over",
		zap.String("reason", string(res.Reason)),
		zap.Int("score", p.Score),
		zap.Int("round", p.Round),
		zap.Int("rank", res.Rank))
	s.observer.OnGameOver(res)
	s.broadcast(UpdateGameOver)
	close(s.done)
}

func (s *Session) view() View {
	v := View{
		ID:           s.id,
		Tier:         s.profile.Tier,
		Phase:        s.state.Phase,
		Player:       s.state.Player,
		Prompt:       s.state.Prompt,
		Remaining:    s.clock.Remaining(),
		TickInterval: s.clock.Interval(),
		Escalations:  s.state.Escalations,
	}
	if s.result != nil {
		r := *s.result
		v.Result = &r
	}
	return v
}

func (s *Session) shutdown() {
	s.clock.Stop()
	for id, ch := range s.clients {
		close(ch) // Tell client no more updates
		delete(s.clients, id)
	}
	s.cancel()
}

func (s *Session) broadcast(kind UpdateKind) {
	if len(s.clients) == 0 {
		return
	}
	s.version++
	u := Update{Version: s.version, Kind: kind, View: s.view()}
	for id, ch := range s.clients {
		s.send(id, ch, u)
	}
}

func (s *Session) send(id string, ch chan Update, u Update) {
	select {
	case ch <- u:
		//ok
	default:
		// Client is slow/full - drop them.
		close(ch)
		delete(s.clients, id)
	}
}

// Expose the inbox so tests or the ws layer can send messages.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) ID() string { return s.id }

// Done is closed once the game is over and the result is available.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) Start(ctx context.Context) error {
	reply := make(chan error, 1)
	if err := s.post(ctx, Start{Reply: reply}); err != nil {
		return err
	}
	return await(ctx, s.ctx, reply)
}

func (s *Session) Submit(ctx context.Context, text string) (Outcome, error) {
	reply := make(chan SubmitReply, 1)
	if err := s.post(ctx, Submit{Text: text, Reply: reply}); err != nil {
		return Outcome{}, err
	}
	select {
	case r := <-reply:
		return r.Outcome, r.Err
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	case <-s.ctx.Done():
		return Outcome{}, ErrClosed
	}
}

func (s *Session) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := s.post(ctx, GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-s.ctx.Done():
		return View{}, ErrClosed
	}
}

// Result blocks until the game is over.
func (s *Session) Result(ctx context.Context) (Result, error) {
	select {
	case <-s.done:
		return *s.result, nil
	default:
	}
	select {
	case <-s.done:
		return *s.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-s.ctx.Done():
		return Result{}, ErrClosed
	}
}

// CloseIfIdle closes a session that was never started and reports whether
// it did. A session that is already closed counts as closed.
func (s *Session) CloseIfIdle(ctx context.Context) (bool, error) {
	reply := make(chan bool, 1)
	if err := s.post(ctx, CloseIfIdle{Reply: reply}); err != nil {
		if errors.Is(err, ErrClosed) {
			return true, nil
		}
		return false, err
	}
	select {
	case idle := <-reply:
		return idle, nil
	case <-ctx.Done():
		return false, ctx.Err()
	case <-s.ctx.Done():
		return true, nil
	}
}

func (s *Session) Close() {
	select {
	case s.inbox <- Shutdown{}:
	case <-s.ctx.Done():
	}
}

func (s *Session) post(ctx context.Context, m Msg) error {
	select {
	case s.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return ErrClosed
	}
}

func await(ctx, sessionCtx context.Context, reply <-chan error) error {
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-sessionCtx.Done():
		return ErrClosed
	}
}
