package hub

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/typerush-backend/internal/difficulty"
	"github.com/DoyleJ11/typerush-backend/internal/platform/delay"
	"github.com/DoyleJ11/typerush-backend/internal/session"
)

var ErrClosed = errors.New("hub closed")

// DefaultRetention is how long a finished session stays readable, and how
// long a session may sit unstarted before it is dropped.
const DefaultRetention = 10 * time.Minute

const idleCheckTimeout = 5 * time.Second

type HubMsg interface{ isHubMsg() }

type CreateSession struct {
	PlayerName string
	Tier       difficulty.Tier
	Reply      chan *session.Session
}

type GetSession struct {
	ID    string
	Reply chan *session.Session
}

type RemoveSession struct {
	ID string
}

type CountSessions struct {
	Reply chan int
}

type ShutdownHub struct{}

func (CreateSession) isHubMsg() {}
func (GetSession) isHubMsg()    {}
func (RemoveSession) isHubMsg() {}
func (CountSessions) isHubMsg() {}
func (ShutdownHub) isHubMsg()   {}

type Options struct {
	// Template is copied into every new session. ID, PlayerName and
	// Profile are filled in per session.
	Template  session.Config
	Retention time.Duration
	Logger    *zap.Logger
}

type Hub struct {
	inbox     chan HubMsg
	sessions  map[string]*session.Session
	template  session.Config
	retention time.Duration
	log       *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewHub(parent context.Context, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	h := &Hub{
		inbox:     make(chan HubMsg, 64),
		sessions:  make(map[string]*session.Session),
		template:  opts.Template,
		retention: opts.Retention,
		log:       opts.Logger,
		ctx:       ctx,
		cancel:    cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the hub has shut down.
func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

// Create registers a new session. It gives up when ctx ends or the hub
// shuts down.
func (h *Hub) Create(ctx context.Context, name string, tier difficulty.Tier) (*session.Session, error) {
	reply := make(chan *session.Session, 1)
	return h.request(ctx, CreateSession{PlayerName: name, Tier: tier, Reply: reply}, reply)
}

// Get looks a session up. A nil session with a nil error means no such id.
func (h *Hub) Get(ctx context.Context, id string) (*session.Session, error) {
	reply := make(chan *session.Session, 1)
	return h.request(ctx, GetSession{ID: id, Reply: reply}, reply)
}

func (h *Hub) request(ctx context.Context, m HubMsg, reply <-chan *session.Session) (*session.Session, error) {
	select {
	case h.inbox <- m:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.ctx.Done():
		return nil, ErrClosed
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.ctx.Done():
		return nil, ErrClosed
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateSession:
				msg.Reply <- h.create(msg.PlayerName, msg.Tier)

			case GetSession:
				msg.Reply <- h.sessions[msg.ID] // May be nil

			case RemoveSession:
				h.remove(msg.ID)

			case CountSessions:
				msg.Reply <- len(h.sessions)

			case ShutdownHub:
				h.shutdown()
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) create(name string, tier difficulty.Tier) *session.Session {
	cfg := h.template
	cfg.ID = uuid.NewString()
	cfg.PlayerName = name
	cfg.Profile = difficulty.ProfileFor(tier)
	cfg.Prompts = nil // each session draws from its own source
	if cfg.Logger == nil {
		cfg.Logger = h.log
	}

	s := session.New(h.ctx, cfg)
	h.sessions[cfg.ID] = s
	go h.watch(s)
	h.reapIfIdle(s)

	h.log.Info("session created",
		zap.String("session", cfg.ID),
		zap.String("player", name),
		zap.String("tier", cfg.Profile.Tier.String()))
	return s
}

// watch schedules removal once the game is over.
func (h *Hub) watch(s *session.Session) {
	select {
	case <-s.Done():
	case <-h.ctx.Done():
		return
	}
	id := s.ID()
	delay.After(h.retention, func() {
		select {
		case h.inbox <- RemoveSession{ID: id}:
		case <-h.ctx.Done():
		}
	})
}

// reapIfIdle removes s after the retention period if it was never started.
func (h *Hub) reapIfIdle(s *session.Session) {
	id := s.ID()
	delay.After(h.retention, func() {
		ctx, cancel := context.WithTimeout(h.ctx, idleCheckTimeout)
		defer cancel()
		closed, err := s.CloseIfIdle(ctx)
		if err != nil || !closed {
			return
		}
		select {
		case h.inbox <- RemoveSession{ID: id}:
		case <-h.ctx.Done():
		}
	})
}

func (h *Hub) remove(id string) {
	s := h.sessions[id]
	if s == nil {
		return
	}
	delete(h.sessions, id)
	s.Close()
	h.log.Debug("session removed", zap.String("session", id))
}

func (h *Hub) shutdown() {
	for id, s := range h.sessions {
		s.Close()
		delete(h.sessions, id)
	}
}
