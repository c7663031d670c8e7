package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/typerush-backend/internal/engine"
	"github.com/DoyleJ11/typerush-backend/internal/hub"
	"github.com/DoyleJ11/typerush-backend/internal/platform/delay"
	"github.com/DoyleJ11/typerush-backend/internal/session"
	"github.com/DoyleJ11/typerush-backend/internal/types"
	wire "github.com/DoyleJ11/typerush-backend/pkg/types"
)

// FeedbackTTL is how long a correct/incorrect line stays up before the
// client is told to clear it.
const FeedbackTTL = 3 * time.Second

const (
	writeTimeout = 3 * time.Second
	readTimeout  = 5 * time.Minute
	callTimeout  = 5 * time.Second
)

type Options struct {
	// OriginPatterns loosens the same-origin check, e.g. for a dev frontend.
	OriginPatterns []string
	FeedbackTTL    time.Duration
	Logger         *zap.Logger
}

func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	if opts.FeedbackTTL <= 0 {
		opts.FeedbackTTL = FeedbackTTL
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("session")
		if id == "" {
			http.Error(w, "missing session", http.StatusBadRequest)
			return
		}

		s, err := h.Get(r.Context(), id)
		if err != nil {
			http.Error(w, "server shutting down", http.StatusServiceUnavailable)
			return
		}
		if s == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			opts.Logger.Debug("websocket accept", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		log := opts.Logger.With(zap.String("session", id), zap.String("client", clientID))

		out := make(chan session.Update, 16)
		s.Inbox() <- session.Join{ClientID: clientID, Outbox: out}
		defer func() {
			select {
			case s.Inbox() <- session.Leave{ClientID: clientID}:
			case <-s.Done():
			}
		}()

		c := &client{
			conn:    conn,
			updates: out,
			errs:    make(chan string, 4),
			cleared: make(chan struct{}, 1),
			ttl:     opts.FeedbackTTL,
			log:     log,
		}

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go c.writeLoop(writeCtx)

		c.readLoop(r.Context(), s)
	}
}

type client struct {
	conn    *websocket.Conn
	updates <-chan session.Update
	errs    chan string
	cleared chan struct{}
	ttl     time.Duration
	pending *delay.Handle
	log     *zap.Logger
}

func (c *client) writeLoop(ctx context.Context) {
	defer func() { c.pending.Cancel() }()
	for {
		var msg types.ServerMessage
		select {
		case <-ctx.Done():
			return

		case u, ok := <-c.updates:
			if !ok {
				// Session is gone or dropped us as a slow reader.
				_ = c.conn.Close(websocket.StatusGoingAway, "session closed")
				return
			}
			msg = types.FromUpdate(u)
			if u.Kind == session.UpdateCorrect || u.Kind == session.UpdateIncorrect {
				c.armFeedbackClear()
			}

		case <-c.cleared:
			msg = types.ServerMessage{Type: wire.MsgFeedbackCleared}

		case e := <-c.errs:
			msg = types.ServerMessage{Type: wire.MsgError, Error: e}
		}

		if err := c.write(ctx, msg); err != nil {
			c.log.Debug("websocket write", zap.Error(err))
			return
		}
	}
}

// armFeedbackClear restarts the clear timer. Only the latest feedback
// line counts.
func (c *client) armFeedbackClear() {
	c.pending.Cancel()
	c.pending = delay.After(c.ttl, func() {
		select {
		case c.cleared <- struct{}{}:
		default:
		}
	})
}

func (c *client) write(ctx context.Context, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(wctx, websocket.MessageText, payload)
}

func (c *client) readLoop(ctx context.Context, s *session.Session) {
	for {
		rctx, cancel := context.WithTimeout(ctx, readTimeout)
		_, data, err := c.conn.Read(rctx)
		cancel()
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				c.log.Debug("websocket read", zap.Error(err))
			}
			return
		}

		var cm types.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			c.fail("bad json")
			continue
		}

		if err := dispatch(ctx, s, cm); err != nil {
			c.fail(errorText(err))
			if errors.Is(err, session.ErrClosed) {
				return
			}
		}
	}
}

var errUnknownType = errors.New("unknown type")

func dispatch(ctx context.Context, s *session.Session, cm types.ClientMessage) error {
	cctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	switch cm.Type {
	case wire.MsgStart:
		return s.Start(cctx)
	case wire.MsgSubmit:
		// Outcome reaches the client through the broadcast.
		_, err := s.Submit(cctx, cm.Text)
		return err
	default:
		return errUnknownType
	}
}

func errorText(err error) string {
	switch {
	case errors.Is(err, engine.ErrInvalidState):
		return "not allowed in the current phase"
	case errors.Is(err, session.ErrClosed):
		return "session closed"
	default:
		return strings.TrimSpace(err.Error())
	}
}

func (c *client) fail(text string) {
	select {
	case c.errs <- text:
	default:
		c.log.Debug("dropping error frame", zap.String("error", text))
	}
}
