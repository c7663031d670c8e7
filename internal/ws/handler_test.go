package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/typerush-backend/internal/difficulty"
	"github.com/DoyleJ11/typerush-backend/internal/engine"
	"github.com/DoyleJ11/typerush-backend/internal/hub"
	"github.com/DoyleJ11/typerush-backend/internal/prompt"
	"github.com/DoyleJ11/typerush-backend/internal/session"
	"github.com/DoyleJ11/typerush-backend/internal/types"
	wire "github.com/DoyleJ11/typerush-backend/pkg/types"
)

const line = "Pack my box with five dozen liquor jugs."

func setup(t *testing.T) (*hub.Hub, *httptest.Server) {
	t.Helper()
	fsys := fstest.MapFS{"easy_sentences.txt": {Data: []byte(line + "\n")}}
	h := hub.NewHub(context.Background(), hub.Options{
		Template: session.Config{
			Loader: prompt.NewDirLoader(fsys),
			Rules:  engine.Rules{InitialLives: 2, PointsPerCorrect: 10, BonusSeconds: 5, EscalateEvery: 5},
		},
		Retention: time.Hour,
	})
	srv := httptest.NewServer(Handler(h, Options{FeedbackTTL: 30 * time.Millisecond}))
	t.Cleanup(func() {
		srv.Close()
		h.Inbox() <- hub.ShutdownHub{}
	})
	return h, srv
}

func newSession(t *testing.T, h *hub.Hub) *session.Session {
	t.Helper()
	reply := make(chan *session.Session, 1)
	h.Inbox() <- hub.CreateSession{PlayerName: "ana", Tier: difficulty.TierEasy, Reply: reply}
	return <-reply
}

func dial(t *testing.T, srv *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?session=" + id
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg types.ClientMessage) {
	t.Helper()
	payload, err := json.Marshal(msg)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, payload))
}

// next reads until a message of the wanted type arrives. Ticks are skipped.
func next(t *testing.T, conn *websocket.Conn, wantType, wantEvent string) types.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err, "waiting for %s/%s", wantType, wantEvent)
		var msg types.ServerMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg.Type == wantType && (wantEvent == "" || msg.Event == wantEvent) {
			return msg
		}
	}
}

func TestHandler_MissingSession(t *testing.T) {
	_, srv := setup(t)
	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_UnknownSession(t *testing.T) {
	_, srv := setup(t)
	resp, err := http.Get(srv.URL + "/?session=missing")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_PlayThroughSocket(t *testing.T) {
	h, srv := setup(t)
	s := newSession(t, h)
	conn := dial(t, srv, s.ID())

	joined := next(t, conn, wire.MsgStateSnapshot, "joined")
	require.Equal(t, "idle", joined.State.Phase)

	send(t, conn, types.ClientMessage{Type: wire.MsgStart})
	started := next(t, conn, wire.MsgStateSnapshot, "started")
	require.Equal(t, line, started.State.Prompt)

	send(t, conn, types.ClientMessage{Type: wire.MsgSubmit, Text: "  " + line + "  "})
	correct := next(t, conn, wire.MsgStateSnapshot, "correct")
	require.Equal(t, 10, correct.State.Player.Score)
	next(t, conn, wire.MsgFeedbackCleared, "")

	send(t, conn, types.ClientMessage{Type: wire.MsgSubmit, Text: "nope"})
	next(t, conn, wire.MsgStateSnapshot, "incorrect")
	send(t, conn, types.ClientMessage{Type: wire.MsgSubmit, Text: "nope again"})

	over := next(t, conn, wire.MsgGameOver, "")
	require.NotNil(t, over.Result)
	require.Equal(t, "lives_exhausted", over.Result.Reason)
	require.Equal(t, 10, over.Result.FinalScore)
	require.Equal(t, 1, over.Result.RoundsCompleted)
}

func TestHandler_ErrorFrames(t *testing.T) {
	h, srv := setup(t)
	s := newSession(t, h)
	conn := dial(t, srv, s.ID())
	next(t, conn, wire.MsgStateSnapshot, "joined")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("{")))
	require.Equal(t, "bad json", next(t, conn, wire.MsgError, "").Error)

	send(t, conn, types.ClientMessage{Type: "Dance"})
	require.Equal(t, "unknown type", next(t, conn, wire.MsgError, "").Error)

	send(t, conn, types.ClientMessage{Type: wire.MsgSubmit, Text: "early"})
	require.Equal(t, "not allowed in the current phase", next(t, conn, wire.MsgError, "").Error)
}
