package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/typerush-backend/internal/difficulty"
	"github.com/DoyleJ11/typerush-backend/internal/engine"
	"github.com/DoyleJ11/typerush-backend/internal/hub"
	"github.com/DoyleJ11/typerush-backend/internal/leaderboard"
	"github.com/DoyleJ11/typerush-backend/internal/prompt"
	"github.com/DoyleJ11/typerush-backend/internal/session"
	"github.com/DoyleJ11/typerush-backend/internal/types"
	wire "github.com/DoyleJ11/typerush-backend/pkg/types"
)

const (
	defaultLimit = 10
	maxLimit     = 100
	callTimeout  = 5 * time.Second
)

// Rankings is the read side of the leaderboard.
type Rankings interface {
	TopScores(n int) []leaderboard.Entry
}

type createSessionRequest struct {
	PlayerName string `json:"player_name"`
	Difficulty string `json:"difficulty"`
}

type submitRequest struct {
	Text string `json:"text"`
}

type sessionResponse struct {
	SessionID string         `json:"session_id"`
	Correct   *bool          `json:"correct,omitempty"`
	State     wire.Snapshot  `json:"state"`
	Result    *wire.GameOver `json:"result,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func CreateSession(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		name := strings.TrimSpace(req.PlayerName)
		if name == "" {
			writeError(w, http.StatusBadRequest, "player_name is required")
			return
		}
		tier := difficulty.TierMedium
		if req.Difficulty != "" {
			t, err := difficulty.ParseTier(req.Difficulty)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			tier = t
		}

		s, err := h.Create(r.Context(), name, tier)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		if s == nil {
			writeError(w, http.StatusInternalServerError, "failed to create session")
			return
		}

		writeSession(w, r, s, http.StatusCreated, nil)
	}
}

func GetSession(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := lookup(w, r, h)
		if s == nil {
			return
		}
		writeSession(w, r, s, http.StatusOK, nil)
	}
}

func StartSession(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := lookup(w, r, h)
		if s == nil {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), callTimeout)
		defer cancel()
		if err := s.Start(ctx); err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeSession(w, r, s, http.StatusOK, nil)
	}
}

func SubmitAnswer(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := lookup(w, r, h)
		if s == nil {
			return
		}
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), callTimeout)
		defer cancel()
		out, err := s.Submit(ctx, req.Text)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, toResponse(out.View, &out.Correct))
	}
}

func Leaderboard(board Rankings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = min(n, maxLimit)
		}
		writeJSON(w, http.StatusOK, struct {
			Scores []wire.ScoreRow `json:"scores"`
		}{Scores: types.ScoreRows(board.TopScores(limit))})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func lookup(w http.ResponseWriter, r *http.Request, h *hub.Hub) *session.Session {
	s, err := h.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return nil
	}
	if s == nil {
		writeError(w, http.StatusNotFound, "session not found")
	}
	return s
}

func writeSession(w http.ResponseWriter, r *http.Request, s *session.Session, status int, correct *bool) {
	ctx, cancel := context.WithTimeout(r.Context(), callTimeout)
	defer cancel()
	v, err := s.View(ctx)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, status, toResponse(v, correct))
}

func toResponse(v session.View, correct *bool) sessionResponse {
	resp := sessionResponse{SessionID: v.ID, Correct: correct, State: types.SnapshotFromView(v)}
	if v.Result != nil {
		res := types.GameOverFromResult(*v.Result)
		resp.Result = &res
	}
	return resp
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, session.ErrClosed):
		return http.StatusGone
	case errors.Is(err, hub.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, prompt.ErrEmptyCorpus):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// requestLogger logs one line per request.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("took", time.Since(start)))
		})
	}
}
