package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/typerush-backend/internal/hub"
	"github.com/DoyleJ11/typerush-backend/internal/ws"
)

type Deps struct {
	Hub    *hub.Hub
	Board  Rankings
	Logger *zap.Logger
	WS     ws.Options
}

func SetupRoutes(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.WS.Logger == nil {
		d.WS.Logger = d.Logger
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(d.Logger))

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/leaderboard", Leaderboard(d.Board))
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", CreateSession(d.Hub))
		r.Get("/{id}", GetSession(d.Hub))
		r.Post("/{id}/start", StartSession(d.Hub))
		r.Post("/{id}/submit", SubmitAnswer(d.Hub))
	})
	r.Get("/ws", ws.Handler(d.Hub, d.WS))
	return r
}
