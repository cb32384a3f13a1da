package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Prajwal-k-tech/Battle-CP/internal/auth"
	"github.com/Prajwal-k-tech/Battle-CP/internal/middleware"
	"github.com/Prajwal-k-tech/Battle-CP/internal/service"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Matches        *service.MatchService
	Archive        *service.ArchiveService
	Hub            *Hub
	JWT            *auth.JWTManager
	AllowedOrigins []string
}

// NewRouter builds the HTTP and WebSocket routes.
func NewRouter(d Deps) http.Handler {
	matchHandler := NewMatchHandler(d.Matches, d.Archive, d.JWT)
	playerHandler := NewPlayerHandler(d.Archive)
	wsHandler := NewWSHandler(d.Hub, d.Matches, d.JWT, d.AllowedOrigins)

	r := chi.NewRouter()
	r.Use(middleware.Logger, middleware.Recover, middleware.CORS(d.AllowedOrigins), middleware.JSON)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"matches":     d.Matches.Registry().Len(),
			"connections": d.Hub.ConnectionCount(),
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/matches", matchHandler.CreateMatch)
		r.Post("/matches/{id}/tokens", matchHandler.IssueToken)
		r.With(auth.Middleware(d.JWT)).Get("/matches/{id}", matchHandler.GetMatch)
		r.Get("/contests/{contestId}/problems", matchHandler.ListProblems)
		r.Get("/players/{handle}/matches", playerHandler.ListMatches)
		r.Get("/players/{handle}/stats", playerHandler.GetStats)

		// WebSocket (auth via query param, not middleware)
		r.Get("/ws/{matchID}", wsHandler.ServeWS)
	})
	return r
}
