// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/gamebridge/internal/identity"
	"github.com/tomtom215/gamebridge/internal/middleware"
)

// NewRouter builds the HTTP surface:
//
//	/health/live, /health/ready       probes
//	/metrics                          Prometheus
//	/api/v1/...                       JSON API (identity from bearer token)
//	/ws/guest/{token}                 remote guest channel
//	/ws/observe?topic=                host-app event stream
func NewRouter(h *Handler, mw *ChiMiddleware) http.Handler {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	r.Get("/health/live", h.Live)
	r.Get("/health/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	authn := func(next http.Handler) http.Handler { return next }
	if h.jwt != nil {
		authn = identity.NewMiddleware(h.jwt).Optional
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.CORS())
		r.Use(mw.RateLimit())
		r.Use(authn)
		r.Use(middleware.Compression)

		if h.jwt != nil && !h.config.IsProduction() {
			r.With(mw.RateLimitStrict()).Post("/auth/token", h.IssueToken)
		}
		r.Get("/me", h.Me)
		r.Get("/me/scores", h.MyScores)
		if h.audit != nil {
			r.Get("/me/audit", h.MyAudit)
		}

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", h.ListSessions)
			r.With(mw.RateLimitStrict()).Post("/", h.CreateSession)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", h.GetSession)
				r.Put("/status", h.UpdateSessionStatus)
				r.Post("/join", h.JoinSession)
				r.Post("/leave", h.LeaveSession)
				r.Post("/start", h.StartGame)
				r.Get("/players", h.SessionPlayers)
				r.Put("/players/me", h.UpdatePlayerStatus)
			})
		})

		r.Route("/games/{gameID}", func(r chi.Router) {
			r.Get("/leaderboard", h.Leaderboard)
			r.Get("/rank", h.MyRank)
		})

		r.Route("/embeds", func(r chi.Router) {
			r.Get("/", h.ListEmbeds)
			r.With(mw.RateLimitStrict()).Post("/", h.CreateEmbed)
			r.Route("/{embedID}", func(r chi.Router) {
				r.Get("/", h.GetEmbed)
				r.Delete("/", h.DeleteEmbed)
				r.Post("/pause", h.PauseEmbed)
				r.Post("/resume", h.ResumeEmbed)
				r.Post("/restart", h.RestartEmbed)
			})
		})
	})

	r.Route("/ws", func(r chi.Router) {
		r.Use(mw.RateLimit())
		r.Get("/guest/{token}", h.ServeGuest)
		r.With(authn).Get("/observe", h.ServeObserver)
	})

	return r
}
