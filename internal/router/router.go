// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up the HTTP routes and middleware chains of the
// curator API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"curator/internal/handlers"
	"curator/internal/middleware"
	"curator/internal/session"
)

// Options carries the collaborators the router wires together.
type Options struct {
	Sessions *session.Store
	API      *handlers.API
	// LoginLimiter rate-limits login attempts per client IP. Optional.
	LoginLimiter *middleware.RateLimiter
	// Secure marks cookies Secure; set behind TLS.
	Secure bool
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxy bool
}

// New creates the configured chi router.
func New(opts Options) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	if opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)

	// Operational endpoints: no session, no CSRF.
	r.Get("/health", healthHandler)
	r.Handle("/metrics", promhttp.Handler())

	api := opts.API
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(middleware.LoadSession(opts.Sessions))
		r.Use(middleware.NewCSRF(opts.Secure))

		r.Group(func(r chi.Router) {
			if opts.LoginLimiter != nil {
				r.Use(opts.LoginLimiter.Middleware)
			}
			r.Post("/login", api.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Post("/logout", api.Logout)
			r.Get("/me", api.Me)

			r.Route("/containers", func(r chi.Router) {
				r.Get("/", api.ListContainers)
				r.Post("/reorder", api.ReorderContainers)
				r.Get("/{id}/tree", api.Tree)
				r.Get("/{id}/summary", api.Summary)
			})

			r.Post("/scopes/{id}/reorder", api.ReorderScope)

			r.Route("/nodes/{id}", func(r chi.Router) {
				r.Post("/move", api.Move)
				r.Delete("/", api.DeleteNode)
			})

			r.Put("/progress/{contentID}", api.RecordProgress)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "not_found", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "validation", "method not allowed")
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
