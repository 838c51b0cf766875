// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the JSON API: the session boundary, tree and
// summary reads, progress recording and the reorder, move and delete
// mutations. Handlers decode and validate the request, resolve the actor
// from the session and delegate; they hold no hierarchy logic themselves.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"curator/internal/catalog"
	"curator/internal/engine"
	"curator/internal/middleware"
	"curator/internal/models"
	"curator/internal/session"
	"curator/internal/store"
)

// maxBodyBytes caps request bodies. A reorder batch of a few thousand items
// fits comfortably.
const maxBodyBytes = 1 << 20

// Sessions creates and destroys login sessions.
type Sessions interface {
	Create(ctx context.Context, w http.ResponseWriter, data *session.Data) (string, error)
	Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// Users looks up accounts for login.
type Users interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	CheckPassword(user *models.User, password string) bool
}

// Nodes resolves ids and lists an owner's containers.
type Nodes interface {
	Locate(ctx context.Context, id uuid.UUID) (models.NodeRef, error)
	ListContainers(ctx context.Context, ownerID uuid.UUID) ([]models.Container, error)
}

// Catalog serves tree snapshots and records progress.
type Catalog interface {
	Snapshot(ctx context.Context, containerID, userID uuid.UUID) (*catalog.Snapshot, error)
	RecordProgress(ctx context.Context, userID, contentID uuid.UUID, value float64) (*models.Progress, error)
}

// Mutator applies hierarchy mutations.
type Mutator interface {
	Reorder(ctx context.Context, actorID, scopeID uuid.UUID, items []engine.ReorderItem) engine.Result
	Move(ctx context.Context, actorID, nodeID uuid.UUID, newParentID *uuid.UUID, newOrder int) engine.Result
	Delete(ctx context.Context, actorID, nodeID uuid.UUID) engine.Result
}

// API groups the JSON handlers.
type API struct {
	sessions Sessions
	users    Users
	nodes    Nodes
	catalog  Catalog
	engine   Mutator
}

// NewAPI creates the API handler group.
func NewAPI(sessions Sessions, users Users, nodes Nodes, catalog Catalog, engine Mutator) *API {
	return &API{
		sessions: sessions,
		users:    users,
		nodes:    nodes,
		catalog:  catalog,
		engine:   engine,
	}
}

// actorID returns the authenticated user. Routes using it sit behind
// middleware.RequireAuth.
func actorID(r *http.Request) uuid.UUID {
	if sess := middleware.SessionFromCtx(r.Context()); sess != nil {
		return sess.UserID
	}
	return uuid.Nil
}

// pathID parses a UUID URL parameter, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, string(engine.FailureValidation), fmt.Sprintf("%s: invalid id", name))
		return uuid.Nil, false
	}
	return id, true
}

// decode reads a JSON body into dst and validates it, writing a 400 on
// failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, string(engine.FailureValidation), "malformed request body")
		return false
	}
	if msg := validateRequest(dst); msg != "" {
		writeError(w, http.StatusBadRequest, string(engine.FailureValidation), msg)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	middleware.WriteJSON(w, status, v)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	middleware.WriteError(w, status, kind, message)
}

// failureStatus maps an engine failure kind onto an HTTP status.
func failureStatus(kind engine.FailureKind) int {
	switch kind {
	case engine.FailureValidation:
		return http.StatusBadRequest
	case engine.FailureUnauthorized:
		return http.StatusForbidden
	case engine.FailureNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// writeResult answers a mutation with 200 {"ok":true} or the mapped failure.
func writeResult(w http.ResponseWriter, res engine.Result) {
	if res.OK {
		writeJSON(w, http.StatusOK, res)
		return
	}
	if res.Failure.Kind == engine.FailureInternal {
		slog.Error("mutation failed", "error", res.Err())
	}
	writeError(w, failureStatus(res.Failure.Kind), string(res.Failure.Kind), res.Failure.Message)
}

// writeStoreError maps errors from the read and progress paths.
func writeStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, string(engine.FailureNotFound), "not found")
	case errors.Is(err, store.ErrNotViewable):
		writeError(w, http.StatusBadRequest, string(engine.FailureValidation), "content item is not viewable")
	case errors.Is(err, store.ErrOutOfRange):
		writeError(w, http.StatusBadRequest, string(engine.FailureValidation), "progress must be between 0 and 100")
	case errors.Is(err, catalog.ErrNotContent):
		writeError(w, http.StatusBadRequest, string(engine.FailureValidation), "progress is recorded on content items only")
	default:
		slog.Error(op+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, string(engine.FailureInternal), "internal error")
	}
}
