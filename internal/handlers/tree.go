// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"curator/internal/engine"
	"curator/internal/models"
	"curator/internal/progress"
)

type summaryResponse struct {
	ContainerID uuid.UUID       `json:"container_id"`
	Summary     progress.Rollup `json:"summary"`
	Display     int             `json:"display"`
}

type progressRequest struct {
	Progress *float64 `json:"progress" validate:"required,min=0,max=100"`
}

// ListContainers returns the actor's containers in order.
func (a *API) ListContainers(w http.ResponseWriter, r *http.Request) {
	containers, err := a.nodes.ListContainers(r.Context(), actorID(r))
	if err != nil {
		writeStoreError(w, "list containers", err)
		return
	}
	if containers == nil {
		containers = []models.Container{}
	}
	writeJSON(w, http.StatusOK, containers)
}

// container resolves the {id} parameter to a container, writing the error
// response when it is not one.
func (a *API) container(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return uuid.Nil, false
	}
	ref, err := a.nodes.Locate(r.Context(), id)
	if err != nil {
		writeStoreError(w, "locate container", err)
		return uuid.Nil, false
	}
	if ref.Kind != models.KindContainer {
		writeError(w, http.StatusBadRequest, string(engine.FailureValidation), "id is not a container")
		return uuid.Nil, false
	}
	return id, true
}

// Tree returns the rendered hierarchy of a container with the actor's
// progress rollups.
func (a *API) Tree(w http.ResponseWriter, r *http.Request) {
	id, ok := a.container(w, r)
	if !ok {
		return
	}
	snap, err := a.catalog.Snapshot(r.Context(), id, actorID(r))
	if err != nil {
		writeStoreError(w, "build tree", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Summary returns the flat completion average over every viewable item in
// a container.
func (a *API) Summary(w http.ResponseWriter, r *http.Request) {
	id, ok := a.container(w, r)
	if !ok {
		return
	}
	snap, err := a.catalog.Snapshot(r.Context(), id, actorID(r))
	if err != nil {
		writeStoreError(w, "build summary", err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		ContainerID: id,
		Summary:     snap.Summary,
		Display:     progress.Display(snap.Summary.Percentage),
	})
}

// RecordProgress stores the actor's progress on one content item.
func (a *API) RecordProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "contentID")
	if !ok {
		return
	}
	var req progressRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := a.catalog.RecordProgress(r.Context(), actorID(r), id, *req.Progress)
	if err != nil {
		writeStoreError(w, "record progress", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
