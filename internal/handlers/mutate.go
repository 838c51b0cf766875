// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"curator/internal/engine"
)

type reorderItem struct {
	ID    uuid.UUID `json:"id" validate:"required"`
	Order *int      `json:"order" validate:"required,min=0,max=1000000"`
}

type reorderRequest struct {
	Items []reorderItem `json:"items" validate:"required,min=1,max=10000,dive"`
}

func (req reorderRequest) engineItems() []engine.ReorderItem {
	items := make([]engine.ReorderItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = engine.ReorderItem{ID: it.ID, Order: *it.Order}
	}
	return items
}

type moveRequest struct {
	ParentID *uuid.UUID `json:"parent_id"`
	Order    int        `json:"order" validate:"min=0,max=1000000"`
}

// ReorderScope rewrites the order of children under the scope {id}.
func (a *API) ReorderScope(w http.ResponseWriter, r *http.Request) {
	scopeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	a.reorder(w, r, scopeID)
}

// ReorderContainers rewrites the order of the actor's containers.
func (a *API) ReorderContainers(w http.ResponseWriter, r *http.Request) {
	a.reorder(w, r, uuid.Nil)
}

func (a *API) reorder(w http.ResponseWriter, r *http.Request, scopeID uuid.UUID) {
	var req reorderRequest
	if !decode(w, r, &req) {
		return
	}
	writeResult(w, a.engine.Reorder(r.Context(), actorID(r), scopeID, req.engineItems()))
}

// Move reparents node {id}. A null parent_id moves a container within the
// actor's list.
func (a *API) Move(w http.ResponseWriter, r *http.Request) {
	nodeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req moveRequest
	if !decode(w, r, &req) {
		return
	}
	writeResult(w, a.engine.Move(r.Context(), actorID(r), nodeID, req.ParentID, req.Order))
}

// DeleteNode removes node {id} with all its descendants.
func (a *API) DeleteNode(w http.ResponseWriter, r *http.Request) {
	nodeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	writeResult(w, a.engine.Delete(r.Context(), actorID(r), nodeID))
}
