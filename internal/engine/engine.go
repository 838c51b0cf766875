// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package engine applies sibling reorders, reparenting moves and deletes to
// the hierarchy. Every operation validates its input, resolves ids and
// checks that the actor owns the affected top-level containers before any
// write, then commits in a single store transaction. Results are returned
// as structured values; concurrent writers are last-write-wins.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/google/uuid"

	"curator/internal/metrics"
	"curator/internal/models"
	"curator/internal/store"
)

// MaxOrder is the largest accepted sibling order.
const MaxOrder = 1_000_000

// ReorderItem assigns a new order to one sibling.
type ReorderItem struct {
	ID    uuid.UUID `json:"id"`
	Order int       `json:"order"`
}

// Store is the subset of the entity store the engine writes through.
type Store interface {
	Locate(ctx context.Context, id uuid.UUID) (models.NodeRef, error)
	Children(ctx context.Context, parent models.NodeRef) ([]models.NodeRef, error)
	IsDescendant(ctx context.Context, kind models.Kind, ancestorID, nodeID uuid.UUID) (bool, error)
	ApplyReorder(ctx context.Context, updates []models.OrderUpdate) error
	ApplyMove(ctx context.Context, plan models.MovePlan) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Invalidator drops cached views of the given containers.
type Invalidator interface {
	Invalidate(ctx context.Context, containerIDs ...uuid.UUID) error
}

// Engine is the reorder/move engine.
type Engine struct {
	store Store
	cache Invalidator
}

// New creates an Engine. cache may be nil.
func New(s Store, cache Invalidator) *Engine {
	return &Engine{store: s, cache: cache}
}

// Reorder rewrites the order of a batch of siblings under scopeID. A
// uuid.Nil scope stands for the actor's own list of containers. Every item
// must be a current tree child of the scope; the batch is all or nothing.
func (e *Engine) Reorder(ctx context.Context, actorID, scopeID uuid.UUID, items []ReorderItem) Result {
	return e.run(ctx, "reorder", func() ([]uuid.UUID, error) {
		return e.reorder(ctx, actorID, scopeID, items)
	})
}

// Move reparents nodeID under newParentID at position newOrder among its
// new siblings. A nil parent moves a container within the actor's list.
// Moving within the current parent degrades to a reorder.
func (e *Engine) Move(ctx context.Context, actorID, nodeID uuid.UUID, newParentID *uuid.UUID, newOrder int) Result {
	return e.run(ctx, "move", func() ([]uuid.UUID, error) {
		return e.move(ctx, actorID, nodeID, newParentID, newOrder)
	})
}

// Delete removes a node with its structural and edge descendants.
func (e *Engine) Delete(ctx context.Context, actorID, nodeID uuid.UUID) Result {
	return e.run(ctx, "delete", func() ([]uuid.UUID, error) {
		if err := validateIDs(actorID, nodeID); err != nil {
			return nil, err
		}
		node, err := e.locate(ctx, nodeID)
		if err != nil {
			return nil, err
		}
		if err := authorize(actorID, node); err != nil {
			return nil, err
		}
		if err := e.store.Delete(ctx, nodeID); err != nil {
			return nil, storeErr(nodeID, err)
		}
		return []uuid.UUID{node.ContainerID}, nil
	})
}

// run executes op, converts its outcome into a Result, invalidates the
// containers it touched and records the outcome.
func (e *Engine) run(ctx context.Context, op string, fn func() ([]uuid.UUID, error)) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("engine panic", "op", op, "panic", r, "stack", string(debug.Stack()))
			res = fail(fmt.Errorf("%s: panic: %v", op, r))
		}
		metrics.Mutations.WithLabelValues(op, metricResult(res)).Inc()
	}()

	touched, err := fn()
	if err != nil {
		res = fail(err)
		if res.Failure.Kind == FailureInternal {
			slog.Error("mutation failed", "op", op, "error", err)
		} else {
			slog.Debug("mutation rejected", "op", op, "kind", res.Failure.Kind, "error", err)
		}
		return res
	}

	if e.cache != nil && len(touched) > 0 {
		if err := e.cache.Invalidate(ctx, touched...); err != nil {
			slog.Error("tree cache invalidation failed", "op", op, "error", err)
		}
	}
	return ok()
}

func (e *Engine) reorder(ctx context.Context, actorID, scopeID uuid.UUID, items []ReorderItem) ([]uuid.UUID, error) {
	if err := validateIDs(actorID); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ValidationError{Field: "items", Reason: "must not be empty"}
	}
	seen := make(map[uuid.UUID]bool, len(items))
	for i, it := range items {
		field := fmt.Sprintf("items[%d]", i)
		if it.ID == uuid.Nil {
			return nil, ValidationError{Field: field + ".id", Reason: "must not be nil"}
		}
		if seen[it.ID] {
			return nil, ValidationError{Field: field + ".id", Reason: "duplicate id " + it.ID.String()}
		}
		seen[it.ID] = true
		if err := validateOrder(field+".order", it.Order); err != nil {
			return nil, err
		}
	}

	scope := models.NodeRef{OwnerID: actorID}
	if scopeID != uuid.Nil {
		var err error
		if scope, err = e.locate(ctx, scopeID); err != nil {
			return nil, err
		}
		if err := authorize(actorID, scope); err != nil {
			return nil, err
		}
	}

	children, err := e.store.Children(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("load scope children: %w", err)
	}
	byID := make(map[uuid.UUID]models.NodeRef, len(children))
	for _, c := range children {
		byID[c.ID] = c
	}

	updates := make([]models.OrderUpdate, 0, len(items))
	for _, it := range items {
		ref, ok := byID[it.ID]
		if !ok {
			return nil, e.outsideScope(ctx, actorID, it.ID)
		}
		updates = append(updates, models.OrderUpdate{ID: it.ID, Kind: ref.Kind, Order: it.Order})
	}

	if err := e.store.ApplyReorder(ctx, updates); err != nil {
		return nil, storeErr(scopeID, err)
	}
	if scope.IsZero() {
		return nil, nil
	}
	return []uuid.UUID{scope.ContainerID}, nil
}

// outsideScope explains why id is not a child of the scope: it does not
// exist, belongs to someone else or simply lives elsewhere.
func (e *Engine) outsideScope(ctx context.Context, actorID, id uuid.UUID) error {
	ref, err := e.locate(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(actorID, ref); err != nil {
		return err
	}
	return ValidationError{Field: "items", Reason: fmt.Sprintf("%s is not a child of the scope", id)}
}

func (e *Engine) move(ctx context.Context, actorID, nodeID uuid.UUID, newParentID *uuid.UUID, newOrder int) ([]uuid.UUID, error) {
	if err := validateIDs(actorID, nodeID); err != nil {
		return nil, err
	}
	if newParentID != nil && *newParentID == uuid.Nil {
		return nil, ValidationError{Field: "parent_id", Reason: "must be null or a valid id"}
	}
	if err := validateOrder("order", newOrder); err != nil {
		return nil, err
	}

	node, err := e.locate(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	parent := models.NodeRef{OwnerID: actorID}
	if newParentID != nil {
		if parent, err = e.locate(ctx, *newParentID); err != nil {
			return nil, err
		}
	}
	if err := authorize(actorID, node); err != nil {
		return nil, err
	}
	if !parent.IsZero() {
		if err := authorize(actorID, parent); err != nil {
			return nil, err
		}
	}
	if err := e.checkPlacement(ctx, node, parent); err != nil {
		return nil, err
	}

	siblings, err := e.store.Children(ctx, parent)
	if err != nil {
		return nil, fmt.Errorf("load destination children: %w", err)
	}
	orders := insertAt(siblings, node, newOrder)

	// Reordering the actor's container list changes no container's tree.
	var touched []uuid.UUID
	if !parent.IsZero() {
		touched = append(touched, node.ContainerID)
		if parent.ContainerID != node.ContainerID {
			touched = append(touched, parent.ContainerID)
		}
	}

	if sameParent(node, parent) {
		if err := e.store.ApplyReorder(ctx, orders); err != nil {
			return nil, storeErr(nodeID, err)
		}
		return touched, nil
	}

	plan := models.MovePlan{Node: node, NewParent: parent, Orders: orders}
	if err := e.store.ApplyMove(ctx, plan); err != nil {
		return nil, storeErr(nodeID, err)
	}
	slog.Info("node moved", "node_id", nodeID, "kind", node.Kind, "parent_id", parent.ID, "order", newOrder)
	return touched, nil
}

// checkPlacement rejects illegal parent kinds and cycles.
func (e *Engine) checkPlacement(ctx context.Context, node, parent models.NodeRef) error {
	if parent.IsZero() {
		if node.Kind != models.KindContainer {
			return ValidationError{Field: "parent_id", Reason: fmt.Sprintf("a %s needs a parent", node.Kind)}
		}
		return nil
	}
	if !parent.Kind.AcceptsChild(node.Kind) {
		return ValidationError{Field: "parent_id", Reason: fmt.Sprintf("a %s cannot hold a %s", parent.Kind, node.Kind)}
	}
	if parent.Kind != node.Kind {
		return nil
	}
	if parent.ID == node.ID {
		return ValidationError{Field: "parent_id", Reason: "a node cannot be its own parent"}
	}
	cycle, err := e.store.IsDescendant(ctx, node.Kind, node.ID, parent.ID)
	if err != nil {
		return fmt.Errorf("cycle check: %w", err)
	}
	if cycle {
		return ValidationError{Field: "parent_id", Reason: "cannot move a node under its own descendant"}
	}
	return nil
}

func (e *Engine) locate(ctx context.Context, id uuid.UUID) (models.NodeRef, error) {
	ref, err := e.store.Locate(ctx, id)
	if err != nil {
		return models.NodeRef{}, storeErr(id, err)
	}
	return ref, nil
}

func sameParent(node, parent models.NodeRef) bool {
	if parent.IsZero() {
		return node.Kind == models.KindContainer
	}
	return node.ParentID == parent.ID
}

// insertAt renumbers siblings 0..n with node placed at index pos, clamped to
// the list bounds.
func insertAt(siblings []models.NodeRef, node models.NodeRef, pos int) []models.OrderUpdate {
	rest := make([]models.NodeRef, 0, len(siblings))
	for _, s := range siblings {
		if s.ID != node.ID {
			rest = append(rest, s)
		}
	}
	pos = max(0, min(pos, len(rest)))

	out := make([]models.OrderUpdate, 0, len(rest)+1)
	for i, s := range rest {
		if i == pos {
			out = append(out, models.OrderUpdate{ID: node.ID, Kind: node.Kind, Order: len(out)})
		}
		out = append(out, models.OrderUpdate{ID: s.ID, Kind: s.Kind, Order: len(out)})
	}
	if pos == len(rest) {
		out = append(out, models.OrderUpdate{ID: node.ID, Kind: node.Kind, Order: len(out)})
	}
	return out
}

func validateIDs(ids ...uuid.UUID) error {
	for _, id := range ids {
		if id == uuid.Nil {
			return ValidationError{Field: "id", Reason: "must not be nil"}
		}
	}
	return nil
}

func validateOrder(field string, order int) error {
	if order < 0 || order > MaxOrder {
		return ValidationError{Field: field, Reason: fmt.Sprintf("must be between 0 and %d", MaxOrder)}
	}
	return nil
}

// authorize checks that actor owns the top-level container of ref.
func authorize(actorID uuid.UUID, ref models.NodeRef) error {
	if ref.OwnerID != actorID {
		return AuthorizationError{ActorID: actorID, OwnerID: ref.OwnerID, NodeID: ref.ID}
	}
	return nil
}

// storeErr maps store sentinels onto the engine taxonomy.
func storeErr(id uuid.UUID, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return NotFoundError{ID: id}
	case errors.Is(err, store.ErrCycle), errors.Is(err, store.ErrEdgeExists):
		return ValidationError{Field: "parent_id", Reason: err.Error()}
	}
	return err
}
