// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package treeview holds the interaction state of one rendered hierarchy:
// which folders are expanded, which row is selected and whether a drag is
// in progress. A drop is turned into a reorder or move through the engine,
// after which the view is rebuilt from the store and all state is reset.
package treeview

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"curator/internal/catalog"
	"curator/internal/engine"
	"curator/internal/hierarchy"
	"curator/internal/models"
	"curator/internal/progress"
)

// Loader builds a fresh view of a scope for a user.
type Loader interface {
	Load(ctx context.Context, scopeID, userID uuid.UUID) (*catalog.View, error)
}

// Mutator applies drops.
type Mutator interface {
	Reorder(ctx context.Context, actorID, scopeID uuid.UUID, items []engine.ReorderItem) engine.Result
	Move(ctx context.Context, actorID, nodeID uuid.UUID, newParentID *uuid.UUID, newOrder int) engine.Result
}

// DragState is the state of the drag gesture.
type DragState int

const (
	DragIdle DragState = iota
	DragActive
	DragDropped
	DragCancelled
)

func (d DragState) String() string {
	switch d {
	case DragActive:
		return "dragging"
	case DragDropped:
		return "dropped"
	case DragCancelled:
		return "cancelled"
	}
	return "idle"
}

// Row is one visible line of the flattened tree.
type Row struct {
	ID        uuid.UUID
	Kind      models.Kind
	Name      string
	Depth     int
	ParentID  uuid.UUID
	IsFolder  bool
	Expanded  bool
	Selected  bool
	Dragged   bool
	Viewable  bool
	Percent   int
	Completed bool
}

// Session is the interaction state over one scope. It is not safe for
// concurrent use.
type Session struct {
	loader  Loader
	mutator Mutator
	scopeID uuid.UUID
	actorID uuid.UUID

	view     *catalog.View
	expanded map[uuid.UUID]bool
	selected uuid.UUID
	drag     DragState
	dragID   uuid.UUID
}

// New creates a Session. Call Rebuild before reading rows.
func New(loader Loader, mutator Mutator, scopeID, actorID uuid.UUID) *Session {
	return &Session{
		loader:   loader,
		mutator:  mutator,
		scopeID:  scopeID,
		actorID:  actorID,
		expanded: make(map[uuid.UUID]bool),
	}
}

// Rebuild reloads the scope from the store and resets every interaction
// state: all folders collapse, the selection clears and any drag ends.
func (s *Session) Rebuild(ctx context.Context) error {
	view, err := s.loader.Load(ctx, s.scopeID, s.actorID)
	if err != nil {
		return fmt.Errorf("rebuild: %w", err)
	}
	s.view = view
	s.expanded = make(map[uuid.UUID]bool)
	s.selected = uuid.Nil
	s.drag = DragIdle
	s.dragID = uuid.Nil
	return nil
}

// View returns the current view, or nil before the first Rebuild.
func (s *Session) View() *catalog.View {
	return s.view
}

// Rows returns the visible rows: roots plus the children of expanded
// folders, each node once under its rendering parent.
func (s *Session) Rows() []Row {
	if s.view == nil {
		return nil
	}
	var rows []Row
	var walk func(items []*hierarchy.Item, depth int)
	walk = func(items []*hierarchy.Item, depth int) {
		for _, it := range items {
			r := s.view.Aggregator.Rollup(it.ID)
			rows = append(rows, Row{
				ID:        it.ID,
				Kind:      it.Kind,
				Name:      it.Name,
				Depth:     depth,
				ParentID:  it.Parent,
				IsFolder:  it.IsFolder,
				Expanded:  s.expanded[it.ID],
				Selected:  it.ID == s.selected,
				Dragged:   s.drag == DragActive && it.ID == s.dragID,
				Viewable:  it.Viewable,
				Percent:   progress.Display(r.Percentage),
				Completed: s.view.Aggregator.IsCompleted(it.ID),
			})
			if s.expanded[it.ID] {
				walk(s.view.Tree.RenderedChildren(it.ID), depth+1)
			}
		}
	}
	walk(s.view.Tree.Children(uuid.Nil), 0)
	return rows
}

func (s *Session) item(id uuid.UUID) (*hierarchy.Item, error) {
	if s.view == nil {
		return nil, fmt.Errorf("session not built")
	}
	it := s.view.Tree.Item(id)
	if it == nil {
		return nil, fmt.Errorf("unknown node %s", id)
	}
	return it, nil
}

// Toggle flips a folder between collapsed and expanded.
func (s *Session) Toggle(id uuid.UUID) error {
	it, err := s.item(id)
	if err != nil {
		return err
	}
	if !it.IsFolder {
		return fmt.Errorf("%s is not a folder", it.Name)
	}
	s.expanded[id] = !s.expanded[id]
	return nil
}

// Select makes id the single selected node. uuid.Nil clears the selection.
func (s *Session) Select(id uuid.UUID) error {
	if id == uuid.Nil {
		s.selected = uuid.Nil
		return nil
	}
	if _, err := s.item(id); err != nil {
		return err
	}
	s.selected = id
	return nil
}

// Selected returns the selected node id, or uuid.Nil.
func (s *Session) Selected() uuid.UUID {
	return s.selected
}

// MoveSelection moves the selection delta rows up or down the visible rows,
// selecting the first row when nothing is selected.
func (s *Session) MoveSelection(delta int) {
	rows := s.Rows()
	if len(rows) == 0 {
		return
	}
	idx := -1
	for i, r := range rows {
		if r.Selected {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.selected = rows[0].ID
		return
	}
	idx = max(0, min(idx+delta, len(rows)-1))
	s.selected = rows[idx].ID
}

// BeginDrag starts dragging id.
func (s *Session) BeginDrag(id uuid.UUID) error {
	if s.drag == DragActive {
		return fmt.Errorf("a drag is already in progress")
	}
	if _, err := s.item(id); err != nil {
		return err
	}
	s.drag = DragActive
	s.dragID = id
	return nil
}

// CancelDrag abandons the current drag without writing anything.
func (s *Session) CancelDrag() {
	if s.drag == DragActive {
		s.drag = DragCancelled
		s.dragID = uuid.Nil
	}
}

// DragState returns the drag state and the dragged node.
func (s *Session) DragState() (DragState, uuid.UUID) {
	return s.drag, s.dragID
}

// Drop places the dragged node at index among the rendered children of
// targetParentID (uuid.Nil for the top level). A drop onto the node's
// current parent becomes a reorder of the full sibling sequence, any other
// drop a move. The view is rebuilt afterwards whether or not the engine
// accepted the change.
func (s *Session) Drop(ctx context.Context, targetParentID uuid.UUID, index int) engine.Result {
	if s.drag != DragActive {
		return rejected("no drag in progress")
	}
	it, err := s.item(s.dragID)
	if err != nil {
		return rejected(err.Error())
	}
	s.drag = DragDropped

	var res engine.Result
	if it.Parent == targetParentID {
		res = s.mutator.Reorder(ctx, s.actorID, s.storeParent(targetParentID), s.sequence(it.ID, targetParentID, index))
	} else {
		parent := s.storeParent(targetParentID)
		res = s.mutator.Move(ctx, s.actorID, it.ID, &parent, max(0, index))
	}
	if !res.OK {
		slog.Debug("drop rejected", "node_id", it.ID, "kind", res.Failure.Kind, "message", res.Failure.Message)
	}

	if err := s.Rebuild(ctx); err != nil {
		slog.Error("rebuild after drop failed", "error", err)
		if res.OK {
			return engine.Result{Failure: &engine.Failure{Kind: engine.FailureInternal, Message: "rebuild failed", Err: err}}
		}
	}
	return res
}

// storeParent maps the tree's top level back onto the scope it was built from.
func (s *Session) storeParent(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return s.scopeID
	}
	return id
}

// sequence returns the reorder payload that places nodeID at index among
// the current rendered siblings under parentID.
func (s *Session) sequence(nodeID, parentID uuid.UUID, index int) []engine.ReorderItem {
	siblings := s.view.Tree.RenderedChildren(parentID)
	ids := make([]uuid.UUID, 0, len(siblings))
	for _, sib := range siblings {
		if sib.ID != nodeID {
			ids = append(ids, sib.ID)
		}
	}
	index = max(0, min(index, len(ids)))
	ids = append(ids[:index], append([]uuid.UUID{nodeID}, ids[index:]...)...)

	items := make([]engine.ReorderItem, len(ids))
	for i, id := range ids {
		items[i] = engine.ReorderItem{ID: id, Order: i}
	}
	return items
}

func rejected(msg string) engine.Result {
	return engine.Result{Failure: &engine.Failure{Kind: engine.FailureValidation, Message: msg}}
}
