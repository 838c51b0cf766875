// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package hierarchy turns the flat node and edge lists read from the store
// into an ordered in-memory tree.
//
// Fixed-schema nesting (content in a group, group in a sub-container,
// sub-container in a container) is normalized once into implicit edges and
// merged with the explicit relationship edges, so the builder walks a single
// edge list. A node with an explicit parent edge does not also receive its
// implicit edge: it is listed under its edge parent only.
package hierarchy

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"curator/internal/models"
)

// WarningKind classifies a tolerated data problem found while building.
type WarningKind string

const (
	// WarnDanglingEdge marks an edge whose parent or child is not in the input.
	WarnDanglingEdge WarningKind = "dangling-edge"
	// WarnDuplicateParent marks a child listed under more than one parent.
	WarnDuplicateParent WarningKind = "duplicate-parent"
	// WarnKindMismatch marks an edge between kinds that cannot nest.
	WarnKindMismatch WarningKind = "kind-mismatch"
	// WarnUnreachable marks a node not reachable from any root (edge cycle).
	WarnUnreachable WarningKind = "unreachable"
)

// Warning is a data-integrity problem the builder skipped over.
type Warning struct {
	Kind     WarningKind `json:"kind"`
	ParentID uuid.UUID   `json:"parent_id,omitempty"`
	ChildID  uuid.UUID   `json:"child_id"`
	Message  string      `json:"message"`
}

// Item is one node of the built tree.
type Item struct {
	ID       uuid.UUID
	Kind     models.Kind
	Name     string
	IsFolder bool
	Viewable bool
	Order    int
	Children []uuid.UUID
	// Parent is the parent used for single-tree rendering. uuid.Nil for roots.
	Parent uuid.UUID

	index int
}

// Tree is the result of Build.
type Tree struct {
	Items    map[uuid.UUID]*Item
	Roots    []uuid.UUID
	Warnings []Warning
}

// Build assembles a tree from nodes and relationship edges. Nodes should be
// in store order (sort_order, id); sibling ties keep that input order.
// Edges are applied in the order given, so the first edge naming a child
// decides its rendering parent.
func Build(nodes []models.Node, edges []models.Edge) *Tree {
	t := &Tree{Items: make(map[uuid.UUID]*Item, len(nodes))}
	order := make([]uuid.UUID, 0, len(nodes))

	for i, n := range nodes {
		if _, dup := t.Items[n.ID]; dup {
			continue
		}
		t.Items[n.ID] = &Item{
			ID:       n.ID,
			Kind:     n.Kind,
			Name:     n.Name,
			IsFolder: n.Kind.Structural(),
			Viewable: n.Kind == models.KindContent && n.Viewable,
			Order:    n.Order,
			index:    i,
		}
		order = append(order, n.ID)
	}

	// Explicit edges first decide which nodes leave their structural parent.
	var explicit []models.Edge
	edgeChild := make(map[uuid.UUID]bool)
	for _, e := range edges {
		parent, child := t.Items[e.ParentID], t.Items[e.ChildID]
		if parent == nil || child == nil {
			t.warn(WarnDanglingEdge, e.ParentID, e.ChildID, "edge references a node outside the tree")
			continue
		}
		if parent.Kind != child.Kind || !child.Kind.HasEdges() {
			t.warn(WarnKindMismatch, e.ParentID, e.ChildID,
				fmt.Sprintf("%s cannot hold %s through an edge", parent.Kind, child.Kind))
			continue
		}
		explicit = append(explicit, e)
		edgeChild[e.ChildID] = true
	}

	// Implicit edges from the fixed schema. A structural parent missing from
	// the input is the scope being built, so the node becomes a root.
	var merged []models.Edge
	for _, n := range nodes {
		if n.ParentID == nil || edgeChild[n.ID] {
			continue
		}
		if _, ok := t.Items[*n.ParentID]; !ok {
			continue
		}
		merged = append(merged, models.Edge{ParentID: *n.ParentID, ChildID: n.ID, Kind: n.Kind})
	}
	merged = append(merged, explicit...)

	isChild := make(map[uuid.UUID]bool)
	for _, e := range merged {
		parent, child := t.Items[e.ParentID], t.Items[e.ChildID]
		if slices.Contains(parent.Children, child.ID) {
			continue
		}
		parent.Children = append(parent.Children, child.ID)
		parent.IsFolder = true
		if isChild[child.ID] {
			t.warn(WarnDuplicateParent, e.ParentID, e.ChildID,
				fmt.Sprintf("already listed under %s", child.Parent))
			continue
		}
		isChild[child.ID] = true
		child.Parent = parent.ID
	}

	for _, it := range t.Items {
		t.sortIDs(it.Children)
	}
	for _, id := range order {
		if !isChild[id] {
			t.Roots = append(t.Roots, id)
		}
	}
	t.sortIDs(t.Roots)

	reached := make(map[uuid.UUID]bool, len(t.Items))
	t.Walk(func(it *Item, _ int) bool {
		reached[it.ID] = true
		return true
	})
	for _, id := range order {
		if !reached[id] {
			t.warn(WarnUnreachable, t.Items[id].Parent, id, "node sits on a relationship-edge cycle")
		}
	}
	return t
}

func (t *Tree) warn(kind WarningKind, parent, child uuid.UUID, msg string) {
	t.Warnings = append(t.Warnings, Warning{Kind: kind, ParentID: parent, ChildID: child, Message: msg})
}

// sortIDs orders ids by Order, keeping input order on ties.
func (t *Tree) sortIDs(ids []uuid.UUID) {
	slices.SortStableFunc(ids, func(a, b uuid.UUID) int {
		ia, ib := t.Items[a], t.Items[b]
		if c := cmp.Compare(ia.Order, ib.Order); c != 0 {
			return c
		}
		return cmp.Compare(ia.index, ib.index)
	})
}

// Item returns the item with the given id, or nil.
func (t *Tree) Item(id uuid.UUID) *Item {
	return t.Items[id]
}

// Children returns the ordered children of id, including children that are
// rendered under another parent. A uuid.Nil id returns the roots.
func (t *Tree) Children(id uuid.UUID) []*Item {
	ids := t.Roots
	if id != uuid.Nil {
		it := t.Items[id]
		if it == nil {
			return nil
		}
		ids = it.Children
	}
	out := make([]*Item, 0, len(ids))
	for _, cid := range ids {
		out = append(out, t.Items[cid])
	}
	return out
}

// RenderedChildren returns the children of id that render under it, which
// excludes children whose rendering parent is elsewhere.
func (t *Tree) RenderedChildren(id uuid.UUID) []*Item {
	all := t.Children(id)
	out := all[:0:0]
	for _, it := range all {
		if it.Parent == id {
			out = append(out, it)
		}
	}
	return out
}

// Walk visits the tree depth-first from the roots in display order. Each
// item is visited once, under its rendering parent. Returning false from fn
// skips the item's subtree.
func (t *Tree) Walk(fn func(it *Item, depth int) bool) {
	seen := make(map[uuid.UUID]bool, len(t.Items))
	var visit func(id uuid.UUID, depth int)
	visit = func(id uuid.UUID, depth int) {
		if seen[id] {
			return
		}
		seen[id] = true
		it := t.Items[id]
		if !fn(it, depth) {
			return
		}
		for _, cid := range it.Children {
			if t.Items[cid].Parent == id {
				visit(cid, depth+1)
			}
		}
	}
	for _, id := range t.Roots {
		visit(id, 0)
	}
}

// ViewableIDs returns every viewable content id in the tree, in input order,
// regardless of depth or reachability.
func (t *Tree) ViewableIDs() []uuid.UUID {
	items := make([]*Item, 0, len(t.Items))
	for _, it := range t.Items {
		if it.Viewable {
			items = append(items, it)
		}
	}
	slices.SortFunc(items, func(a, b *Item) int { return cmp.Compare(a.index, b.index) })

	ids := make([]uuid.UUID, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

// Len returns the number of items in the tree.
func (t *Tree) Len() int {
	return len(t.Items)
}
