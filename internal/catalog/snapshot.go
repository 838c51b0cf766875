// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package catalog

import (
	"time"

	"github.com/google/uuid"

	"curator/internal/hierarchy"
	"curator/internal/models"
	"curator/internal/progress"
)

// Snapshot is the serializable form of a View.
type Snapshot struct {
	ScopeID     uuid.UUID           `json:"scope_id"`
	ContainerID uuid.UUID           `json:"container_id"`
	UserID      uuid.UUID           `json:"user_id"`
	Roots       []SnapshotNode      `json:"roots"`
	Summary     progress.Rollup     `json:"summary"`
	Warnings    []hierarchy.Warning `json:"warnings,omitempty"`
	BuiltAt     time.Time           `json:"built_at"`
}

// SnapshotNode is one rendered node with its rollup.
type SnapshotNode struct {
	ID        uuid.UUID       `json:"id"`
	Kind      models.Kind     `json:"kind"`
	Name      string          `json:"name"`
	Order     int             `json:"order"`
	IsFolder  bool            `json:"is_folder"`
	Viewable  bool            `json:"is_viewable"`
	Progress  progress.Rollup `json:"progress"`
	Display   int             `json:"display"`
	Completed bool            `json:"completed"`
	Children  []SnapshotNode  `json:"children,omitempty"`
}

// Snapshot renders the view into nested nodes. Each node appears once,
// under its rendering parent.
func (v *View) Snapshot() *Snapshot {
	snap := &Snapshot{
		ScopeID:     v.ScopeID,
		ContainerID: v.ContainerID,
		UserID:      v.UserID,
		Summary:     v.Aggregator.Summary(),
		Warnings:    v.Tree.Warnings,
		BuiltAt:     time.Now().UTC(),
	}
	for _, it := range v.Tree.Children(uuid.Nil) {
		snap.Roots = append(snap.Roots, v.node(it))
	}
	return snap
}

func (v *View) node(it *hierarchy.Item) SnapshotNode {
	r := v.Aggregator.Rollup(it.ID)
	n := SnapshotNode{
		ID:        it.ID,
		Kind:      it.Kind,
		Name:      it.Name,
		Order:     it.Order,
		IsFolder:  it.IsFolder,
		Viewable:  it.Viewable,
		Progress:  r,
		Display:   progress.Display(r.Percentage),
		Completed: v.Aggregator.IsCompleted(it.ID),
	}
	for _, c := range v.Tree.RenderedChildren(it.ID) {
		n.Children = append(n.Children, v.node(c))
	}
	return n
}
