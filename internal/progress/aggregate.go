// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package progress computes per-node completion over a built hierarchy.
//
// Three distinct rules apply and are intentionally not unified:
//   - a node with at least one direct viewable child averages those
//     children's progress (deeper levels do not participate);
//   - a node with no direct viewable child sums item counts from its
//     organizational children and reports completed/total;
//   - the collection summary is a flat average over every viewable item.
package progress

import (
	"math"

	"github.com/google/uuid"

	"curator/internal/hierarchy"
)

// Rollup is the aggregate progress of a node.
type Rollup struct {
	TotalItems     int     `json:"total_items"`
	CompletedItems int     `json:"completed_items"`
	Percentage     float64 `json:"percentage"`
}

// Aggregator computes rollups for one tree and one user's progress map. It
// memoizes results and is meant to live for a single request.
type Aggregator struct {
	tree     *hierarchy.Tree
	progress map[uuid.UUID]float64

	memo     map[uuid.UUID]Rollup
	visiting map[uuid.UUID]bool
}

// New returns an Aggregator over tree. progress maps content ids to stored
// values in [0, 100]; missing ids count as 0.
func New(tree *hierarchy.Tree, progress map[uuid.UUID]float64) *Aggregator {
	if progress == nil {
		progress = map[uuid.UUID]float64{}
	}
	return &Aggregator{
		tree:     tree,
		progress: progress,
		memo:     make(map[uuid.UUID]Rollup),
		visiting: make(map[uuid.UUID]bool),
	}
}

// ContentProgress returns the stored progress of a viewable item, or 0 when
// none is recorded.
func (a *Aggregator) ContentProgress(id uuid.UUID) float64 {
	return a.progress[id]
}

// Aggregate rolls up a list of sibling ids as if they were the children of
// one organizational node.
func (a *Aggregator) Aggregate(children []uuid.UUID) Rollup {
	var (
		r   Rollup
		sum float64
	)
	for _, id := range children {
		it := a.tree.Item(id)
		if it == nil || !it.Viewable {
			continue
		}
		p := a.ContentProgress(id)
		sum += p
		r.TotalItems++
		if p >= 100 {
			r.CompletedItems++
		}
	}
	if r.TotalItems > 0 {
		r.Percentage = sum / float64(r.TotalItems)
		return r
	}

	for _, id := range children {
		it := a.tree.Item(id)
		if it == nil {
			continue
		}
		sub := a.Rollup(id)
		r.TotalItems += sub.TotalItems
		r.CompletedItems += sub.CompletedItems
	}
	if r.TotalItems > 0 {
		r.Percentage = float64(r.CompletedItems) / float64(r.TotalItems) * 100
	}
	return r
}

// Rollup returns the aggregate for a node. A viewable node counts as one
// item carrying its own progress; unknown ids return a zero Rollup.
func (a *Aggregator) Rollup(id uuid.UUID) Rollup {
	it := a.tree.Item(id)
	if it == nil {
		return Rollup{}
	}
	if it.Viewable {
		p := a.ContentProgress(id)
		r := Rollup{TotalItems: 1, Percentage: p}
		if p >= 100 {
			r.CompletedItems = 1
		}
		return r
	}
	if r, ok := a.memo[id]; ok {
		return r
	}
	// A node reached again while its own rollup is in progress contributes
	// nothing; this only happens on edge cycles.
	if a.visiting[id] {
		return Rollup{}
	}
	a.visiting[id] = true
	r := a.Aggregate(it.Children)
	delete(a.visiting, id)
	a.memo[id] = r
	return r
}

// Percentage returns the display percentage of any node.
func (a *Aggregator) Percentage(id uuid.UUID) float64 {
	return a.Rollup(id).Percentage
}

// IsCompleted reports whether a viewable node has reached 100, or whether an
// organizational node's rollup has.
func (a *Aggregator) IsCompleted(id uuid.UUID) bool {
	it := a.tree.Item(id)
	if it == nil {
		return false
	}
	if it.Viewable {
		return a.ContentProgress(id) >= 100
	}
	return a.Rollup(id).Percentage >= 100
}

// Summary is the whole-collection figure: a flat average over every
// viewable item in the tree regardless of depth.
func (a *Aggregator) Summary() Rollup {
	var (
		r   Rollup
		sum float64
	)
	for _, id := range a.tree.ViewableIDs() {
		p := a.ContentProgress(id)
		sum += p
		r.TotalItems++
		if p >= 100 {
			r.CompletedItems++
		}
	}
	if r.TotalItems > 0 {
		r.Percentage = sum / float64(r.TotalItems)
	}
	return r
}

// Display rounds a percentage to the nearest integer for rendering.
func Display(p float64) int {
	return int(math.Round(p))
}
