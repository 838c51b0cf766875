// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies which entity table a node lives in.
type Kind string

const (
	KindContainer    Kind = "container"
	KindSubContainer Kind = "sub_container"
	KindGroup        Kind = "group"
	KindContent      Kind = "content"
)

// Valid reports whether k is one of the four known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindContainer, KindSubContainer, KindGroup, KindContent:
		return true
	}
	return false
}

// Structural reports whether nodes of this kind always hold children through
// the fixed schema. Structural nodes are always rendered as folders.
func (k Kind) Structural() bool {
	return k == KindContainer || k == KindSubContainer || k == KindGroup
}

// StructuralParent returns the kind referenced by this kind's parent foreign
// key. Containers have no structural parent and return "".
func (k Kind) StructuralParent() Kind {
	switch k {
	case KindSubContainer:
		return KindContainer
	case KindGroup:
		return KindSubContainer
	case KindContent:
		return KindGroup
	}
	return ""
}

// HasEdges reports whether nodes of this kind may be nested under a node of
// the same kind through a relationship edge.
func (k Kind) HasEdges() bool {
	return k == KindGroup || k == KindContent
}

// AcceptsChild reports whether a node of kind k may be the tree parent of a
// node of kind child, either structurally or through a relationship edge.
func (k Kind) AcceptsChild(child Kind) bool {
	if child.StructuralParent() == k {
		return true
	}
	return child.HasEdges() && child == k
}

// Node is the flat, kind-agnostic view of any hierarchy entity. ParentID is
// the structural (foreign key) parent; relationship edges are carried
// separately as Edge values.
type Node struct {
	ID          uuid.UUID  `json:"id"`
	Kind        Kind       `json:"kind"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Order       int        `json:"order"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	Viewable    bool       `json:"is_viewable"`
	ItemType    ItemType   `json:"item_type,omitempty"`
	ReleaseDate *time.Time `json:"release_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Edge is an explicit parent-child link between two groups or two content
// items, stored independently of the fixed-schema nesting.
type Edge struct {
	ParentID uuid.UUID `json:"parent_id"`
	ChildID  uuid.UUID `json:"child_id"`
	Kind     Kind      `json:"kind"`
}

// NodeRef is the location of a node in the hierarchy as resolved by the
// store: its tree parent (edge parent when one exists, structural parent
// otherwise), its top-level container and that container's owner.
type NodeRef struct {
	ID                 uuid.UUID
	Kind               Kind
	ParentID           uuid.UUID
	StructuralParentID uuid.UUID
	EdgeParent         bool
	ContainerID        uuid.UUID
	OwnerID            uuid.UUID
	Order              int
}

// IsZero reports whether the ref is unset. A zero ref stands for the root
// scope of an owner (the list of their containers).
func (r NodeRef) IsZero() bool {
	return r.ID == uuid.Nil
}

// OrderUpdate is a single sibling-order rewrite.
type OrderUpdate struct {
	ID    uuid.UUID `json:"id"`
	Kind  Kind      `json:"kind"`
	Order int       `json:"order"`
}

// MovePlan describes a reparenting: the node, its new tree parent (zero for
// an owner's root scope) and the full renumbered destination sibling list.
type MovePlan struct {
	Node      NodeRef
	NewParent NodeRef
	Orders    []OrderUpdate
}
