// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// ItemType classifies a content item.
type ItemType string

const (
	ItemTypeVideo    ItemType = "video"
	ItemTypeArticle  ItemType = "article"
	ItemTypeAudio    ItemType = "audio"
	ItemTypeDocument ItemType = "document"
	ItemTypeExercise ItemType = "exercise"
	ItemTypeSection  ItemType = "section"
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeVideo, ItemTypeArticle, ItemTypeAudio, ItemTypeDocument, ItemTypeExercise, ItemTypeSection:
		return true
	}
	return false
}

// Container is the top level of a hierarchy and the unit of ownership.
type Container struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Node returns the kind-agnostic view of the container.
func (c *Container) Node() Node {
	return Node{
		ID: c.ID, Kind: KindContainer, Name: c.Name, Description: c.Description,
		Order: c.SortOrder, OwnerID: c.OwnerID, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt,
	}
}

// SubContainer is the second level, nested in a Container.
type SubContainer struct {
	ID          uuid.UUID `json:"id"`
	ContainerID uuid.UUID `json:"container_id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Node returns the kind-agnostic view of the sub-container.
func (s *SubContainer) Node() Node {
	parent := s.ContainerID
	return Node{
		ID: s.ID, Kind: KindSubContainer, Name: s.Name, Description: s.Description,
		Order: s.SortOrder, OwnerID: s.OwnerID, ParentID: &parent,
		CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt,
	}
}

// Group is the third level, nested in a SubContainer. Groups may also be
// nested under other groups through relationship edges.
type Group struct {
	ID             uuid.UUID `json:"id"`
	SubContainerID uuid.UUID `json:"sub_container_id"`
	OwnerID        uuid.UUID `json:"owner_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	SortOrder      int       `json:"sort_order"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Node returns the kind-agnostic view of the group.
func (g *Group) Node() Node {
	parent := g.SubContainerID
	return Node{
		ID: g.ID, Kind: KindGroup, Name: g.Name, Description: g.Description,
		Order: g.SortOrder, OwnerID: g.OwnerID, ParentID: &parent,
		CreatedAt: g.CreatedAt, UpdatedAt: g.UpdatedAt,
	}
}

// Content is a leaf-level item nested in a Group. Viewable content carries
// direct user progress; non-viewable content is organizational and may hold
// other content through relationship edges.
type Content struct {
	ID          uuid.UUID  `json:"id"`
	GroupID     uuid.UUID  `json:"group_id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	SortOrder   int        `json:"sort_order"`
	IsViewable  bool       `json:"is_viewable"`
	ItemType    ItemType   `json:"item_type"`
	ReleaseDate *time.Time `json:"release_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Node returns the kind-agnostic view of the content item.
func (c *Content) Node() Node {
	parent := c.GroupID
	return Node{
		ID: c.ID, Kind: KindContent, Name: c.Name, Description: c.Description,
		Order: c.SortOrder, OwnerID: c.OwnerID, ParentID: &parent,
		Viewable: c.IsViewable, ItemType: c.ItemType, ReleaseDate: c.ReleaseDate,
		CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt,
	}
}

// IsReleased reports whether the item is available at the given time.
// Items without a release date are always available.
func (c *Content) IsReleased(now time.Time) bool {
	return c.ReleaseDate == nil || !c.ReleaseDate.After(now)
}

// Progress is one user's consumption of one viewable content item.
type Progress struct {
	UserID    uuid.UUID `json:"user_id"`
	ContentID uuid.UUID `json:"content_id"`
	Progress  float64   `json:"progress"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Completed reports whether the recorded progress reaches 100.
func (p *Progress) Completed() bool {
	return p.Progress >= 100
}
