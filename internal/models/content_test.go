// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

// TestKindAcceptsChild verifies the parent/child kind matrix used by moves.
func TestKindAcceptsChild(t *testing.T) {
	tests := []struct {
		parent Kind
		child  Kind
		want   bool
	}{
		{KindContainer, KindSubContainer, true},
		{KindSubContainer, KindGroup, true},
		{KindGroup, KindGroup, true},
		{KindGroup, KindContent, true},
		{KindContent, KindContent, true},
		{KindContainer, KindGroup, false},
		{KindContainer, KindContainer, false},
		{KindSubContainer, KindSubContainer, false},
		{KindSubContainer, KindContent, false},
		{KindContent, KindGroup, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.parent)+"->"+string(tt.child), func(t *testing.T) {
			if got := tt.parent.AcceptsChild(tt.child); got != tt.want {
				t.Errorf("%s.AcceptsChild(%s) = %v, want %v", tt.parent, tt.child, got, tt.want)
			}
		})
	}
}

// TestKindStructural verifies that only content is a potential leaf.
func TestKindStructural(t *testing.T) {
	for _, k := range []Kind{KindContainer, KindSubContainer, KindGroup} {
		if !k.Structural() {
			t.Errorf("%s.Structural() = false, want true", k)
		}
	}
	if KindContent.Structural() {
		t.Error("content should not be structural")
	}
	if Kind("folder").Valid() {
		t.Error("unknown kind reported valid")
	}
}

// TestContentNode verifies the flat projection of a content item.
func TestContentNode(t *testing.T) {
	groupID := uuid.New()
	c := &Content{
		ID: uuid.New(), GroupID: groupID, Name: "Intro", SortOrder: 3,
		IsViewable: true, ItemType: ItemTypeVideo,
	}

	n := c.Node()
	if n.Kind != KindContent {
		t.Errorf("Kind = %q, want %q", n.Kind, KindContent)
	}
	if n.ParentID == nil || *n.ParentID != groupID {
		t.Errorf("ParentID = %v, want %v", n.ParentID, groupID)
	}
	if n.Order != 3 || !n.Viewable || n.ItemType != ItemTypeVideo {
		t.Errorf("unexpected node projection: %+v", n)
	}
}

// TestContentIsReleased verifies release-date gating.
func TestContentIsReleased(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name    string
		release *time.Time
		want    bool
	}{
		{name: "no release date", release: nil, want: true},
		{name: "released earlier", release: &past, want: true},
		{name: "released exactly now", release: &now, want: true},
		{name: "future release", release: &future, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Content{ReleaseDate: tt.release}
			if got := c.IsReleased(now); got != tt.want {
				t.Errorf("IsReleased() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestItemTypeValid verifies the item type enum.
func TestItemTypeValid(t *testing.T) {
	if !ItemTypeArticle.Valid() {
		t.Error("article should be valid")
	}
	if ItemType("podcast").Valid() {
		t.Error("podcast should not be valid")
	}
}

// TestProgressCompleted verifies the completion threshold.
func TestProgressCompleted(t *testing.T) {
	if (&Progress{Progress: 99.9}).Completed() {
		t.Error("99.9 should not be completed")
	}
	if !(&Progress{Progress: 100}).Completed() {
		t.Error("100 should be completed")
	}
}
