// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package engine

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curator/internal/models"
	"curator/internal/store"
)

// memStore is an in-memory Store. Each node keeps its structural parent and
// optional edge parent; Locate and Children derive tree parents from them.
type memStore struct {
	nodes map[uuid.UUID]*memNode

	applyErr error
	reorders [][]models.OrderUpdate
	moves    []models.MovePlan
	deleted  []uuid.UUID
}

type memNode struct {
	id         uuid.UUID
	kind       models.Kind
	name       string
	order      int
	owner      uuid.UUID
	structural uuid.UUID
	edge       uuid.UUID
}

func newMemStore() *memStore {
	return &memStore{nodes: map[uuid.UUID]*memNode{}}
}

func (m *memStore) add(kind models.Kind, name string, owner, parent uuid.UUID) uuid.UUID {
	n := &memNode{id: uuid.New(), kind: kind, name: name, owner: owner, structural: parent}
	if p := m.nodes[parent]; p != nil && p.kind == kind {
		n.edge = parent
		n.structural = p.structural
	}
	n.order = len(m.children(m.treeParentOf(n), owner))
	m.nodes[n.id] = n
	return n.id
}

func (m *memStore) treeParentOf(n *memNode) uuid.UUID {
	if n.edge != uuid.Nil {
		return n.edge
	}
	return n.structural
}

func (m *memStore) container(n *memNode) *memNode {
	for n.kind != models.KindContainer {
		n = m.nodes[n.structural]
	}
	return n
}

func (m *memStore) ref(n *memNode) models.NodeRef {
	c := m.container(n)
	return models.NodeRef{
		ID: n.id, Kind: n.kind, ParentID: m.treeParentOf(n), StructuralParentID: n.structural,
		EdgeParent: n.edge != uuid.Nil, ContainerID: c.id, OwnerID: c.owner, Order: n.order,
	}
}

func (m *memStore) children(parent, owner uuid.UUID) []*memNode {
	var out []*memNode
	for _, n := range m.nodes {
		if parent == uuid.Nil {
			if n.kind == models.KindContainer && n.owner == owner {
				out = append(out, n)
			}
			continue
		}
		if m.treeParentOf(n) == parent {
			out = append(out, n)
		}
	}
	slices.SortFunc(out, func(a, b *memNode) int {
		if c := cmp.Compare(a.order, b.order); c != 0 {
			return c
		}
		return cmp.Compare(a.id.String(), b.id.String())
	})
	return out
}

func (m *memStore) names(parent uuid.UUID) []string {
	var out []string
	for _, n := range m.children(parent, uuid.Nil) {
		out = append(out, n.name)
	}
	return out
}

func (m *memStore) Locate(_ context.Context, id uuid.UUID) (models.NodeRef, error) {
	n := m.nodes[id]
	if n == nil {
		return models.NodeRef{}, store.ErrNotFound
	}
	return m.ref(n), nil
}

func (m *memStore) Children(_ context.Context, parent models.NodeRef) ([]models.NodeRef, error) {
	var out []models.NodeRef
	for _, n := range m.children(parent.ID, parent.OwnerID) {
		out = append(out, m.ref(n))
	}
	return out, nil
}

func (m *memStore) IsDescendant(_ context.Context, _ models.Kind, ancestorID, nodeID uuid.UUID) (bool, error) {
	for n := m.nodes[nodeID]; n != nil && n.edge != uuid.Nil; n = m.nodes[n.edge] {
		if n.edge == ancestorID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ApplyReorder(_ context.Context, updates []models.OrderUpdate) error {
	if m.applyErr != nil {
		return m.applyErr
	}
	for _, u := range updates {
		if m.nodes[u.ID] == nil {
			return store.ErrNotFound
		}
	}
	for _, u := range updates {
		m.nodes[u.ID].order = u.Order
	}
	m.reorders = append(m.reorders, updates)
	return nil
}

func (m *memStore) ApplyMove(ctx context.Context, plan models.MovePlan) error {
	if m.applyErr != nil {
		return m.applyErr
	}
	n := m.nodes[plan.Node.ID]
	n.edge = uuid.Nil
	n.structural = plan.NewParent.ID
	if plan.NewParent.Kind == n.kind {
		n.edge = plan.NewParent.ID
		n.structural = plan.NewParent.StructuralParentID
	}
	m.moves = append(m.moves, plan)
	for _, u := range plan.Orders {
		m.nodes[u.ID].order = u.Order
	}
	return nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	if m.nodes[id] == nil {
		return store.ErrNotFound
	}
	delete(m.nodes, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type recordingCache struct {
	invalidated []uuid.UUID
	err         error
}

func (c *recordingCache) Invalidate(_ context.Context, ids ...uuid.UUID) error {
	c.invalidated = append(c.invalidated, ids...)
	return c.err
}

// fixture mirrors a small course: Container / Sub / {G1: A B X, G2: Y} plus
// a foreign owner's container.
type fixture struct {
	store         *memStore
	cache         *recordingCache
	eng           *Engine
	owner, other  uuid.UUID
	container     uuid.UUID
	sub           uuid.UUID
	g1, g2        uuid.UUID
	a, b, x, y    uuid.UUID
	foreign       uuid.UUID
	foreignGroup  uuid.UUID
	foreignSubCtr uuid.UUID
}

func newFixture() *fixture {
	s := newMemStore()
	f := &fixture{store: s, cache: &recordingCache{}, owner: uuid.New(), other: uuid.New()}
	f.container = s.add(models.KindContainer, "Container", f.owner, uuid.Nil)
	f.sub = s.add(models.KindSubContainer, "Sub", f.owner, f.container)
	f.g1 = s.add(models.KindGroup, "G1", f.owner, f.sub)
	f.g2 = s.add(models.KindGroup, "G2", f.owner, f.sub)
	f.a = s.add(models.KindContent, "A", f.owner, f.g1)
	f.b = s.add(models.KindContent, "B", f.owner, f.g1)
	f.x = s.add(models.KindContent, "X", f.owner, f.g1)
	f.y = s.add(models.KindContent, "Y", f.owner, f.g2)

	f.foreign = s.add(models.KindContainer, "Foreign", f.other, uuid.Nil)
	f.foreignSubCtr = s.add(models.KindSubContainer, "FSub", f.other, f.foreign)
	f.foreignGroup = s.add(models.KindGroup, "FG", f.other, f.foreignSubCtr)

	f.eng = New(s, f.cache)
	return f
}

func requireFailure(t *testing.T, r Result, kind FailureKind) {
	t.Helper()
	require.False(t, r.OK, "expected failure")
	require.NotNil(t, r.Failure)
	assert.Equal(t, kind, r.Failure.Kind, r.Failure.Message)
	assert.Error(t, r.Err())
}

func TestReorder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	items := []ReorderItem{{ID: f.a, Order: 2}, {ID: f.b, Order: 1}, {ID: f.x, Order: 3}}
	r := f.eng.Reorder(ctx, f.owner, f.g1, items)
	require.True(t, r.OK, "%+v", r.Failure)
	assert.Equal(t, []string{"B", "A", "X"}, f.store.names(f.g1))
	assert.Equal(t, []uuid.UUID{f.container}, f.cache.invalidated)

	r = f.eng.Reorder(ctx, f.owner, f.g1, items)
	require.True(t, r.OK)
	assert.Equal(t, []string{"B", "A", "X"}, f.store.names(f.g1), "reorder is idempotent")
}

func TestReorderRootContainers(t *testing.T) {
	f := newFixture()
	second := f.store.add(models.KindContainer, "Second", f.owner, uuid.Nil)

	r := f.eng.Reorder(context.Background(), f.owner, uuid.Nil, []ReorderItem{
		{ID: second, Order: 0}, {ID: f.container, Order: 1},
	})
	require.True(t, r.OK, "%+v", r.Failure)
	assert.Equal(t, 0, f.store.nodes[second].order)
	assert.Empty(t, f.cache.invalidated)
}

func TestReorderValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	tests := []struct {
		name  string
		actor uuid.UUID
		items []ReorderItem
	}{
		{"empty batch", f.owner, nil},
		{"nil actor", uuid.Nil, []ReorderItem{{ID: f.a, Order: 0}}},
		{"nil item id", f.owner, []ReorderItem{{ID: uuid.Nil, Order: 0}}},
		{"duplicate id", f.owner, []ReorderItem{{ID: f.a, Order: 0}, {ID: f.a, Order: 1}}},
		{"negative order", f.owner, []ReorderItem{{ID: f.a, Order: -1}}},
		{"order too large", f.owner, []ReorderItem{{ID: f.a, Order: MaxOrder + 1}}},
		{"item outside scope", f.owner, []ReorderItem{{ID: f.y, Order: 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := f.eng.Reorder(ctx, tt.actor, f.g1, tt.items)
			requireFailure(t, r, FailureValidation)
		})
	}
	assert.Empty(t, f.store.reorders, "no write on validation failure")
}

func TestReorderNotFound(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	r := f.eng.Reorder(ctx, f.owner, uuid.New(), []ReorderItem{{ID: f.a, Order: 0}})
	requireFailure(t, r, FailureNotFound)

	r = f.eng.Reorder(ctx, f.owner, f.g1, []ReorderItem{{ID: f.a, Order: 1}, {ID: uuid.New(), Order: 0}})
	requireFailure(t, r, FailureNotFound)
	assert.Empty(t, f.store.reorders, "whole batch rejected")
}

func TestReorderUnauthorized(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	r := f.eng.Reorder(ctx, f.other, f.g1, []ReorderItem{{ID: f.a, Order: 1}})
	requireFailure(t, r, FailureUnauthorized)

	// Owner of the scope, but one item belongs to someone else.
	r = f.eng.Reorder(ctx, f.owner, f.g1, []ReorderItem{{ID: f.a, Order: 1}, {ID: f.foreignGroup, Order: 0}})
	requireFailure(t, r, FailureUnauthorized)
	assert.Empty(t, f.store.reorders)
}

func TestReorderStoreError(t *testing.T) {
	f := newFixture()
	f.store.applyErr = errors.New("connection reset")

	r := f.eng.Reorder(context.Background(), f.owner, f.g1, []ReorderItem{{ID: f.a, Order: 1}})
	requireFailure(t, r, FailureInternal)
	assert.Equal(t, "internal error", r.Failure.Message)
	assert.Empty(t, f.cache.invalidated)
}

func TestMoveAcrossGroups(t *testing.T) {
	f := newFixture()

	r := f.eng.Move(context.Background(), f.owner, f.x, &f.g2, 0)
	require.True(t, r.OK, "%+v", r.Failure)

	assert.Equal(t, []string{"X", "Y"}, f.store.names(f.g2))
	assert.Equal(t, []string{"A", "B"}, f.store.names(f.g1))
	require.Len(t, f.store.moves, 1)
	assert.Equal(t, f.g2, f.store.moves[0].NewParent.ID)
	assert.Equal(t, []uuid.UUID{f.container}, f.cache.invalidated)
}

func TestMoveClampsOrder(t *testing.T) {
	f := newFixture()

	r := f.eng.Move(context.Background(), f.owner, f.a, &f.g2, 50)
	require.True(t, r.OK, "%+v", r.Failure)
	assert.Equal(t, []string{"Y", "A"}, f.store.names(f.g2))
	assert.Equal(t, 1, f.store.nodes[f.a].order)
}

func TestMoveSameParentIsReorder(t *testing.T) {
	f := newFixture()

	r := f.eng.Move(context.Background(), f.owner, f.x, &f.g1, 0)
	require.True(t, r.OK, "%+v", r.Failure)
	assert.Equal(t, []string{"X", "A", "B"}, f.store.names(f.g1))
	assert.Empty(t, f.store.moves)
	require.Len(t, f.store.reorders, 1)
}

func TestMoveIntoEdgeParent(t *testing.T) {
	f := newFixture()

	r := f.eng.Move(context.Background(), f.owner, f.b, &f.x, 0)
	require.True(t, r.OK, "%+v", r.Failure)
	assert.Equal(t, []string{"B"}, f.store.names(f.x))
	assert.Equal(t, []string{"A", "X"}, f.store.names(f.g1))

	ref, _ := f.store.Locate(context.Background(), f.b)
	assert.True(t, ref.EdgeParent)
	assert.Equal(t, f.g1, ref.StructuralParentID)
}

func TestMoveRejectsCycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.True(t, f.eng.Move(ctx, f.owner, f.g2, &f.g1, 0).OK)

	requireFailure(t, f.eng.Move(ctx, f.owner, f.g1, &f.g2, 0), FailureValidation)
	requireFailure(t, f.eng.Move(ctx, f.owner, f.g1, &f.g1, 0), FailureValidation)
}

func TestMoveRejectsIllegalParent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	tests := []struct {
		name   string
		node   uuid.UUID
		parent *uuid.UUID
	}{
		{"content under sub-container", f.a, &f.sub},
		{"group under container", f.g1, &f.container},
		{"group under content", f.g1, &f.a},
		{"content to root", f.a, nil},
		{"container under group", f.container, &f.g1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireFailure(t, f.eng.Move(ctx, f.owner, tt.node, tt.parent, 0), FailureValidation)
		})
	}
	assert.Empty(t, f.store.moves)
}

func TestMoveValidationAndAuth(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	nilID := uuid.Nil
	missing := uuid.New()

	requireFailure(t, f.eng.Move(ctx, f.owner, f.a, &nilID, 0), FailureValidation)
	requireFailure(t, f.eng.Move(ctx, f.owner, f.a, &f.g2, -1), FailureValidation)
	requireFailure(t, f.eng.Move(ctx, f.owner, uuid.New(), &f.g2, 0), FailureNotFound)
	requireFailure(t, f.eng.Move(ctx, f.owner, f.a, &missing, 0), FailureNotFound)
	requireFailure(t, f.eng.Move(ctx, f.other, f.a, &f.g2, 0), FailureUnauthorized)
	requireFailure(t, f.eng.Move(ctx, f.owner, f.a, &f.foreignGroup, 0), FailureUnauthorized)
	assert.Empty(t, f.store.moves)
	assert.Empty(t, f.store.reorders)
}

func TestMoveContainerWithinRoot(t *testing.T) {
	f := newFixture()
	second := f.store.add(models.KindContainer, "Second", f.owner, uuid.Nil)

	r := f.eng.Move(context.Background(), f.owner, second, nil, 0)
	require.True(t, r.OK, "%+v", r.Failure)
	assert.Equal(t, 0, f.store.nodes[second].order)
	assert.Equal(t, 1, f.store.nodes[f.container].order)
}

func TestDelete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	requireFailure(t, f.eng.Delete(ctx, f.other, f.a), FailureUnauthorized)
	requireFailure(t, f.eng.Delete(ctx, f.owner, uuid.New()), FailureNotFound)

	r := f.eng.Delete(ctx, f.owner, f.a)
	require.True(t, r.OK)
	assert.Equal(t, []uuid.UUID{f.a}, f.store.deleted)
	assert.Equal(t, []uuid.UUID{f.container}, f.cache.invalidated)
}

func TestInvalidationFailureDoesNotFail(t *testing.T) {
	f := newFixture()
	f.cache.err = errors.New("valkey down")

	r := f.eng.Reorder(context.Background(), f.owner, f.g1, []ReorderItem{{ID: f.a, Order: 0}})
	assert.True(t, r.OK)
}

func TestInsertAt(t *testing.T) {
	a := models.NodeRef{ID: uuid.New(), Kind: models.KindContent}
	b := models.NodeRef{ID: uuid.New(), Kind: models.KindContent}
	n := models.NodeRef{ID: uuid.New(), Kind: models.KindContent}

	got := insertAt([]models.NodeRef{a, n, b}, n, 1)
	require.Len(t, got, 3)
	assert.Equal(t, []uuid.UUID{a.ID, n.ID, b.ID}, []uuid.UUID{got[0].ID, got[1].ID, got[2].ID})
	for i, u := range got {
		assert.Equal(t, i, u.Order)
	}

	got = insertAt(nil, n, 7)
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Order)
}
