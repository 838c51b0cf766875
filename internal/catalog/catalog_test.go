// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curator/internal/models"
	"curator/internal/store"
)

type fakeNodes struct {
	container uuid.UUID
	nodes     []models.Node
	edges     []models.Edge
	loads     atomic.Int32
}

func (f *fakeNodes) Locate(_ context.Context, id uuid.UUID) (models.NodeRef, error) {
	if id == f.container {
		return models.NodeRef{ID: id, Kind: models.KindContainer, ContainerID: id}, nil
	}
	for _, n := range f.nodes {
		if n.ID == id {
			return models.NodeRef{ID: id, Kind: n.Kind, ContainerID: f.container}, nil
		}
	}
	return models.NodeRef{}, store.ErrNotFound
}

func (f *fakeNodes) GetByParentScope(context.Context, uuid.UUID) ([]models.Node, error) {
	f.loads.Add(1)
	return f.nodes, nil
}

func (f *fakeNodes) GetRelationshipEdges(context.Context, uuid.UUID) ([]models.Edge, error) {
	return f.edges, nil
}

type fakeProgress struct {
	mu sync.Mutex
	m  map[uuid.UUID]float64
	// pause, when set, runs once after the map has been read.
	pause func()
}

func (f *fakeProgress) GetUserProgressMap(ctx context.Context, _, _ uuid.UUID) (map[uuid.UUID]float64, error) {
	f.mu.Lock()
	out := make(map[uuid.UUID]float64, len(f.m))
	for k, v := range f.m {
		out[k] = v
	}
	pause := f.pause
	f.pause = nil
	f.mu.Unlock()

	if pause != nil {
		pause()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (f *fakeProgress) Upsert(_ context.Context, userID, contentID uuid.UUID, value float64) (*models.Progress, error) {
	if value < 0 || value > 100 {
		return nil, store.ErrOutOfRange
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.m[contentID] = value
	return &models.Progress{UserID: userID, ContentID: contentID, Progress: value}, nil
}

// memCache mirrors TreeCache: entries are keyed by version and invalidation
// bumps a counter.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	gens map[string]int
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, gens: map[string]int{}}
}

func (c *memCache) Version(_ context.Context, container, user uuid.UUID) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("%d.%d", c.gens[container.String()], c.gens[container.String()+"/"+user.String()]), nil
}

func (c *memCache) Get(_ context.Context, container, user uuid.UUID, version string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.data[container.String()+"/"+user.String()+"/"+version]
	return d, ok
}

func (c *memCache) Set(_ context.Context, container, user uuid.UUID, version string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[container.String()+"/"+user.String()+"/"+version] = data
}

func (c *memCache) InvalidateView(_ context.Context, container, user uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[container.String()+"/"+user.String()]++
	return nil
}

func (c *memCache) Invalidate(_ context.Context, ids ...uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		c.gens[id.String()]++
	}
	return nil
}

// course builds Container / Sub / G / {A, B}.
func course() (*fakeNodes, *fakeProgress, map[string]uuid.UUID) {
	ids := map[string]uuid.UUID{}
	for _, n := range []string{"container", "sub", "g", "a", "b"} {
		ids[n] = uuid.New()
	}
	sub, g := ids["sub"], ids["g"]
	container := ids["container"]
	nodes := &fakeNodes{
		container: container,
		nodes: []models.Node{
			{ID: sub, Kind: models.KindSubContainer, Name: "Sub", ParentID: &container},
			{ID: g, Kind: models.KindGroup, Name: "G", ParentID: &sub},
			{ID: ids["a"], Kind: models.KindContent, Name: "A", Viewable: true, ParentID: &g},
			{ID: ids["b"], Kind: models.KindContent, Name: "B", Viewable: true, Order: 1, ParentID: &g},
		},
	}
	prog := &fakeProgress{m: map[uuid.UUID]float64{ids["a"]: 100, ids["b"]: 50}}
	return nodes, prog, ids
}

func TestLoad(t *testing.T) {
	nodes, prog, ids := course()
	svc := NewService(nodes, prog, nil)

	view, err := svc.Load(context.Background(), ids["container"], uuid.New())
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{ids["sub"]}, view.Tree.Roots)
	r := view.Aggregator.Rollup(ids["g"])
	assert.Equal(t, 75.0, r.Percentage)
	assert.Equal(t, 1, r.CompletedItems)
	assert.Equal(t, 2, r.TotalItems)
	assert.Equal(t, ids["container"], view.ContainerID)
}

func TestLoadNotFound(t *testing.T) {
	nodes, prog, _ := course()
	svc := NewService(nodes, prog, nil)

	_, err := svc.Load(context.Background(), uuid.New(), uuid.New())
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestSnapshot(t *testing.T) {
	nodes, prog, ids := course()
	svc := NewService(nodes, prog, nil)

	snap, err := svc.Snapshot(context.Background(), ids["container"], uuid.New())
	require.NoError(t, err)

	require.Len(t, snap.Roots, 1)
	sub := snap.Roots[0]
	assert.Equal(t, "Sub", sub.Name)
	require.Len(t, sub.Children, 1)
	g := sub.Children[0]
	assert.Equal(t, 75, g.Display)
	require.Len(t, g.Children, 2)
	assert.Equal(t, "A", g.Children[0].Name)
	assert.True(t, g.Children[0].Completed)
	assert.False(t, g.Children[1].Completed)
	assert.Equal(t, 75.0, snap.Summary.Percentage)
}

func TestSnapshotCached(t *testing.T) {
	nodes, prog, ids := course()
	c := newMemCache()
	svc := NewService(nodes, prog, c)
	ctx := context.Background()
	user := uuid.New()

	first, err := svc.Snapshot(ctx, ids["container"], user)
	require.NoError(t, err)
	second, err := svc.Snapshot(ctx, ids["container"], user)
	require.NoError(t, err)

	assert.Equal(t, int32(1), nodes.loads.Load(), "second call served from cache")
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.Roots[0].ID, second.Roots[0].ID)

	require.NoError(t, svc.Invalidate(ctx, ids["container"]))
	_, err = svc.Snapshot(ctx, ids["container"], user)
	require.NoError(t, err)
	assert.Equal(t, int32(2), nodes.loads.Load(), "rebuilt after invalidation")
}

func TestRecordProgressInvalidatesView(t *testing.T) {
	nodes, prog, ids := course()
	c := newMemCache()
	svc := NewService(nodes, prog, c)
	ctx := context.Background()
	user := uuid.New()

	_, err := svc.Snapshot(ctx, ids["container"], user)
	require.NoError(t, err)

	p, err := svc.RecordProgress(ctx, user, ids["b"], 100)
	require.NoError(t, err)
	assert.True(t, p.Completed())

	snap, err := svc.Snapshot(ctx, ids["container"], user)
	require.NoError(t, err)
	assert.Equal(t, 100.0, snap.Summary.Percentage)

	_, err = svc.RecordProgress(ctx, user, ids["g"], 10)
	assert.ErrorIs(t, err, ErrNotContent, "groups carry no direct progress")
	_, err = svc.RecordProgress(ctx, user, ids["a"], 120)
	assert.ErrorIs(t, err, store.ErrOutOfRange)
}

func TestSnapshotConcurrent(t *testing.T) {
	nodes, prog, ids := course()
	svc := NewService(nodes, prog, newMemCache())
	user := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := svc.Snapshot(context.Background(), ids["container"], user)
			assert.NoError(t, err)
			assert.NotNil(t, snap)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, nodes.loads.Load(), int32(16))
}

func TestSnapshotBuiltBeforeProgressWriteIsNotServed(t *testing.T) {
	nodes, prog, ids := course()
	svc := NewService(nodes, prog, newMemCache())
	ctx := context.Background()
	user := uuid.New()

	entered, release := make(chan struct{}), make(chan struct{})
	prog.pause = func() {
		close(entered)
		<-release
	}

	type result struct {
		snap *Snapshot
		err  error
	}
	first := make(chan result, 1)
	go func() {
		snap, err := svc.Snapshot(ctx, ids["container"], user)
		first <- result{snap, err}
	}()

	<-entered
	_, err := svc.RecordProgress(ctx, user, ids["a"], 0)
	require.NoError(t, err)
	close(release)

	r := <-first
	require.NoError(t, r.err)
	assert.Equal(t, 75.0, r.snap.Summary.Percentage, "in-flight build saw the old rows")

	snap, err := svc.Snapshot(ctx, ids["container"], user)
	require.NoError(t, err)
	assert.Equal(t, 25.0, snap.Summary.Percentage)
	assert.Equal(t, 0, snap.Summary.CompletedItems)
}

func TestSnapshotBuiltBeforeStructuralWriteIsNotServed(t *testing.T) {
	nodes, prog, ids := course()
	svc := NewService(nodes, prog, newMemCache())
	ctx := context.Background()
	user := uuid.New()

	entered, release := make(chan struct{}), make(chan struct{})
	prog.pause = func() {
		close(entered)
		<-release
	}
	done := make(chan error, 1)
	go func() {
		_, err := svc.Snapshot(ctx, ids["container"], user)
		done <- err
	}()

	<-entered
	require.NoError(t, svc.Invalidate(ctx, ids["container"]))
	close(release)
	require.NoError(t, <-done)

	_, err := svc.Snapshot(ctx, ids["container"], user)
	require.NoError(t, err)
	assert.Equal(t, int32(2), nodes.loads.Load(), "build stored under the retired version")
}

func TestSnapshotSharedBuildSurvivesCallerCancel(t *testing.T) {
	nodes, prog, ids := course()
	svc := NewService(nodes, prog, newMemCache())
	user := uuid.New()

	entered, release := make(chan struct{}), make(chan struct{})
	prog.pause = func() {
		close(entered)
		<-release
	}

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := svc.Snapshot(ctx, ids["container"], user)
		first <- err
	}()
	<-entered

	second := make(chan error, 1)
	go func() {
		snap, err := svc.Snapshot(context.Background(), ids["container"], user)
		if err == nil && snap.Summary.Percentage != 75 {
			err = fmt.Errorf("unexpected summary %v", snap.Summary.Percentage)
		}
		second <- err
	}()
	// Let the second caller join the flight started by the first.
	time.Sleep(50 * time.Millisecond)

	cancel()
	select {
	case err := <-first:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller kept waiting on the shared build")
	}

	close(release)
	require.NoError(t, <-second)
	assert.Equal(t, int32(1), nodes.loads.Load())
}

type downCache struct{ *memCache }

func (downCache) Version(context.Context, uuid.UUID, uuid.UUID) (string, error) {
	return "", errors.New("connection refused")
}

func TestSnapshotWithoutVersionBuildsFresh(t *testing.T) {
	nodes, prog, ids := course()
	c := downCache{newMemCache()}
	svc := NewService(nodes, prog, c)
	user := uuid.New()

	for i := 0; i < 2; i++ {
		snap, err := svc.Snapshot(context.Background(), ids["container"], user)
		require.NoError(t, err)
		assert.Equal(t, 75.0, snap.Summary.Percentage)
	}
	assert.Equal(t, int32(2), nodes.loads.Load())
	assert.Empty(t, c.data, "nothing stored without a version")
}
