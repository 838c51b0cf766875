// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package catalog loads hierarchy views: it reads a scope's nodes, edges and
// one user's progress from the store, builds the tree from scratch and
// attaches a progress aggregator. Rendered snapshots are cached in Valkey
// per (container, user) and invalidated after every committed mutation.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"curator/internal/hierarchy"
	"curator/internal/metrics"
	"curator/internal/models"
	"curator/internal/progress"
)

// ErrNotContent is returned when progress is recorded on a node that is not
// a content item.
var ErrNotContent = errors.New("node is not a content item")

// NodeReader reads hierarchy rows.
type NodeReader interface {
	Locate(ctx context.Context, id uuid.UUID) (models.NodeRef, error)
	GetByParentScope(ctx context.Context, scopeID uuid.UUID) ([]models.Node, error)
	GetRelationshipEdges(ctx context.Context, scopeID uuid.UUID) ([]models.Edge, error)
}

// ProgressStore reads and writes user progress.
type ProgressStore interface {
	GetUserProgressMap(ctx context.Context, userID, containerID uuid.UUID) (map[uuid.UUID]float64, error)
	Upsert(ctx context.Context, userID, contentID uuid.UUID, value float64) (*models.Progress, error)
}

// SnapshotCache stores encoded snapshots under a version read before the
// build. Invalidation advances the version instead of deleting entries, so
// a build that raced a write stores its result where nobody looks.
type SnapshotCache interface {
	Version(ctx context.Context, containerID, userID uuid.UUID) (string, error)
	Get(ctx context.Context, containerID, userID uuid.UUID, version string) ([]byte, bool)
	Set(ctx context.Context, containerID, userID uuid.UUID, version string, data []byte)
	InvalidateView(ctx context.Context, containerID, userID uuid.UUID) error
	Invalidate(ctx context.Context, containerIDs ...uuid.UUID) error
}

// buildTimeout bounds a shared snapshot build, which no longer follows any
// single caller's context.
const buildTimeout = 30 * time.Second

// Service builds and caches hierarchy views.
type Service struct {
	nodes    NodeReader
	progress ProgressStore
	cache    SnapshotCache

	group singleflight.Group
}

// NewService creates a Service. cache may be nil to disable caching.
func NewService(nodes NodeReader, progress ProgressStore, cache SnapshotCache) *Service {
	return &Service{nodes: nodes, progress: progress, cache: cache}
}

// View is one freshly built tree plus its aggregator, valid for a single
// request or render.
type View struct {
	ScopeID     uuid.UUID
	ContainerID uuid.UUID
	UserID      uuid.UUID
	Tree        *hierarchy.Tree
	Aggregator  *progress.Aggregator
}

// Load fetches the scope (normally a container) and builds its view for
// userID. Nothing is cached: every call reads the store.
func (s *Service) Load(ctx context.Context, scopeID, userID uuid.UUID) (*View, error) {
	start := time.Now()

	ref, err := s.nodes.Locate(ctx, scopeID)
	if err != nil {
		return nil, fmt.Errorf("locate scope: %w", err)
	}
	nodes, err := s.nodes.GetByParentScope(ctx, scopeID)
	if err != nil {
		return nil, fmt.Errorf("load nodes: %w", err)
	}
	edges, err := s.nodes.GetRelationshipEdges(ctx, scopeID)
	if err != nil {
		return nil, fmt.Errorf("load edges: %w", err)
	}
	progressMap, err := s.progress.GetUserProgressMap(ctx, userID, ref.ContainerID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}

	tree := hierarchy.Build(nodes, edges)
	for _, w := range tree.Warnings {
		slog.Warn("hierarchy warning", "scope_id", scopeID, "kind", w.Kind,
			"parent_id", w.ParentID, "child_id", w.ChildID, "message", w.Message)
	}
	metrics.ObserveBuild(start, tree.Len())

	return &View{
		ScopeID:     scopeID,
		ContainerID: ref.ContainerID,
		UserID:      userID,
		Tree:        tree,
		Aggregator:  progress.New(tree, progressMap),
	}, nil
}

// Snapshot returns the JSON-ready view of a container for userID, served
// from cache when possible. Concurrent misses for the same version of a view
// share one build; each caller still honours its own context while waiting.
func (s *Service) Snapshot(ctx context.Context, containerID, userID uuid.UUID) (*Snapshot, error) {
	if s.cache == nil {
		return s.build(ctx, containerID, userID)
	}
	version, err := s.cache.Version(ctx, containerID, userID)
	if err != nil {
		slog.Warn("tree cache unavailable, building uncached", "container_id", containerID, "error", err)
		return s.build(ctx, containerID, userID)
	}
	if snap, ok := s.cached(ctx, containerID, userID, version); ok {
		return snap, nil
	}

	key := containerID.String() + ":" + userID.String() + ":" + version
	ch := s.group.DoChan(key, func() (any, error) {
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), buildTimeout)
		defer cancel()

		snap, err := s.build(bctx, containerID, userID)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(snap)
		if err != nil {
			return nil, fmt.Errorf("encode snapshot: %w", err)
		}
		s.cache.Set(bctx, containerID, userID, version, data)
		return snap, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

func (s *Service) build(ctx context.Context, containerID, userID uuid.UUID) (*Snapshot, error) {
	view, err := s.Load(ctx, containerID, userID)
	if err != nil {
		return nil, err
	}
	return view.Snapshot(), nil
}

func (s *Service) cached(ctx context.Context, containerID, userID uuid.UUID, version string) (*Snapshot, bool) {
	data, ok := s.cache.Get(ctx, containerID, userID, version)
	if !ok {
		return nil, false
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		slog.Warn("discarding undecodable snapshot", "container_id", containerID, "error", err)
		return nil, false
	}
	return &snap, true
}

// Invalidate retires every cached view of the given containers.
func (s *Service) Invalidate(ctx context.Context, containerIDs ...uuid.UUID) error {
	if s.cache == nil || len(containerIDs) == 0 {
		return nil
	}
	return s.cache.Invalidate(ctx, containerIDs...)
}

// RecordProgress stores a user's progress on a viewable item and retires
// that user's cached views of the item's container.
func (s *Service) RecordProgress(ctx context.Context, userID, contentID uuid.UUID, value float64) (*models.Progress, error) {
	ref, err := s.nodes.Locate(ctx, contentID)
	if err != nil {
		return nil, fmt.Errorf("locate content: %w", err)
	}
	if ref.Kind != models.KindContent {
		return nil, fmt.Errorf("record progress on %s %s: %w", ref.Kind, contentID, ErrNotContent)
	}
	p, err := s.progress.Upsert(ctx, userID, contentID, value)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.InvalidateView(ctx, ref.ContainerID, userID); err != nil {
			slog.Error("tree cache invalidation failed", "container_id", ref.ContainerID, "error", err)
		}
	}
	return p, nil
}
