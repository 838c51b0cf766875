// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// tree.go provides a Valkey-backed cache of rendered hierarchy snapshots.
// A snapshot depends on one container's nodes and edges plus one user's
// progress. Each container and each (container, user) view carries a
// generation counter; a snapshot is stored under the version (both counters)
// read before it was built. Committed reorders, moves and deletes bump the
// container counter and progress writes bump the view counter, so a
// snapshot built from rows read before a write can never be served after it.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"curator/internal/metrics"
)

const (
	// treeKeyPrefix is the Valkey key prefix for cached snapshots.
	treeKeyPrefix = "tree:"

	// genKeyPrefix is the Valkey key prefix for generation counters.
	genKeyPrefix = "tree:gen:"

	// DefaultTreeTTL is how long a snapshot stays cached.
	DefaultTreeTTL = 2 * time.Minute

	// genTTL must outlive any snapshot stored under the counter.
	genTTL = 24 * time.Hour

	bumpAttempts = 3
	bumpTimeout  = 2 * time.Second
)

// TreeCache manages snapshot caching in Valkey.
type TreeCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTreeCache creates a new tree cache backed by the given Valkey client.
func NewTreeCache(client *redis.Client, ttl time.Duration) *TreeCache {
	if ttl == 0 {
		ttl = DefaultTreeTTL
	}
	return &TreeCache{client: client, ttl: ttl}
}

// TreeKey returns the cache key for one version of a user's view of a
// container.
func TreeKey(containerID, userID uuid.UUID, version string) string {
	return fmt.Sprintf("%s%s:%s:%s", treeKeyPrefix, containerID, userID, version)
}

// ContainerGenKey is the generation counter bumped by structural mutations.
func ContainerGenKey(containerID uuid.UUID) string {
	return genKeyPrefix + containerID.String()
}

// ViewGenKey is the generation counter bumped by one user's progress writes.
func ViewGenKey(containerID, userID uuid.UUID) string {
	return genKeyPrefix + containerID.String() + ":" + userID.String()
}

// Version returns the current version of a user's view of a container.
// Read it before loading rows and store the result under it.
func (tc *TreeCache) Version(ctx context.Context, containerID, userID uuid.UUID) (string, error) {
	vals, err := tc.client.MGet(ctx, ContainerGenKey(containerID), ViewGenKey(containerID, userID)).Result()
	if err != nil {
		return "", fmt.Errorf("tree cache version: %w", err)
	}
	return genValue(vals[0]) + "." + genValue(vals[1]), nil
}

func genValue(v any) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return "0"
}

// Get retrieves a cached snapshot. Errors are logged and reported as a miss.
func (tc *TreeCache) Get(ctx context.Context, containerID, userID uuid.UUID, version string) ([]byte, bool) {
	val, err := tc.client.Get(ctx, TreeKey(containerID, userID, version)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.TreeCache.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		metrics.TreeCache.WithLabelValues("error").Inc()
		slog.Warn("tree cache get error", "container_id", containerID, "error", err)
		return nil, false
	}
	metrics.TreeCache.WithLabelValues("hit").Inc()
	slog.Debug("tree cache hit", "container_id", containerID, "user_id", userID, "version", version)
	return val, true
}

// Set stores a snapshot under the version it was built at.
func (tc *TreeCache) Set(ctx context.Context, containerID, userID uuid.UUID, version string, data []byte) {
	if err := tc.client.Set(ctx, TreeKey(containerID, userID, version), data, tc.ttl).Err(); err != nil {
		slog.Warn("tree cache set error", "container_id", containerID, "error", err)
	}
}

// InvalidateView retires every cached version of one user's view of a
// container.
func (tc *TreeCache) InvalidateView(ctx context.Context, containerID, userID uuid.UUID) error {
	if err := tc.bump(ctx, ViewGenKey(containerID, userID)); err != nil {
		return fmt.Errorf("tree cache invalidate view: %w", err)
	}
	return nil
}

// Invalidate retires every user's cached views of the given containers.
func (tc *TreeCache) Invalidate(ctx context.Context, containerIDs ...uuid.UUID) error {
	keys := make([]string, len(containerIDs))
	for i, id := range containerIDs {
		keys[i] = ContainerGenKey(id)
	}
	if err := tc.bump(ctx, keys...); err != nil {
		return fmt.Errorf("tree cache invalidate: %w", err)
	}
	slog.Debug("tree cache invalidated", "containers", len(containerIDs))
	return nil
}

// bump increments the counters in one pipeline. The write it follows has
// already committed, so the bump outlives the caller's context and is
// retried a few times before giving up.
func (tc *TreeCache) bump(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	var err error
	for attempt := 1; attempt <= bumpAttempts; attempt++ {
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bumpTimeout)
		_, err = tc.client.TxPipelined(bctx, func(p redis.Pipeliner) error {
			for _, k := range keys {
				p.Incr(bctx, k)
				p.Expire(bctx, k, genTTL)
			}
			return nil
		})
		cancel()
		if err == nil {
			return nil
		}
		slog.Warn("tree cache generation bump failed", "attempt", attempt, "error", err)
		if attempt < bumpAttempts {
			time.Sleep(time.Duration(attempt) * 50 * time.Millisecond)
		}
	}
	return err
}
