// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"curator/internal/models"
)

// ProgressStore manages per-user progress records for viewable content.
type ProgressStore struct {
	db *sql.DB
}

// NewProgressStore returns a new ProgressStore.
func NewProgressStore(db *sql.DB) *ProgressStore {
	return &ProgressStore{db: db}
}

// GetUserProgressMap returns the user's recorded progress for every
// viewable content item inside the container, keyed by content id. Items
// without a record are absent from the map.
func (s *ProgressStore) GetUserProgressMap(ctx context.Context, userID, containerID uuid.UUID) (map[uuid.UUID]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.content_id, p.progress
		FROM content_progress p
		JOIN content_items ci ON ci.id = p.content_id
		JOIN content_groups g ON g.id = ci.group_id
		JOIN sub_containers s ON s.id = g.sub_container_id
		WHERE p.user_id = $1 AND s.container_id = $2 AND ci.is_viewable`,
		userID, containerID)
	if err != nil {
		return nil, fmt.Errorf("get user progress map: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]float64)
	for rows.Next() {
		var (
			id uuid.UUID
			p  float64
		)
		if err := rows.Scan(&id, &p); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out[id] = p
	}
	return out, rows.Err()
}

// Get returns one progress record. Returns nil if none exists.
func (s *ProgressStore) Get(ctx context.Context, userID, contentID uuid.UUID) (*models.Progress, error) {
	p := &models.Progress{UserID: userID, ContentID: contentID}
	err := s.db.QueryRowContext(ctx, `
		SELECT progress, updated_at FROM content_progress
		WHERE user_id = $1 AND content_id = $2`, userID, contentID,
	).Scan(&p.Progress, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	return p, nil
}

// Upsert records the user's progress for a viewable content item. Values
// outside [0, 100] return ErrOutOfRange, unknown content ErrNotFound and
// organizational content ErrNotViewable.
func (s *ProgressStore) Upsert(ctx context.Context, userID, contentID uuid.UUID, value float64) (*models.Progress, error) {
	if value < 0 || value > 100 {
		return nil, ErrOutOfRange
	}

	p := &models.Progress{UserID: userID, ContentID: contentID}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO content_progress (user_id, content_id, progress)
		SELECT $1, id, $3 FROM content_items WHERE id = $2 AND is_viewable
		ON CONFLICT (user_id, content_id)
		DO UPDATE SET progress = EXCLUDED.progress, updated_at = NOW()
		RETURNING progress, updated_at`, userID, contentID, value,
	).Scan(&p.Progress, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		var viewable bool
		lookup := s.db.QueryRowContext(ctx, `SELECT is_viewable FROM content_items WHERE id = $1`, contentID).Scan(&viewable)
		if lookup == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		if lookup != nil {
			return nil, fmt.Errorf("upsert progress lookup: %w", lookup)
		}
		return nil, ErrNotViewable
	}
	if err != nil {
		return nil, fmt.Errorf("upsert progress: %w", err)
	}
	return p, nil
}

// Delete removes a progress record, resetting the item to 0%.
func (s *ProgressStore) Delete(ctx context.Context, userID, contentID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM content_progress WHERE user_id = $1 AND content_id = $2`, userID, contentID)
	if err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	return nil
}
