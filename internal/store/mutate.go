// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"curator/internal/models"
)

// ApplyReorder rewrites sort_order for a batch of nodes in a single
// transaction. Either every row is updated or none is: an id that matches no
// row rolls the whole batch back with ErrNotFound.
func (s *NodeStore) ApplyReorder(ctx context.Context, updates []models.OrderUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := applyOrders(ctx, tx, updates); err != nil {
		return err
	}
	return tx.Commit()
}

// applyOrders prepares one UPDATE per kind and runs every update through it.
func applyOrders(ctx context.Context, tx *sql.Tx, updates []models.OrderUpdate) error {
	stmts := make(map[models.Kind]*sql.Stmt)
	defer func() {
		for _, stmt := range stmts {
			stmt.Close()
		}
	}()

	now := time.Now()
	for _, u := range updates {
		stmt, ok := stmts[u.Kind]
		if !ok {
			t, err := tableFor(u.Kind)
			if err != nil {
				return err
			}
			stmt, err = tx.PrepareContext(ctx, `UPDATE `+t.table+` SET sort_order = $1, updated_at = $2 WHERE id = $3`)
			if err != nil {
				return fmt.Errorf("prepare reorder %s: %w", u.Kind, err)
			}
			stmts[u.Kind] = stmt
		}
		res, err := stmt.ExecContext(ctx, u.Order, now, u.ID)
		if err != nil {
			return fmt.Errorf("reorder %s %s: %w", u.Kind, u.ID, err)
		}
		if err := rowsAffectedOne(res); err != nil {
			return fmt.Errorf("reorder %s %s: %w", u.Kind, u.ID, err)
		}
	}
	return nil
}

// ApplyMove reparents a node and renumbers its new siblings in one
// transaction. Any previous parent edge of the node is removed; when the new
// parent has the same kind a fresh edge is inserted and the node (with its
// edge subtree) adopts the parent's structural parent so that sibling scopes
// stay consistent.
func (s *NodeStore) ApplyMove(ctx context.Context, plan models.MovePlan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	node, parent := plan.Node, plan.NewParent
	t, err := tableFor(node.Kind)
	if err != nil {
		return err
	}

	switch node.Kind {
	case models.KindContainer:
		// Containers only move within their owner's root scope.
	case models.KindSubContainer:
		res, err := tx.ExecContext(ctx,
			`UPDATE sub_containers SET container_id = $1, updated_at = NOW() WHERE id = $2`,
			parent.ID, node.ID)
		if err != nil {
			return fmt.Errorf("move sub-container: %w", err)
		}
		if err := rowsAffectedOne(res); err != nil {
			return fmt.Errorf("move sub-container: %w", err)
		}
	case models.KindGroup, models.KindContent:
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+t.edgeTable+` WHERE child_id = $1`, node.ID); err != nil {
			return fmt.Errorf("detach %s: %w", node.Kind, err)
		}

		structural := parent.ID
		if parent.Kind == node.Kind {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO `+t.edgeTable+` (parent_id, child_id) VALUES ($1, $2)`,
				parent.ID, node.ID); err != nil {
				return fmt.Errorf("attach %s: %w", node.Kind, err)
			}
			structural = parent.StructuralParentID
		}

		res, err := tx.ExecContext(ctx, `
			WITH RECURSIVE sub AS (
				SELECT $1::uuid AS id
				UNION
				SELECT e.child_id FROM `+t.edgeTable+` e JOIN sub ON e.parent_id = sub.id
			)
			UPDATE `+t.table+` SET `+t.parentCol+` = $2, updated_at = NOW()
			WHERE id IN (SELECT id FROM sub)`, node.ID, structural)
		if err != nil {
			return fmt.Errorf("move %s: %w", node.Kind, err)
		}
		if err := rowsAffectedOne(res); err != nil {
			return fmt.Errorf("move %s: %w", node.Kind, err)
		}
	default:
		return fmt.Errorf("move: unknown kind %q", node.Kind)
	}

	if err := applyOrders(ctx, tx, plan.Orders); err != nil {
		return err
	}
	return tx.Commit()
}

// AddEdge links child under parent through the relationship-edge table of
// their kind. A child may have at most one parent edge and an edge may not
// close a cycle. The child adopts the parent's structural parent.
func (s *NodeStore) AddEdge(ctx context.Context, kind models.Kind, parentID, childID uuid.UUID) error {
	t, err := tableFor(kind)
	if err != nil {
		return err
	}
	if t.edgeTable == "" {
		return fmt.Errorf("add edge: %s has no relationship edges", kind)
	}
	if parentID == childID {
		return ErrCycle
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	cycle, err := isDescendant(ctx, tx, kind, childID, parentID)
	if err != nil {
		return err
	}
	if cycle {
		return ErrCycle
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO `+t.edgeTable+` (parent_id, child_id)
		SELECT $1, $2
		WHERE NOT EXISTS (SELECT 1 FROM `+t.edgeTable+` WHERE child_id = $2)`, parentID, childID)
	if err != nil {
		return fmt.Errorf("add edge: %w", err)
	}
	if err := rowsAffectedOne(res); err != nil {
		return ErrEdgeExists
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE `+t.table+` SET `+t.parentCol+` = (SELECT `+t.parentCol+` FROM `+t.table+` WHERE id = $1),
		       updated_at = NOW()
		WHERE id = $2`, parentID, childID); err != nil {
		return fmt.Errorf("align edge child: %w", err)
	}
	return tx.Commit()
}

// Delete removes a node. Structural descendants and edges referencing any
// removed row go through ON DELETE CASCADE; relationship-edge descendants are
// collected recursively and removed in the same transaction.
func (s *NodeStore) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ref, err := locate(ctx, tx, id)
	if err != nil {
		return err
	}
	t, err := tableFor(ref.Kind)
	if err != nil {
		return err
	}

	query := `DELETE FROM ` + t.table + ` WHERE id = $1`
	if t.edgeTable != "" {
		query = `
			WITH RECURSIVE sub AS (
				SELECT $1::uuid AS id
				UNION
				SELECT e.child_id FROM ` + t.edgeTable + ` e JOIN sub ON e.parent_id = sub.id
			)
			DELETE FROM ` + t.table + ` WHERE id IN (SELECT id FROM sub)`
	}
	res, err := tx.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", ref.Kind, err)
	}
	if err := rowsAffectedOne(res); err != nil {
		return fmt.Errorf("delete %s: %w", ref.Kind, err)
	}
	return tx.Commit()
}

// CreateContainer inserts a container at the end of its owner's list.
func (s *NodeStore) CreateContainer(ctx context.Context, c *models.Container) (*models.Container, error) {
	out := *c
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO containers (owner_id, name, description, sort_order)
		VALUES ($1, $2, $3, (SELECT COUNT(*) FROM containers WHERE owner_id = $1))
		RETURNING id, sort_order, created_at, updated_at`,
		c.OwnerID, c.Name, c.Description,
	).Scan(&out.ID, &out.SortOrder, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create container: %w", err)
	}
	return &out, nil
}

// CreateSubContainer inserts a sub-container at the end of its container.
func (s *NodeStore) CreateSubContainer(ctx context.Context, sc *models.SubContainer) (*models.SubContainer, error) {
	out := *sc
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sub_containers (container_id, owner_id, name, description, sort_order)
		VALUES ($1, $2, $3, $4, (SELECT COUNT(*) FROM sub_containers WHERE container_id = $1))
		RETURNING id, sort_order, created_at, updated_at`,
		sc.ContainerID, sc.OwnerID, sc.Name, sc.Description,
	).Scan(&out.ID, &out.SortOrder, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create sub-container: %w", err)
	}
	return &out, nil
}

// CreateGroup inserts a group at the end of its sub-container.
func (s *NodeStore) CreateGroup(ctx context.Context, g *models.Group) (*models.Group, error) {
	out := *g
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO content_groups (sub_container_id, owner_id, name, description, sort_order)
		VALUES ($1, $2, $3, $4, (SELECT COUNT(*) FROM content_groups WHERE sub_container_id = $1))
		RETURNING id, sort_order, created_at, updated_at`,
		g.SubContainerID, g.OwnerID, g.Name, g.Description,
	).Scan(&out.ID, &out.SortOrder, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return &out, nil
}

// CreateContent inserts a content item at the end of its group.
func (s *NodeStore) CreateContent(ctx context.Context, c *models.Content) (*models.Content, error) {
	if c.ItemType == "" {
		c.ItemType = models.ItemTypeArticle
	}
	if !c.ItemType.Valid() {
		return nil, fmt.Errorf("create content: invalid item type %q", c.ItemType)
	}
	out := *c
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO content_items (group_id, owner_id, name, description, is_viewable, item_type, release_date, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, (SELECT COUNT(*) FROM content_items WHERE group_id = $1))
		RETURNING id, sort_order, created_at, updated_at`,
		c.GroupID, c.OwnerID, c.Name, c.Description, c.IsViewable, c.ItemType, c.ReleaseDate,
	).Scan(&out.ID, &out.SortOrder, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create content: %w", err)
	}
	return &out, nil
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
