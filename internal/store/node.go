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

// NodeStore reads and rewrites the hierarchy tables: containers,
// sub-containers, groups, content items and both relationship-edge sets.
type NodeStore struct {
	db *sql.DB
}

// NewNodeStore returns a new NodeStore.
func NewNodeStore(db *sql.DB) *NodeStore {
	return &NodeStore{db: db}
}

// scopeCTEs returns the common table expressions that select every group
// ("grps") and content item ("items") reachable from a scope of the given
// kind, plus its sub-containers ("subs"). Group and content scopes include
// the scope row itself so edges hanging off it are reachable; callers filter
// it out of node lists. UNION in the recursive terms stops on edge cycles.
func scopeCTEs(kind models.Kind) (string, error) {
	switch kind {
	case models.KindContainer:
		return `WITH RECURSIVE
			subs AS (SELECT * FROM sub_containers WHERE container_id = $1),
			grps AS (SELECT g.* FROM content_groups g JOIN subs s ON g.sub_container_id = s.id),
			items AS (SELECT c.* FROM content_items c JOIN grps g ON c.group_id = g.id)`, nil
	case models.KindSubContainer:
		return `WITH RECURSIVE
			subs AS (SELECT * FROM sub_containers WHERE FALSE),
			grps AS (SELECT * FROM content_groups WHERE sub_container_id = $1),
			items AS (SELECT c.* FROM content_items c JOIN grps g ON c.group_id = g.id)`, nil
	case models.KindGroup:
		return `WITH RECURSIVE
			subs AS (SELECT * FROM sub_containers WHERE FALSE),
			grps AS (
				SELECT * FROM content_groups WHERE id = $1
				UNION
				SELECT g.* FROM content_groups g
				JOIN group_edges e ON e.child_id = g.id
				JOIN grps p ON e.parent_id = p.id
			),
			items AS (SELECT c.* FROM content_items c JOIN grps g ON c.group_id = g.id)`, nil
	case models.KindContent:
		return `WITH RECURSIVE
			subs AS (SELECT * FROM sub_containers WHERE FALSE),
			grps AS (SELECT * FROM content_groups WHERE FALSE),
			items AS (
				SELECT * FROM content_items WHERE id = $1
				UNION
				SELECT c.* FROM content_items c
				JOIN content_edges e ON e.child_id = c.id
				JOIN items p ON e.parent_id = p.id
			)`, nil
	}
	return "", fmt.Errorf("unknown scope kind %q", kind)
}

// nodeSelect projects the scope CTEs onto the flat Node shape.
const nodeSelect = `
	SELECT id, 'sub_container', name, description, sort_order, owner_id, container_id,
	       FALSE, '', NULL::timestamptz, created_at, updated_at
	FROM subs
	UNION ALL
	SELECT id, 'group', name, description, sort_order, owner_id, sub_container_id,
	       FALSE, '', NULL::timestamptz, created_at, updated_at
	FROM grps WHERE id <> $1
	UNION ALL
	SELECT id, 'content', name, description, sort_order, owner_id, group_id,
	       is_viewable, item_type, release_date, created_at, updated_at
	FROM items WHERE id <> $1
	ORDER BY 5, 1`

func scanNode(scanner interface{ Scan(...any) error }) (models.Node, error) {
	var (
		n        models.Node
		kind     string
		itemType string
		parentID uuid.NullUUID
		release  sql.NullTime
	)
	err := scanner.Scan(
		&n.ID, &kind, &n.Name, &n.Description, &n.Order, &n.OwnerID, &parentID,
		&n.Viewable, &itemType, &release, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return n, err
	}
	n.Kind = models.Kind(kind)
	n.ItemType = models.ItemType(itemType)
	if parentID.Valid {
		id := parentID.UUID
		n.ParentID = &id
	}
	if release.Valid {
		t := release.Time
		n.ReleaseDate = &t
	}
	return n, nil
}

// GetByParentScope returns every node below the scope, ordered by
// sort_order with id as the tie-breaker. The scope node itself is excluded.
// Results are always read fresh from the database.
func (s *NodeStore) GetByParentScope(ctx context.Context, scopeID uuid.UUID) ([]models.Node, error) {
	ref, err := s.Locate(ctx, scopeID)
	if err != nil {
		return nil, err
	}
	ctes, err := scopeCTEs(ref.Kind)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, ctes+nodeSelect, scopeID)
	if err != nil {
		return nil, fmt.Errorf("get by parent scope: %w", err)
	}
	defer rows.Close()

	var nodes []models.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// GetRelationshipEdges returns the group and content edges whose parent
// lies strictly below the scope, oldest first. Edges whose child falls
// outside the scope are returned as-is; the hierarchy builder reports them.
func (s *NodeStore) GetRelationshipEdges(ctx context.Context, scopeID uuid.UUID) ([]models.Edge, error) {
	ref, err := s.Locate(ctx, scopeID)
	if err != nil {
		return nil, err
	}
	ctes, err := scopeCTEs(ref.Kind)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, ctes+`
		SELECT parent_id, child_id, 'group', created_at FROM group_edges
		WHERE parent_id IN (SELECT id FROM grps) AND parent_id <> $1
		UNION ALL
		SELECT parent_id, child_id, 'content', created_at FROM content_edges
		WHERE parent_id IN (SELECT id FROM items) AND parent_id <> $1
		ORDER BY 4, 1, 2`, scopeID)
	if err != nil {
		return nil, fmt.Errorf("get relationship edges: %w", err)
	}
	defer rows.Close()

	var edges []models.Edge
	for rows.Next() {
		var (
			e    models.Edge
			kind string
			at   sql.NullTime
		)
		if err := rows.Scan(&e.ParentID, &e.ChildID, &kind, &at); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		e.Kind = models.Kind(kind)
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// locateQuery resolves any id to its kind, structural parent, first edge
// parent, top-level container and that container's owner.
const locateQuery = `
	SELECT kind, structural_parent, edge_parent, container_id, owner_id, sort_order FROM (
		SELECT 'container' AS kind, NULL::uuid AS structural_parent, NULL::uuid AS edge_parent,
		       c.id AS container_id, c.owner_id, c.sort_order
		FROM containers c WHERE c.id = $1
		UNION ALL
		SELECT 'sub_container', s.container_id, NULL::uuid, c.id, c.owner_id, s.sort_order
		FROM sub_containers s JOIN containers c ON c.id = s.container_id
		WHERE s.id = $1
		UNION ALL
		SELECT 'group', g.sub_container_id,
		       (SELECT e.parent_id FROM group_edges e WHERE e.child_id = g.id
		        ORDER BY e.created_at, e.parent_id LIMIT 1),
		       c.id, c.owner_id, g.sort_order
		FROM content_groups g
		JOIN sub_containers s ON s.id = g.sub_container_id
		JOIN containers c ON c.id = s.container_id
		WHERE g.id = $1
		UNION ALL
		SELECT 'content', ci.group_id,
		       (SELECT e.parent_id FROM content_edges e WHERE e.child_id = ci.id
		        ORDER BY e.created_at, e.parent_id LIMIT 1),
		       c.id, c.owner_id, ci.sort_order
		FROM content_items ci
		JOIN content_groups g ON g.id = ci.group_id
		JOIN sub_containers s ON s.id = g.sub_container_id
		JOIN containers c ON c.id = s.container_id
		WHERE ci.id = $1
	) located LIMIT 1`

// Locate resolves a bare id to its position in the hierarchy. Returns
// ErrNotFound if the id belongs to no entity table.
func (s *NodeStore) Locate(ctx context.Context, id uuid.UUID) (models.NodeRef, error) {
	return locate(ctx, s.db, id)
}

func locate(ctx context.Context, q queryer, id uuid.UUID) (models.NodeRef, error) {
	var (
		ref        = models.NodeRef{ID: id}
		kind       string
		structural uuid.NullUUID
		edge       uuid.NullUUID
	)
	err := q.QueryRowContext(ctx, locateQuery, id).Scan(
		&kind, &structural, &edge, &ref.ContainerID, &ref.OwnerID, &ref.Order,
	)
	if err == sql.ErrNoRows {
		return models.NodeRef{}, ErrNotFound
	}
	if err != nil {
		return models.NodeRef{}, fmt.Errorf("locate %s: %w", id, err)
	}
	ref.Kind = models.Kind(kind)
	if structural.Valid {
		ref.StructuralParentID = structural.UUID
		ref.ParentID = structural.UUID
	}
	if edge.Valid {
		ref.ParentID = edge.UUID
		ref.EdgeParent = true
	}
	return ref, nil
}

// Children returns the ordered tree children of parent. A zero parent with
// OwnerID set stands for the owner's root scope and yields their containers.
// Edge children take precedence over structural nesting: a content item
// with a parent edge is not listed under its group.
func (s *NodeStore) Children(ctx context.Context, parent models.NodeRef) ([]models.NodeRef, error) {
	var (
		query string
		arg   uuid.UUID
	)
	switch {
	case parent.IsZero():
		query = `SELECT id, 'container', sort_order, owner_id FROM containers WHERE owner_id = $1`
		arg = parent.OwnerID
	case parent.Kind == models.KindContainer:
		query = `SELECT id, 'sub_container', sort_order, container_id FROM sub_containers WHERE container_id = $1`
		arg = parent.ID
	case parent.Kind == models.KindSubContainer:
		query = `SELECT g.id, 'group', g.sort_order, g.sub_container_id FROM content_groups g
			WHERE g.sub_container_id = $1
			AND NOT EXISTS (SELECT 1 FROM group_edges e WHERE e.child_id = g.id)`
		arg = parent.ID
	case parent.Kind == models.KindGroup:
		query = `SELECT g.id, 'group', g.sort_order, g.sub_container_id FROM content_groups g
			JOIN group_edges e ON e.child_id = g.id WHERE e.parent_id = $1
			UNION ALL
			SELECT c.id, 'content', c.sort_order, c.group_id FROM content_items c
			WHERE c.group_id = $1
			AND NOT EXISTS (SELECT 1 FROM content_edges e WHERE e.child_id = c.id)`
		arg = parent.ID
	case parent.Kind == models.KindContent:
		query = `SELECT c.id, 'content', c.sort_order, c.group_id FROM content_items c
			JOIN content_edges e ON e.child_id = c.id WHERE e.parent_id = $1`
		arg = parent.ID
	default:
		return nil, fmt.Errorf("children: unknown kind %q", parent.Kind)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT * FROM (`+query+`) children ORDER BY 3, 1`, arg)
	if err != nil {
		return nil, fmt.Errorf("children of %s: %w", parent.ID, err)
	}
	defer rows.Close()

	var out []models.NodeRef
	for rows.Next() {
		var (
			ref  models.NodeRef
			kind string
		)
		if err := rows.Scan(&ref.ID, &kind, &ref.Order, &ref.StructuralParentID); err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		ref.Kind = models.Kind(kind)
		ref.ParentID = parent.ID
		ref.OwnerID = parent.OwnerID
		ref.ContainerID = parent.ContainerID
		if parent.IsZero() {
			ref.ContainerID = ref.ID
			ref.StructuralParentID = uuid.Nil
		}
		ref.EdgeParent = !parent.IsZero() && ref.Kind == parent.Kind
		out = append(out, ref)
	}
	return out, rows.Err()
}

// IsDescendant reports whether nodeID lies in the relationship-edge subtree
// rooted at ancestorID. Only edges of the given kind are followed, which is
// sufficient for cycle checks: structural nesting never points upward.
func (s *NodeStore) IsDescendant(ctx context.Context, kind models.Kind, ancestorID, nodeID uuid.UUID) (bool, error) {
	return isDescendant(ctx, s.db, kind, ancestorID, nodeID)
}

func isDescendant(ctx context.Context, q queryer, kind models.Kind, ancestorID, nodeID uuid.UUID) (bool, error) {
	t, err := tableFor(kind)
	if err != nil {
		return false, err
	}
	if t.edgeTable == "" {
		return false, nil
	}
	var found bool
	err = q.QueryRowContext(ctx, `
		WITH RECURSIVE sub AS (
			SELECT child_id AS id FROM `+t.edgeTable+` WHERE parent_id = $1
			UNION
			SELECT e.child_id FROM `+t.edgeTable+` e JOIN sub ON e.parent_id = sub.id
		)
		SELECT EXISTS (SELECT 1 FROM sub WHERE id = $2)`, ancestorID, nodeID).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("is descendant: %w", err)
	}
	return found, nil
}

// ListContainers returns the owner's containers in display order.
func (s *NodeStore) ListContainers(ctx context.Context, ownerID uuid.UUID) ([]models.Container, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, description, sort_order, created_at, updated_at
		FROM containers WHERE owner_id = $1
		ORDER BY sort_order, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}
	defer rows.Close()

	var items []models.Container
	for rows.Next() {
		var c models.Container
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Description, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan container: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}
