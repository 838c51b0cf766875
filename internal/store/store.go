// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store provides database access methods for all curator entities.
// Each store struct wraps a *sql.DB and exposes typed query methods.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"curator/internal/models"
)

var (
	// ErrNotFound is returned when an id is absent from the database.
	ErrNotFound = errors.New("not found")

	// ErrNotViewable is returned when progress is recorded against
	// organizational content.
	ErrNotViewable = errors.New("content is not viewable")

	// ErrOutOfRange is returned for progress values outside [0, 100].
	ErrOutOfRange = errors.New("progress out of range")

	// ErrEdgeExists is returned when a child already has a parent edge.
	ErrEdgeExists = errors.New("child already has a parent edge")

	// ErrCycle is returned when an edge would make a node its own ancestor.
	ErrCycle = errors.New("edge would create a cycle")
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// kindTable maps a node kind to its table, structural parent column and
// relationship-edge table.
type kindTable struct {
	table     string
	parentCol string
	edgeTable string
}

var kindTables = map[models.Kind]kindTable{
	models.KindContainer:    {table: "containers"},
	models.KindSubContainer: {table: "sub_containers", parentCol: "container_id"},
	models.KindGroup:        {table: "content_groups", parentCol: "sub_container_id", edgeTable: "group_edges"},
	models.KindContent:      {table: "content_items", parentCol: "group_id", edgeTable: "content_edges"},
}

func tableFor(kind models.Kind) (kindTable, error) {
	t, ok := kindTables[kind]
	if !ok {
		return kindTable{}, fmt.Errorf("unknown kind %q", kind)
	}
	return t, nil
}

// rowsAffectedOne converts a zero-row write into ErrNotFound.
func rowsAffectedOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
