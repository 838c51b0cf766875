// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// SeedEmail and SeedPassword are the credentials of the development user.
const (
	SeedEmail    = "demo@curator.local"
	SeedPassword = "demo"
)

// Seed populates the database with initial development data: one user and
// one container holding a small course-like hierarchy, including a group
// edge, a content edge and some recorded progress. It is a no-op when any
// user already exists.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed begin tx: %w", err)
	}
	defer tx.Rollback()

	s := seeder{tx: tx}
	userID := s.insert(`INSERT INTO users (email, password_hash, display_name) VALUES ($1, $2, $3) RETURNING id`,
		SeedEmail, string(hash), "Demo")

	course := s.insert(`INSERT INTO containers (owner_id, name, description, sort_order) VALUES ($1, $2, $3, 0) RETURNING id`,
		userID, "Go Fundamentals", "A self-paced course")

	basics := s.subContainer(course, userID, "Basics", 0)
	advanced := s.subContainer(course, userID, "Advanced", 1)

	syntax := s.group(basics, userID, "Syntax", 0)
	types := s.group(basics, userID, "Types", 1)
	generics := s.group(basics, userID, "Generics", 2)
	s.exec(`INSERT INTO group_edges (parent_id, child_id) VALUES ($1, $2)`, types, generics)
	concurrency := s.group(advanced, userID, "Concurrency", 0)

	hello := s.content(syntax, userID, "Hello, world", true, "video", 0)
	vars := s.content(syntax, userID, "Variables", true, "article", 1)
	s.content(types, userID, "Structs", true, "article", 0)
	s.content(generics, userID, "Type parameters", true, "video", 0)

	channels := s.content(concurrency, userID, "Channels", false, "section", 0)
	unbuffered := s.content(concurrency, userID, "Unbuffered channels", true, "video", 0)
	buffered := s.content(concurrency, userID, "Buffered channels", true, "exercise", 1)
	s.exec(`INSERT INTO content_edges (parent_id, child_id) VALUES ($1, $2), ($1, $3)`, channels, unbuffered, buffered)
	s.content(concurrency, userID, "Select", true, "article", 1)

	s.exec(`INSERT INTO content_progress (user_id, content_id, progress) VALUES ($1, $2, 100), ($1, $3, 50), ($1, $4, 100)`,
		userID, hello, vars, unbuffered)

	if s.err != nil {
		return fmt.Errorf("seed insert: %w", s.err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded with demo user",
		"email", SeedEmail,
		"password", SeedPassword,
	)

	return nil
}

// seeder runs inserts inside one transaction and keeps the first error.
type seeder struct {
	tx  *sql.Tx
	err error
}

func (s *seeder) insert(query string, args ...any) uuid.UUID {
	var id uuid.UUID
	if s.err != nil {
		return id
	}
	s.err = s.tx.QueryRow(query, args...).Scan(&id)
	return id
}

func (s *seeder) exec(query string, args ...any) {
	if s.err != nil {
		return
	}
	_, s.err = s.tx.Exec(query, args...)
}

func (s *seeder) subContainer(containerID, ownerID uuid.UUID, name string, order int) uuid.UUID {
	return s.insert(`INSERT INTO sub_containers (container_id, owner_id, name, sort_order) VALUES ($1, $2, $3, $4) RETURNING id`,
		containerID, ownerID, name, order)
}

func (s *seeder) group(subContainerID, ownerID uuid.UUID, name string, order int) uuid.UUID {
	return s.insert(`INSERT INTO content_groups (sub_container_id, owner_id, name, sort_order) VALUES ($1, $2, $3, $4) RETURNING id`,
		subContainerID, ownerID, name, order)
}

func (s *seeder) content(groupID, ownerID uuid.UUID, name string, viewable bool, itemType string, order int) uuid.UUID {
	return s.insert(`INSERT INTO content_items (group_id, owner_id, name, is_viewable, item_type, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		groupID, ownerID, name, viewable, itemType, order)
}
