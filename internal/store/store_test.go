// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"curator/internal/database"
	"curator/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "curator")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "curator")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped. A cleanup
// function is registered to close the connection when the test finishes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := testDSN()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Downgrade goose global state.
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// cleanUsers removes test users by email. Owned hierarchies cascade.
func cleanUsers(t *testing.T, db *sql.DB, emails ...string) {
	t.Helper()
	for _, email := range emails {
		db.Exec("DELETE FROM users WHERE email = $1", email)
	}
}

// fixture is a small hierarchy owned by a throwaway user:
//
//	Container
//	└── Sub
//	    ├── G1: A, B, X
//	    └── G2: Y
type fixture struct {
	owner     *models.User
	container *models.Container
	sub       *models.SubContainer
	g1, g2    *models.Group
	a, b, x   *models.Content
	y         *models.Content
}

// newFixture builds the fixture hierarchy and registers cleanup for it.
func newFixture(t *testing.T, db *sql.DB, email string) *fixture {
	t.Helper()
	ctx := context.Background()
	t.Cleanup(func() { cleanUsers(t, db, email) })
	cleanUsers(t, db, email)

	users := NewUserStore(db)
	nodes := NewNodeStore(db)

	owner, err := users.Create(ctx, email, "pass", "Fixture")
	if err != nil {
		t.Fatalf("create owner: %v", err)
	}
	f := &fixture{owner: owner}

	if f.container, err = nodes.CreateContainer(ctx, &models.Container{OwnerID: owner.ID, Name: "Container"}); err != nil {
		t.Fatalf("create container: %v", err)
	}
	if f.sub, err = nodes.CreateSubContainer(ctx, &models.SubContainer{ContainerID: f.container.ID, OwnerID: owner.ID, Name: "Sub"}); err != nil {
		t.Fatalf("create sub-container: %v", err)
	}
	if f.g1, err = nodes.CreateGroup(ctx, &models.Group{SubContainerID: f.sub.ID, OwnerID: owner.ID, Name: "G1"}); err != nil {
		t.Fatalf("create G1: %v", err)
	}
	if f.g2, err = nodes.CreateGroup(ctx, &models.Group{SubContainerID: f.sub.ID, OwnerID: owner.ID, Name: "G2"}); err != nil {
		t.Fatalf("create G2: %v", err)
	}

	content := func(group *models.Group, name string, viewable bool) *models.Content {
		c, err := nodes.CreateContent(ctx, &models.Content{GroupID: group.ID, OwnerID: owner.ID, Name: name, IsViewable: viewable})
		if err != nil {
			t.Fatalf("create content %s: %v", name, err)
		}
		return c
	}
	f.a = content(f.g1, "A", true)
	f.b = content(f.g1, "B", true)
	f.x = content(f.g1, "X", false)
	f.y = content(f.g2, "Y", true)
	return f
}

// names maps the nodes' ids to their names in order.
func names(nodes []models.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name
	}
	return out
}
