// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"curator/internal/catalog"
	"curator/internal/database"
	"curator/internal/engine"
	"curator/internal/models"
	"curator/internal/store"
	"curator/internal/treeview"
	"curator/internal/tui"
)

var (
	browseUser      string
	browseContainer string
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse and rearrange a container in the terminal",
	RunE:  runBrowse,
}

func init() {
	browseCmd.Flags().StringVar(&browseUser, "user", database.SeedEmail, "email of the acting user")
	browseCmd.Flags().StringVar(&browseContainer, "container", "", "container id (defaults to the user's first container)")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	user, err := store.NewUserStore(db).FindByEmail(ctx, browseUser)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("no user with email %q", browseUser)
	}

	nodeStore := store.NewNodeStore(db)
	container, err := pickContainer(ctx, nodeStore, user.ID, browseContainer)
	if err != nil {
		return err
	}

	// No cache: the terminal view always reads the store directly.
	catalogSvc := catalog.NewService(nodeStore, store.NewProgressStore(db), nil)
	sess := treeview.New(catalogSvc, engine.New(nodeStore, catalogSvc), container.ID, user.ID)
	if err := sess.Rebuild(ctx); err != nil {
		return fmt.Errorf("load container: %w", err)
	}

	// Log lines would corrupt the alternate screen.
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	p := tea.NewProgram(tui.New(sess, container.Name), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// pickContainer resolves the --container flag, falling back to the owner's
// first container.
func pickContainer(ctx context.Context, nodes *store.NodeStore, ownerID uuid.UUID, flag string) (*models.Container, error) {
	containers, err := nodes.ListContainers(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}
	if len(containers) == 0 {
		return nil, fmt.Errorf("user has no containers")
	}
	if flag == "" {
		return &containers[0], nil
	}

	id, err := uuid.Parse(flag)
	if err != nil {
		return nil, fmt.Errorf("invalid container id: %w", err)
	}
	for i := range containers {
		if containers[i].ID == id {
			return &containers[i], nil
		}
	}
	return nil, fmt.Errorf("container %s not found for this user", id)
}
