// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package tui is the terminal browser for one container: an expandable tree
// with progress percentages and keyboard drag-and-drop.
//
// The model runs inside the bubbletea event loop and is not safe for use from
// other goroutines. Drops are applied synchronously so the session is never
// touched outside Update.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"curator/internal/treeview"
)

const opTimeout = 10 * time.Second

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	draggedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	doneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Model is the bubbletea model over a treeview.Session.
type Model struct {
	session *treeview.Session
	title   string

	status   string
	failed   bool
	width    int
	quitting bool
}

// New creates a Model. The session must already be built.
func New(session *treeview.Session, title string) Model {
	return Model{session: session, title: title}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	state, _ := m.session.DragState()
	dragging := state == treeview.DragActive

	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		m.session.MoveSelection(-1)
	case "down", "j":
		m.session.MoveSelection(1)
	case "esc":
		if dragging {
			m.session.CancelDrag()
			m.setStatus("drag cancelled", false)
		}
	case "m":
		if dragging {
			break
		}
		if err := m.session.BeginDrag(m.session.Selected()); err != nil {
			m.setStatus("select a node first", true)
			break
		}
		m.setStatus("dragging: enter drops before the cursor, right drops into it, esc cancels", false)
	case "enter", " ":
		if dragging && msg.String() == "enter" {
			m.dropBefore()
			break
		}
		if id := m.session.Selected(); id != uuid.Nil {
			if err := m.session.Toggle(id); err != nil {
				m.setStatus(err.Error(), true)
			}
		}
	case "right", "l":
		if dragging {
			m.dropInto()
		}
	case "r":
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		if err := m.session.Rebuild(ctx); err != nil {
			m.setStatus(err.Error(), true)
			break
		}
		m.setStatus("reloaded", false)
	}
	return m, nil
}

// dropBefore places the dragged node in front of the row under the cursor.
func (m *Model) dropBefore() {
	target, ok := m.selectedRow()
	if !ok {
		m.setStatus("no drop target", true)
		return
	}
	_, dragID := m.session.DragState()
	if target.ID == dragID {
		m.session.CancelDrag()
		m.setStatus("dropped in place", false)
		return
	}
	index := 0
	for _, sib := range m.session.View().Tree.RenderedChildren(target.ParentID) {
		if sib.ID == target.ID {
			break
		}
		if sib.ID != dragID {
			index++
		}
	}
	m.drop(target.ParentID, index)
}

// dropInto places the dragged node first inside the folder under the cursor.
func (m *Model) dropInto() {
	target, ok := m.selectedRow()
	if !ok || !target.IsFolder {
		m.setStatus("drop target must be a folder", true)
		return
	}
	m.drop(target.ID, 0)
}

func (m *Model) drop(parentID uuid.UUID, index int) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res := m.session.Drop(ctx, parentID, index)
	if !res.OK {
		m.setStatus(fmt.Sprintf("%s: %s", res.Failure.Kind, res.Failure.Message), true)
		return
	}
	m.setStatus("saved", false)
}

func (m Model) selectedRow() (treeview.Row, bool) {
	for _, r := range m.session.Rows() {
		if r.Selected {
			return r, true
		}
	}
	return treeview.Row{}, false
}

func (m *Model) setStatus(s string, failed bool) {
	m.status = s
	m.failed = failed
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	if v := m.session.View(); v != nil {
		sum := v.Aggregator.Summary()
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %d/%d complete", sum.CompletedItems, sum.TotalItems)))
	}
	b.WriteString("\n\n")

	rows := m.session.Rows()
	if len(rows) == 0 {
		b.WriteString(dimStyle.Render("  (empty)"))
		b.WriteString("\n")
	}
	for _, r := range rows {
		b.WriteString(renderRow(r))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.status != "" {
		if m.failed {
			b.WriteString(errorStyle.Render(m.status))
		} else {
			b.WriteString(dimStyle.Render(m.status))
		}
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("↑/↓ move · enter toggle · m drag · r reload · q quit"))
	return b.String()
}

func renderRow(r treeview.Row) string {
	marker := "  "
	if r.IsFolder {
		marker = "▸ "
		if r.Expanded {
			marker = "▾ "
		}
	}
	line := fmt.Sprintf("%s%s%s %s", strings.Repeat("  ", r.Depth), marker, r.Name, percentLabel(r))

	switch {
	case r.Dragged:
		line = draggedStyle.Render(line + "  ⇅")
	case r.Completed:
		line = doneStyle.Render(line)
	}
	if r.Selected {
		line = selectedStyle.Render(line)
	}
	return line
}

func percentLabel(r treeview.Row) string {
	if r.Completed {
		return "✓"
	}
	return fmt.Sprintf("%d%%", r.Percent)
}
