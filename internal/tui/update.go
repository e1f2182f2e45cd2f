package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/identityforge/internal/logger"
	"github.com/julianstephens/identityforge/internal/tui/components/identities"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		// Tabs, status line and help take four rows.
		m.identities.SetSize(msg.Width, msg.Height-4)
		m.history.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Tab):
			m.state = (m.state + 1) % tabCount
			return m, nil
		case key.Matches(msg, m.keys.ShiftTab):
			m.state = (m.state - 1 + tabCount) % tabCount
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Refresh):
			return m, m.load()
		}

	case identities.CastVoteMsg:
		return m, m.castVote(msg)

	case voteCastMsg:
		m.status = fmt.Sprintf("✓ Vote cast for %s", msg.name)
		m.err = nil
		logger.Debug("Vote cast from TUI", "vote_id", msg.vote.ID, "habit_id", msg.vote.HabitID)
		return m, m.load()

	case dataMsg:
		m.identities.SetRows(msg.dashboard)
		m.history.SetItems(msg.history)
		return m, nil

	case errMsg:
		m.err = msg.err
		logger.Error("TUI store operation failed", "error", msg.err)
		return m, nil
	}

	switch m.state {
	case StateDashboard:
		m.identities, cmd = m.identities.Update(msg)
	case StateHistory:
		m.history, cmd = m.history.Update(msg)
	}
	return m, cmd
}
