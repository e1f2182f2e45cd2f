package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/identityforge/internal/constants"
	"github.com/julianstephens/identityforge/internal/models"
	"github.com/julianstephens/identityforge/internal/storage"
	"github.com/julianstephens/identityforge/internal/tui/components/history"
	"github.com/julianstephens/identityforge/internal/tui/components/identities"
)

type SessionState int

const (
	StateDashboard SessionState = iota
	StateHistory
)

const tabCount = 2

type Model struct {
	ctx        context.Context
	store      storage.Provider
	now        func() models.Millis
	state      SessionState
	keys       KeyMap
	help       help.Model
	identities identities.Model
	history    history.Model
	status     string
	err        error
	quitting   bool
	width      int
	height     int
}

// dataMsg carries a fresh read of the dashboard and vote history.
type dataMsg struct {
	dashboard []models.IdentityDashboardItem
	history   []models.VoteHistoryItem
}

type voteCastMsg struct {
	name string
	vote models.Vote
}

type errMsg struct {
	err error
}

func NewModel(ctx context.Context, store storage.Provider, now func() models.Millis) Model {
	return Model{
		ctx:        ctx,
		store:      store,
		now:        now,
		state:      StateDashboard,
		keys:       DefaultKeyMap(),
		help:       help.New(),
		identities: identities.New(nil, 0, 0),
		history:    history.New(0, 0),
	}
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.Refresh, m.keys.Quit, m.keys.Help}
	if m.state == StateDashboard {
		keys = append(keys, m.keys.Vote)
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Tab, m.keys.ShiftTab, m.keys.Refresh, m.keys.Quit, m.keys.Help}
	navigation := []key.Binding{m.keys.Up, m.keys.Down}

	var actions []key.Binding
	if m.state == StateDashboard {
		actions = []key.Binding{m.keys.Vote}
	}
	return [][]key.Binding{global, navigation, actions}
}

func (m Model) Init() tea.Cmd {
	return m.load()
}

func (m Model) load() tea.Cmd {
	return func() tea.Msg {
		dashboard, err := m.store.Identities().GetIdentityDashboardItems(m.ctx, m.now())
		if err != nil {
			return errMsg{err}
		}
		items, err := m.store.Identities().ListVoteHistory(m.ctx, constants.DefaultHistoryLimit)
		if err != nil {
			return errMsg{err}
		}
		return dataMsg{dashboard: dashboard, history: items}
	}
}

func (m Model) castVote(msg identities.CastVoteMsg) tea.Cmd {
	return func() tea.Msg {
		vote, err := m.store.Identities().CastVote(m.ctx, msg.IdentityID, m.now())
		if err != nil {
			return errMsg{err}
		}
		return voteCastMsg{name: msg.Name, vote: vote}
	}
}
