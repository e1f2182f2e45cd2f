package identities

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/julianstephens/identityforge/internal/models"
)

// CastVoteMsg asks the parent model to cast a vote for an identity.
type CastVoteMsg struct {
	IdentityID uuid.UUID
	Name       string
}

type Item struct {
	Row models.IdentityDashboardItem
}

func (i Item) Title() string { return i.Row.IdentityName }
func (i Item) Description() string {
	return fmt.Sprintf("today %d | last 7 days %d | total %d",
		i.Row.VotesToday, i.Row.VotesLast7Days, i.Row.TotalVotes)
}
func (i Item) FilterValue() string { return i.Row.IdentityName }

type KeyMap struct {
	Vote key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Vote: key.NewBinding(
			key.WithKeys("v", "enter"),
			key.WithHelp("v", "cast vote"),
		),
	}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func New(rows []models.IdentityDashboardItem, width, height int) Model {
	l := list.New(toItems(rows), list.NewDefaultDelegate(), width, height)
	l.Title = "Identities"
	l.SetShowTitle(false)
	l.SetShowHelp(false) // help is rendered by the parent model

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Vote}
	}
	l.AdditionalFullHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Vote}
	}

	return Model{list: l, keys: keys}
}

// SetRows replaces the items, keeping the cursor where it was.
func (m *Model) SetRows(rows []models.IdentityDashboardItem) {
	m.list.SetItems(toItems(rows))
}

// Selected returns the highlighted row, if any.
func (m Model) Selected() (models.IdentityDashboardItem, bool) {
	i, ok := m.list.SelectedItem().(Item)
	if !ok {
		return models.IdentityDashboardItem{}, false
	}
	return i.Row, true
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	if msg, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		if key.Matches(msg, m.keys.Vote) {
			if row, ok := m.Selected(); ok {
				return m, func() tea.Msg {
					return CastVoteMsg{IdentityID: row.IdentityID, Name: row.IdentityName}
				}
			}
			return m, nil
		}
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 && m.list.FilterState() != list.Filtering {
		return "\n  No identities yet.\n  Add one with 'identityforge identity add NAME'."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}

func toItems(rows []models.IdentityDashboardItem) []list.Item {
	items := make([]list.Item, len(rows))
	for i, r := range rows {
		items[i] = Item{Row: r}
	}
	return items
}
