package history

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/identityforge/internal/models"
)

var (
	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(21)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)
)

type Model struct {
	viewport viewport.Model
	Items    []models.VoteHistoryItem
	width    int
	height   int
}

func New(width, height int) Model {
	return Model{viewport: viewport.New(width, height)}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.Items) == 0 {
		return "\n  No votes yet."
	}
	return m.viewport.View()
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.Render()
}

func (m *Model) SetItems(items []models.VoteHistoryItem) {
	m.Items = items
	m.Render()
}

func (m *Model) Render() {
	var b strings.Builder
	for _, item := range m.Items {
		fmt.Fprintf(&b, "%s %s\n",
			timeStyle.Render(item.CreatedAt.Time().Format("2006-01-02 15:04:05")),
			nameStyle.Render(item.IdentityName),
		)
	}
	m.viewport.SetContent(b.String())
}
