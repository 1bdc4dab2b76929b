package display

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ponytojas/go-parking-monitor/internal/models"
	"github.com/ponytojas/go-parking-monitor/internal/occupancy"
)

const (
	boxWidth  = 18
	boxHeight = 7
)

// colorUnknown is shown before the first snapshot arrives
const colorUnknown models.Color = "unknown"

// effectMsg carries a monitor effect into the bubbletea loop
type effectMsg struct {
	effect occupancy.Effect
}

// notificationFadeMsg clears the notification it was scheduled for. A newer
// notification bumps the sequence so stale fades are ignored.
type notificationFadeMsg struct {
	seq int
}

// Model is the bubbletea model of the parking screen
type Model struct {
	palette Palette
	ttl     time.Duration

	zones  []string
	states map[string]models.ZoneState

	notification    *occupancy.Notification
	notificationSeq int

	width int
}

// NewModel creates a screen showing one box per zone
func NewModel(zones []occupancy.Zone, ttl time.Duration) Model {
	ids := make([]string, len(zones))
	for i, zone := range zones {
		ids[i] = zone.ID
	}
	return Model{
		palette: DefaultPalette,
		ttl:     ttl,
		zones:   ids,
		states:  make(map[string]models.ZoneState, len(zones)),
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case effectMsg:
		return m.apply(msg.effect)

	case notificationFadeMsg:
		if msg.seq == m.notificationSeq {
			m.notification = nil
		}
	}
	return m, nil
}

func (m Model) apply(effect occupancy.Effect) (tea.Model, tea.Cmd) {
	switch e := effect.(type) {
	case occupancy.IndicatorUpdate:
		states := make(map[string]models.ZoneState, len(e.States))
		for _, state := range e.States {
			states[state.ZoneID] = state
		}
		m.states = states

	case occupancy.Notification:
		m.notificationSeq++
		note := e
		m.notification = &note
		seq := m.notificationSeq
		return m, tea.Tick(m.ttl, func(time.Time) tea.Msg {
			return notificationFadeMsg{seq: seq}
		})
	}
	return m, nil
}

// Color returns the current color of a zone's box
func (m Model) Color(zoneID string) models.Color {
	state, ok := m.states[zoneID]
	if !ok {
		return colorUnknown
	}
	return state.Color()
}

// Notification returns the visible notification text, if any
func (m Model) Notification() (string, bool) {
	if m.notification == nil {
		return "", false
	}
	return m.notification.Text, true
}

// View implements tea.Model
func (m Model) View() string {
	boxes := make([]string, 0, len(m.zones))
	for _, id := range m.zones {
		boxes = append(boxes, m.renderBox(id))
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("Parking occupancy"))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderBox(zoneID string) string {
	color := m.Color(zoneID)
	label := string(color)
	if state, ok := m.states[zoneID]; ok {
		label = fmt.Sprintf("%s %d/%d", color, state.Count, state.Size)
	}

	return lipgloss.NewStyle().
		Width(boxWidth).
		Height(boxHeight).
		Margin(0, 1).
		Align(lipgloss.Center, lipgloss.Center).
		Background(m.palette.Background(color)).
		Foreground(m.palette.Text).
		Render(zoneID + "\n\n" + label)
}

func (m Model) renderStatus() string {
	style := lipgloss.NewStyle().Faint(true)
	if m.notification == nil {
		return style.Render("q: quit")
	}
	if m.notification.Kind == occupancy.NotifyError {
		style = lipgloss.NewStyle().Foreground(m.palette.Error).Bold(true)
	} else {
		style = lipgloss.NewStyle()
	}
	return style.Render(m.notification.Text)
}
