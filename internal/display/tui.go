package display

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ponytojas/go-parking-monitor/internal/occupancy"
)

// TUIScreen posts effects into a running bubbletea program. Effects sent
// after the program exits are discarded by the program.
type TUIScreen struct {
	program *tea.Program
}

// NewTUIScreen wraps a program created from a display Model
func NewTUIScreen(program *tea.Program) *TUIScreen {
	return &TUIScreen{program: program}
}

// Post implements occupancy.Screen
func (s *TUIScreen) Post(effect occupancy.Effect) {
	s.program.Send(effectMsg{effect: effect})
}
