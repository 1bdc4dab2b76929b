package display

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/ponytojas/go-parking-monitor/internal/models"
)

// Palette maps indicator colors to terminal colors
type Palette struct {
	Occupied lipgloss.Color
	Free     lipgloss.Color
	Unknown  lipgloss.Color
	Text     lipgloss.Color
	Error    lipgloss.Color
}

// DefaultPalette uses light red for occupied and light green for free
var DefaultPalette = Palette{
	Occupied: lipgloss.Color("#FF4444"),
	Free:     lipgloss.Color("#99CC00"),
	Unknown:  lipgloss.Color("240"),
	Text:     lipgloss.Color("#1A1A1A"),
	Error:    lipgloss.Color("#FF4444"),
}

// Background returns the box color for a zone
func (p Palette) Background(color models.Color) lipgloss.Color {
	switch color {
	case models.ColorOccupied:
		return p.Occupied
	case models.ColorFree:
		return p.Free
	default:
		return p.Unknown
	}
}
