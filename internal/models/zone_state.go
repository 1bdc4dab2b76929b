package models

// Color is the semantic color of an indicator
type Color string

const (
	ColorFree     Color = "free"
	ColorOccupied Color = "occupied"
)

// ZoneState is the occupancy derived for one zone from a single snapshot
type ZoneState struct {
	ZoneID string `json:"zone"`
	Count  int    `json:"count"`
	Size   int    `json:"size"`
	Full   bool   `json:"occupied"`
}

// Color returns the indicator color for the state
func (s ZoneState) Color() Color {
	if s.Full {
		return ColorOccupied
	}
	return ColorFree
}
