package occupancy

import "github.com/ponytojas/go-parking-monitor/internal/models"

// NotificationKind distinguishes success and failure notifications
type NotificationKind int

const (
	NotifyInfo NotificationKind = iota
	NotifyError
)

const (
	MessageReadOK     = "data read successfully"
	MessageReadFailed = "failed to read data"
)

// Effect is a UI mutation that must be applied on the UI-owning thread
type Effect interface {
	effect()
}

// IndicatorUpdate recolors the indicators from freshly evaluated states
type IndicatorUpdate struct {
	States []models.ZoneState
}

// Notification is a transient message shown to the user
type Notification struct {
	Text string
	Kind NotificationKind
}

func (IndicatorUpdate) effect() {}
func (Notification) effect()    {}

// Screen owns the UI thread. Post may be called from any goroutine and must
// apply effects in the order they were posted.
type Screen interface {
	Post(Effect)
}
