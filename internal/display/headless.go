package display

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ponytojas/go-parking-monitor/internal/models"
	"github.com/ponytojas/go-parking-monitor/internal/occupancy"
)

// Indicator is the current state of one zone's indicator
type Indicator struct {
	Zone     string       `json:"zone"`
	Count    int          `json:"count"`
	Size     int          `json:"size"`
	Occupied bool         `json:"occupied"`
	Color    models.Color `json:"color"`
}

// HeadlessScreen applies effects on its own goroutine without a terminal
type HeadlessScreen struct {
	logger  *slog.Logger
	effects chan occupancy.Effect
	done    chan struct{}

	postMu sync.RWMutex
	closed bool

	mu         sync.RWMutex
	indicators []Indicator
	updatedAt  time.Time
}

// NewHeadlessScreen starts the UI goroutine
func NewHeadlessScreen(zones []occupancy.Zone, bufferSize int, logger *slog.Logger) *HeadlessScreen {
	indicators := make([]Indicator, len(zones))
	for i, zone := range zones {
		indicators[i] = Indicator{Zone: zone.ID, Size: len(zone.Keys), Color: colorUnknown}
	}
	s := &HeadlessScreen{
		logger:     logger,
		effects:    make(chan occupancy.Effect, bufferSize),
		done:       make(chan struct{}),
		indicators: indicators,
	}
	go s.loop()
	return s
}

// Post implements occupancy.Screen. Effects posted after Close are dropped.
func (s *HeadlessScreen) Post(effect occupancy.Effect) {
	s.postMu.RLock()
	defer s.postMu.RUnlock()
	if s.closed {
		return
	}
	s.effects <- effect
}

// Close stops the UI goroutine after pending effects are applied
func (s *HeadlessScreen) Close() {
	s.postMu.Lock()
	if !s.closed {
		s.closed = true
		close(s.effects)
	}
	s.postMu.Unlock()
	<-s.done
}

// Indicators returns a copy of the indicator states and the time of the
// last update. The time is zero until the first snapshot was applied.
func (s *HeadlessScreen) Indicators() ([]Indicator, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Indicator(nil), s.indicators...), s.updatedAt
}

func (s *HeadlessScreen) loop() {
	defer close(s.done)
	for effect := range s.effects {
		switch e := effect.(type) {
		case occupancy.IndicatorUpdate:
			s.applyIndicators(e.States)
		case occupancy.Notification:
			if e.Kind == occupancy.NotifyError {
				s.logger.Error("notification", "text", e.Text)
			} else {
				s.logger.Info("notification", "text", e.Text)
			}
		}
	}
}

func (s *HeadlessScreen) applyIndicators(states []models.ZoneState) {
	byZone := make(map[string]models.ZoneState, len(states))
	for _, state := range states {
		byZone[state.ZoneID] = state
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.indicators {
		indicator := &s.indicators[i]
		state, ok := byZone[indicator.Zone]
		if !ok {
			continue
		}
		if indicator.Color != state.Color() {
			s.logger.Info("indicator changed", "zone", indicator.Zone, "from", indicator.Color, "to", state.Color())
		}
		indicator.Count = state.Count
		indicator.Size = state.Size
		indicator.Occupied = state.Full
		indicator.Color = state.Color()
	}
	s.updatedAt = time.Now()
}
