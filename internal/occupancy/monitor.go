package occupancy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ponytojas/go-parking-monitor/internal/models"
)

// DefaultPath is the store path holding the sensor readings
const DefaultPath = "sensorData"

var (
	ErrAlreadyStarted = errors.New("monitor already started")
	ErrClosed         = errors.New("monitor closed")
)

// Monitor keeps one subscription on the store path and turns every
// snapshot into indicator updates for the screen
type Monitor struct {
	store  Store
	screen Screen
	zones  []Zone
	path   string
	logger *slog.Logger
	sink   DiagnosticSink

	started atomic.Bool
	closed  atomic.Bool

	mu  sync.Mutex
	sub Subscription
}

// Option configures a Monitor
type Option func(*Monitor)

// WithLogger sets the logger used for diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = logger
	}
}

// WithPath overrides the monitored store path
func WithPath(path string) Option {
	return func(m *Monitor) {
		m.path = path
	}
}

// WithDiagnosticSink adds a side channel receiving every snapshot entry
func WithDiagnosticSink(sink DiagnosticSink) Option {
	return func(m *Monitor) {
		m.sink = sink
	}
}

// New creates a monitor. Zones are copied.
func New(store Store, screen Screen, zones []Zone, opts ...Option) (*Monitor, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if screen == nil {
		return nil, errors.New("screen is required")
	}
	if err := ValidateZones(zones); err != nil {
		return nil, fmt.Errorf("invalid zones: %w", err)
	}

	m := &Monitor{
		store:  store,
		screen: screen,
		zones:  copyZones(zones),
		path:   DefaultPath,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Start opens the subscription. It may be called once.
func (m *Monitor) Start(ctx context.Context) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if !m.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	sub, err := m.store.Subscribe(ctx, m.path, m)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", m.path, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed.Load() {
		// Close ran while we were subscribing.
		return errors.Join(ErrClosed, sub.Close())
	}
	m.sub = sub
	m.logger.Info("subscribed to store", "path", m.path, "zones", len(m.zones))
	return nil
}

// Close detaches the remote subscription. Callbacks delivered afterwards
// never reach the screen.
func (m *Monitor) Close() error {
	if m.closed.Swap(true) {
		return nil
	}

	m.mu.Lock()
	sub := m.sub
	m.sub = nil
	m.mu.Unlock()

	if sub == nil {
		return nil
	}
	if err := sub.Close(); err != nil {
		return fmt.Errorf("failed to detach subscription on %s: %w", m.path, err)
	}
	m.logger.Info("detached from store", "path", m.path)
	return nil
}

// OnDataChange evaluates a snapshot and posts the results to the screen
func (m *Monitor) OnDataChange(snapshot models.Snapshot) {
	if m.closed.Load() {
		m.logger.Debug("dropping snapshot after close", "path", m.path)
		return
	}

	for _, reading := range snapshot.Readings {
		m.logger.Debug("sensor reading", "key", reading.Key, "value", reading.Value, "valid", reading.Valid)
		if m.sink != nil {
			m.sink.Record(reading, snapshot.ReceivedAt)
		}
	}

	states := Evaluate(snapshot, m.zones)
	for _, state := range states {
		m.logger.Debug("zone evaluated", "zone", state.ZoneID, "count", state.Count, "size", state.Size, "occupied", state.Full)
	}

	m.screen.Post(IndicatorUpdate{States: states})
	m.screen.Post(Notification{Text: MessageReadOK, Kind: NotifyInfo})
}

// OnCancelled reports a read failure. Indicator colors are left as they are.
func (m *Monitor) OnCancelled(err error) {
	if m.closed.Load() {
		m.logger.Debug("dropping cancellation after close", "path", m.path, "error", err)
		return
	}
	m.logger.Error("failed to read data", "path", m.path, "error", err)
	m.screen.Post(Notification{Text: MessageReadFailed, Kind: NotifyError})
}

// Zones returns the configured zones
func (m *Monitor) Zones() []Zone {
	return copyZones(m.zones)
}

func copyZones(zones []Zone) []Zone {
	out := make([]Zone, len(zones))
	for i, zone := range zones {
		out[i] = Zone{ID: zone.ID, Keys: append([]string(nil), zone.Keys...)}
	}
	return out
}
