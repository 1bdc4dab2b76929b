package occupancy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ponytojas/go-parking-monitor/internal/models"
)

type fakeSubscription struct {
	closed int
}

func (s *fakeSubscription) Close() error {
	s.closed++
	return nil
}

type fakeStore struct {
	path     string
	listener Listener
	sub      *fakeSubscription
	err      error
	calls    int
}

func (s *fakeStore) Subscribe(_ context.Context, path string, listener Listener) (Subscription, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	s.path = path
	s.listener = listener
	s.sub = &fakeSubscription{}
	return s.sub, nil
}

type recordingScreen struct {
	mu      sync.Mutex
	effects []Effect
}

func (s *recordingScreen) Post(effect Effect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.effects = append(s.effects, effect)
}

func (s *recordingScreen) posted() []Effect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Effect(nil), s.effects...)
}

type recordingSink struct {
	readings []models.SensorReading
}

func (s *recordingSink) Record(reading models.SensorReading, _ time.Time) {
	s.readings = append(s.readings, reading)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startMonitor(t *testing.T, opts ...Option) (*Monitor, *fakeStore, *recordingScreen) {
	t.Helper()
	store := &fakeStore{}
	screen := &recordingScreen{}
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	monitor, err := New(store, screen, DefaultZones(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := monitor.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return monitor, store, screen
}

func TestMonitorSubscribesToSensorData(t *testing.T) {
	_, store, _ := startMonitor(t)
	if store.path != "sensorData" {
		t.Errorf("subscribed path = %q, want sensorData", store.path)
	}
	if store.calls != 1 {
		t.Errorf("subscribe calls = %d, want 1", store.calls)
	}
}

func TestMonitorStartTwice(t *testing.T) {
	monitor, store, _ := startMonitor(t)
	if err := monitor.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second Start error = %v, want ErrAlreadyStarted", err)
	}
	if store.calls != 1 {
		t.Errorf("subscribe calls = %d, want 1", store.calls)
	}
}

func TestMonitorStartFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("not authorized")}
	monitor, err := New(store, &recordingScreen{}, DefaultZones(), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := monitor.Start(context.Background()); err == nil {
		t.Fatal("expected Start to fail")
	}
}

func TestMonitorDataChange(t *testing.T) {
	sink := &recordingSink{}
	_, store, screen := startMonitor(t, WithDiagnosticSink(sink))

	store.listener.OnDataChange(snapshotOf(map[string]int{
		"A1_1": 0, "A1_2": 0, "A1_3": 0,
		"A2_1": 1, "A2_2": 0, "A2_3": 0,
		"B1_1": 0,
	}))

	effects := screen.posted()
	if len(effects) != 2 {
		t.Fatalf("posted %d effects, want 2", len(effects))
	}
	update, ok := effects[0].(IndicatorUpdate)
	if !ok {
		t.Fatalf("first effect = %T, want IndicatorUpdate", effects[0])
	}
	if got := update.States[0].Color(); got != models.ColorOccupied {
		t.Errorf("left = %s, want occupied", got)
	}
	if got := update.States[1].Color(); got != models.ColorFree {
		t.Errorf("right = %s, want free", got)
	}
	if update.States[1].Count != 2 {
		t.Errorf("right count = %d, want 2", update.States[1].Count)
	}

	note, ok := effects[1].(Notification)
	if !ok || note.Text != MessageReadOK || note.Kind != NotifyInfo {
		t.Errorf("second effect = %#v, want success notification", effects[1])
	}

	if len(sink.readings) != 7 {
		t.Errorf("sink got %d readings, want 7", len(sink.readings))
	}
}

func TestMonitorCancelledLeavesIndicators(t *testing.T) {
	_, store, screen := startMonitor(t)

	store.listener.OnCancelled(errors.New("permission denied"))

	effects := screen.posted()
	if len(effects) != 1 {
		t.Fatalf("posted %d effects, want 1", len(effects))
	}
	note, ok := effects[0].(Notification)
	if !ok || note.Text != MessageReadFailed || note.Kind != NotifyError {
		t.Errorf("effect = %#v, want failure notification", effects[0])
	}
}

func TestMonitorCloseDetachesSubscription(t *testing.T) {
	monitor, store, screen := startMonitor(t)

	if err := monitor.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if store.sub.closed != 1 {
		t.Errorf("subscription closed %d times, want 1", store.sub.closed)
	}
	if err := monitor.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if store.sub.closed != 1 {
		t.Errorf("subscription closed %d times after second Close, want 1", store.sub.closed)
	}

	store.listener.OnDataChange(snapshotOf(map[string]int{"A1_1": 0}))
	store.listener.OnCancelled(errors.New("late"))
	if effects := screen.posted(); len(effects) != 0 {
		t.Errorf("posted %d effects after close, want 0", len(effects))
	}

	if err := monitor.Start(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Start after Close error = %v, want ErrClosed", err)
	}
}

func TestMonitorConcurrentCallbacks(t *testing.T) {
	_, store, screen := startMonitor(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.listener.OnDataChange(snapshotOf(map[string]int{"A1_1": 0, "A1_2": 0, "A1_3": 0}))
		}()
	}
	wg.Wait()

	if got := len(screen.posted()); got != 32 {
		t.Errorf("posted %d effects, want 32", got)
	}
}

func TestNewRejectsInvalidZones(t *testing.T) {
	if _, err := New(&fakeStore{}, &recordingScreen{}, []Zone{{ID: "x"}}); err == nil {
		t.Fatal("expected error for zone without keys")
	}
	if _, err := New(nil, &recordingScreen{}, DefaultZones()); err == nil {
		t.Fatal("expected error for nil store")
	}
}
