package occupancy

import (
	"context"
	"time"

	"github.com/ponytojas/go-parking-monitor/internal/models"
)

// Listener receives events for a store subscription. Callbacks may arrive
// on any goroutine.
type Listener interface {
	OnDataChange(models.Snapshot)
	OnCancelled(error)
}

// Subscription is a live registration on the remote store
type Subscription interface {
	// Close detaches the listener from the remote store
	Close() error
}

// Store is a remote realtime data store
type Store interface {
	Subscribe(ctx context.Context, path string, listener Listener) (Subscription, error)
}

// DiagnosticSink receives one record per snapshot entry. Record must not
// block.
type DiagnosticSink interface {
	Record(reading models.SensorReading, at time.Time)
}
