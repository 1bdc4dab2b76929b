package database

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ponytojas/go-parking-monitor/internal/models"
)

const insertTimeout = 5 * time.Second

// ReadingWriter persists a single reading
type ReadingWriter interface {
	InsertReading(ctx context.Context, reading models.SensorReading, at time.Time) error
}

type record struct {
	reading models.SensorReading
	at      time.Time
}

// Sink queues diagnostic readings for a single writer goroutine. Record
// never blocks; readings are dropped when the queue is full.
type Sink struct {
	writer  ReadingWriter
	logger  *slog.Logger
	records chan record
	done    chan struct{}
	dropped atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

// NewSink starts the writer goroutine
func NewSink(writer ReadingWriter, bufferSize int, logger *slog.Logger) *Sink {
	s := &Sink{
		writer:  writer,
		logger:  logger,
		records: make(chan record, bufferSize),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Record queues a reading
func (s *Sink) Record(reading models.SensorReading, at time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.records <- record{reading: reading, at: at}:
	default:
		if s.dropped.Add(1) == 1 {
			s.logger.Warn("diagnostics queue full, dropping readings")
		}
	}
}

// Dropped returns how many readings were discarded because the queue was full
func (s *Sink) Dropped() uint64 {
	return s.dropped.Load()
}

// Close stops accepting readings and waits for queued ones to be written
func (s *Sink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.closed = true
	close(s.records)
	s.mu.Unlock()
	<-s.done
}

func (s *Sink) run() {
	defer close(s.done)
	for rec := range s.records {
		ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
		if err := s.writer.InsertReading(ctx, rec.reading, rec.at); err != nil {
			s.logger.Error("error writing diagnostic reading", "key", rec.reading.Key, "error", err)
		}
		cancel()
	}
}
