// SPDX-License-Identifier: Apache-2.0

// Package audit delivers security-relevant events (access denials, public
// link views) to a log-backed sink. Emission is fire-and-forget: producers
// hand the event to a bounded queue and continue immediately; a full queue
// drops the event and counts the drop instead of blocking the caller.
package audit

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/credvault/credvault/internal/logger"
	"github.com/credvault/credvault/models"
)

// Sink receives audit events. Record must never block and must be safe for
// concurrent use.
type Sink interface {
	Record(event models.AuditEvent)
}

// LogSink writes audit events as structured log entries through a bounded
// queue drained by a single background goroutine.
type LogSink struct {
	events  chan models.AuditEvent
	dropped atomic.Int64
	logger  *logger.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewLogSink constructs a [LogSink] with the given queue size and starts its
// drain goroutine. queueSize values below 1 fall back to 64.
func NewLogSink(log *logger.Logger, queueSize int) *LogSink {
	if queueSize < 1 {
		queueSize = 64
	}

	s := &LogSink{
		events: make(chan models.AuditEvent, queueSize),
		logger: log,
		done:   make(chan struct{}),
	}

	go s.drain()

	return s
}

// Record implements [Sink]. If the queue is full the event is dropped and
// the drop counter incremented; the caller is never blocked.
func (s *LogSink) Record(event models.AuditEvent) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	select {
	case s.events <- event:
	default:
		s.dropped.Add(1)
	}
}

// Dropped returns the number of events discarded because the queue was full.
func (s *LogSink) Dropped() int64 {
	return s.dropped.Load()
}

// Close stops the drain goroutine after flushing queued events. Events
// recorded after Close may be silently lost.
func (s *LogSink) Close() {
	s.closeOnce.Do(func() {
		close(s.events)
		<-s.done
	})
}

func (s *LogSink) drain() {
	defer close(s.done)

	for event := range s.events {
		s.logger.Warn().
			Str("audit", string(event.Outcome)).
			Time("at", event.At).
			Int64("user_id", event.UserID).
			Str("action", event.Action.String()).
			Int64("item_id", event.ItemID).
			Str("detail", event.Detail).
			Msg("audit event")
	}
}

// NopSink discards every event. Intended for tests.
type NopSink struct{}

// Record implements [Sink].
func (NopSink) Record(models.AuditEvent) {}
