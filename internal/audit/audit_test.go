package audit

import (
	"bytes"
	"testing"
	"time"

	"github.com/credvault/credvault/internal/logger"
	"github.com/credvault/credvault/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogSink_RecordAndClose(t *testing.T) {
	sink := NewLogSink(logger.Nop(), 8)

	for i := 0; i < 5; i++ {
		sink.Record(models.AuditEvent{
			UserID:  int64(i),
			Action:  models.ActionItemView,
			Outcome: models.AuditDenied,
		})
	}

	sink.Close()
	assert.Equal(t, int64(0), sink.Dropped())
}

func TestLogSink_RecordNeverBlocks(t *testing.T) {
	// Queue of one, no reader keeping up: extra events must be dropped,
	// not block the producer.
	sink := NewLogSink(logger.Nop(), 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10_000; i++ {
			sink.Record(models.AuditEvent{UserID: int64(i)})
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Record blocked on a full queue")
	}

	sink.Close()
}

func TestLogSink_WritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	log := &logger.Logger{Logger: zerolog.New(&buf)}

	sink := NewLogSink(log, 8)
	sink.Record(models.AuditEvent{
		UserID:  42,
		Action:  models.ActionItemDelete,
		Outcome: models.AuditDenied,
		Detail:  "capability missing",
	})
	sink.Close()

	out := buf.String()
	require.Contains(t, out, "audit event")
	assert.Contains(t, out, `"user_id":42`)
	assert.Contains(t, out, `"action":"item.delete"`)
	assert.Contains(t, out, `"audit":"denied"`)
}

func TestNopSink(t *testing.T) {
	var sink Sink = NopSink{}
	sink.Record(models.AuditEvent{UserID: 1}) // must not panic
}
