package audit

import (
	"context"
	"sync"

	"github.com/lumina-grow/ripple/internal/rlog"
)

// Sink accepts audit events for at-least-once local persistence; the host
// is responsible for eventual upload (spec.md §6 AuditSink port). This is
// the typed counterpart of ports.AuditSink.
type Sink interface {
	Append(ctx context.Context, event *Event) error
}

// BufferedSink is the default in-process Sink: a bounded ring buffer that
// flushes to an underlying Sink either when full or on explicit Flush.
// original_source/audit_event.py and audit_sync.py queue events locally and
// upload in batches; this is the in-process half of that discipline (the
// upload half is the host's AuditSink implementation, out of scope here).
type BufferedSink struct {
	mu       sync.Mutex
	log      *rlog.Logger
	capacity int
	buf      []*Event
	upstream Sink // optional; nil means buffer-only (used by tests)
}

// NewBufferedSink creates a BufferedSink with the given capacity. upstream
// may be nil, in which case Flush (and an Append that fills the buffer)
// discards the queued events; Drain returns whatever is still buffered. The
// CLI's "serve" command wires NopSink as the upstream.
func NewBufferedSink(capacity int, upstream Sink) *BufferedSink {
	if capacity <= 0 {
		capacity = 256
	}
	return &BufferedSink{
		log:      rlog.New("audit"),
		capacity: capacity,
		buf:      make([]*Event, 0, capacity),
		upstream: upstream,
	}
}

// Append queues an event, flushing synchronously when the buffer is full.
func (s *BufferedSink) Append(ctx context.Context, event *Event) error {
	s.mu.Lock()
	s.buf = append(s.buf, event)
	full := len(s.buf) >= s.capacity
	s.mu.Unlock()

	if full {
		return s.Flush(ctx)
	}
	return nil
}

// Flush pushes all buffered events to the upstream Sink (if any) and clears
// the buffer. Safe to call with nothing queued.
func (s *BufferedSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	pending := s.buf
	s.buf = make([]*Event, 0, s.capacity)
	s.mu.Unlock()

	if s.upstream == nil {
		return nil
	}
	for _, e := range pending {
		if err := s.upstream.Append(ctx, e); err != nil {
			s.log.Warn("failed to forward audit event %s: %v", e.ID, err)
			return err
		}
	}
	return nil
}

// Drain returns and clears the currently buffered events without touching
// the upstream Sink; used by tests to inspect what was recorded.
func (s *BufferedSink) Drain() []*Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.buf
	s.buf = make([]*Event, 0, s.capacity)
	return out
}

// NopSink discards every event; used where the host has not wired a real
// AuditSink yet (the BufferedSink upstream of `ripplectl serve` and the
// operator commands).
type NopSink struct{}

// Append implements Sink by discarding the event.
func (NopSink) Append(context.Context, *Event) error { return nil }
