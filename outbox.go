package livegui

import (
	"log/slog"
	"sync"

	"github.com/livefir/livegui/internal/metrics"
)

// Sender writes one text message to the client. Implementations must be
// comparable; the outbox tells senders apart with ==.
type Sender interface {
	Send(msg string) error
}

// Outbox is the single outbound channel of a registry. It holds at most one
// Sender at a time. Emissions without a sender, and failed writes, are
// dropped: they never reach the code that triggered them.
type Outbox struct {
	mu      sync.Mutex
	sender  Sender
	logger  *slog.Logger
	metrics *metrics.Collector
}

func newOutbox(logger *slog.Logger, m *metrics.Collector) *Outbox {
	return &Outbox{logger: logger, metrics: m}
}

// Attach makes s the active sender, replacing any previous one.
func (o *Outbox) Attach(s Sender) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sender = s
}

// Detach clears the active sender if it is s. It reports whether s was active.
func (o *Outbox) Detach(s Sender) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sender != s {
		return false
	}
	o.sender = nil
	return true
}

// Connected reports whether a sender is attached.
func (o *Outbox) Connected() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sender != nil
}

// Emit writes msg to the active sender. The returned error is informational;
// the message has already been counted and dropped when it is non-nil.
func (o *Outbox) Emit(msg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sender == nil {
		o.metrics.IncrementDropped()
		o.logger.Debug("dropping message, no connection", "msg", truncate(msg, 80))
		return ErrNotConnected
	}

	if err := o.sender.Send(msg); err != nil {
		o.metrics.IncrementDropped()
		o.logger.Warn("dropping message, write failed", "error", err)
		return err
	}

	o.metrics.IncrementSent()
	return nil
}
