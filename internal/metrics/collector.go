package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector provides simple built-in metrics collection with no external dependencies
type Collector struct {
	syncMetrics       *SyncMetrics
	operationCounters map[string]*int64
	mu                sync.RWMutex
	startTime         time.Time
}

// SyncMetrics tracks traffic and dispatch outcomes of the synchronization protocol
type SyncMetrics struct {
	// Connection lifecycle
	Connections    int64 `json:"connections"`
	Disconnections int64 `json:"disconnections"`

	// Inbound
	MessagesReceived int64 `json:"messages_received"`
	SyncMerges       int64 `json:"sync_merges"`
	RejectedKeys     int64 `json:"rejected_keys"`
	EventsHandled    int64 `json:"events_handled"`
	HandlerErrors    int64 `json:"handler_errors"`
	NoHandler        int64 `json:"no_handler"`

	// Dispatch failures
	MalformedMessages int64 `json:"malformed_messages"`
	UnknownNodes      int64 `json:"unknown_nodes"`
	InvalidPayloads   int64 `json:"invalid_payloads"`

	// Outbound
	MessagesSent    int64 `json:"messages_sent"`
	MessagesDropped int64 `json:"messages_dropped"`
	Announcements   int64 `json:"announcements"`

	// Uptime
	StartTime time.Time     `json:"start_time"`
	Uptime    time.Duration `json:"uptime"`
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	now := time.Now()
	return &Collector{
		syncMetrics:       &SyncMetrics{StartTime: now},
		operationCounters: make(map[string]*int64),
		startTime:         now,
	}
}

// IncrementConnection records a connection becoming active
func (c *Collector) IncrementConnection() {
	atomic.AddInt64(&c.syncMetrics.Connections, 1)
}

// IncrementDisconnection records the active connection going away
func (c *Collector) IncrementDisconnection() {
	atomic.AddInt64(&c.syncMetrics.Disconnections, 1)
}

// IncrementReceived records an inbound message before it is parsed
func (c *Collector) IncrementReceived() {
	atomic.AddInt64(&c.syncMetrics.MessagesReceived, 1)
}

// IncrementSyncMerge records a client sync merged into a node
func (c *Collector) IncrementSyncMerge() {
	atomic.AddInt64(&c.syncMetrics.SyncMerges, 1)
}

// AddRejectedKeys records payload keys dropped because the node kind does not allow them
func (c *Collector) AddRejectedKeys(n int) {
	atomic.AddInt64(&c.syncMetrics.RejectedKeys, int64(n))
}

// IncrementEventHandled records a handler invocation
func (c *Collector) IncrementEventHandled() {
	atomic.AddInt64(&c.syncMetrics.EventsHandled, 1)
}

// IncrementHandlerError records a handler that returned an error or panicked
func (c *Collector) IncrementHandlerError() {
	atomic.AddInt64(&c.syncMetrics.HandlerErrors, 1)
}

// IncrementNoHandler records an event for which the node has no handler
func (c *Collector) IncrementNoHandler() {
	atomic.AddInt64(&c.syncMetrics.NoHandler, 1)
}

// IncrementMalformed records a message that did not match the grammar
func (c *Collector) IncrementMalformed() {
	atomic.AddInt64(&c.syncMetrics.MalformedMessages, 1)
}

// IncrementUnknownNode records a message addressed to an unregistered id
func (c *Collector) IncrementUnknownNode() {
	atomic.AddInt64(&c.syncMetrics.UnknownNodes, 1)
}

// IncrementInvalidPayload records a message whose payload could not be decoded
func (c *Collector) IncrementInvalidPayload() {
	atomic.AddInt64(&c.syncMetrics.InvalidPayloads, 1)
}

// IncrementSent records an outbound message written to the connection
func (c *Collector) IncrementSent() {
	atomic.AddInt64(&c.syncMetrics.MessagesSent, 1)
}

// IncrementDropped records an outbound message that could not be delivered
func (c *Collector) IncrementDropped() {
	atomic.AddInt64(&c.syncMetrics.MessagesDropped, 1)
}

// IncrementAnnouncement records an add_event announcement
func (c *Collector) IncrementAnnouncement() {
	atomic.AddInt64(&c.syncMetrics.Announcements, 1)
}

// IncrementCustomCounter increments a custom named counter
func (c *Collector) IncrementCustomCounter(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if counter, exists := c.operationCounters[name]; exists {
		atomic.AddInt64(counter, 1)
	} else {
		var newCounter int64 = 1
		c.operationCounters[name] = &newCounter
	}
}

// GetMetrics returns a snapshot of the current counters
func (c *Collector) GetMetrics() SyncMetrics {
	c.mu.RLock()
	start := c.startTime
	c.mu.RUnlock()

	m := c.syncMetrics
	return SyncMetrics{
		Connections:       atomic.LoadInt64(&m.Connections),
		Disconnections:    atomic.LoadInt64(&m.Disconnections),
		MessagesReceived:  atomic.LoadInt64(&m.MessagesReceived),
		SyncMerges:        atomic.LoadInt64(&m.SyncMerges),
		RejectedKeys:      atomic.LoadInt64(&m.RejectedKeys),
		EventsHandled:     atomic.LoadInt64(&m.EventsHandled),
		HandlerErrors:     atomic.LoadInt64(&m.HandlerErrors),
		NoHandler:         atomic.LoadInt64(&m.NoHandler),
		MalformedMessages: atomic.LoadInt64(&m.MalformedMessages),
		UnknownNodes:      atomic.LoadInt64(&m.UnknownNodes),
		InvalidPayloads:   atomic.LoadInt64(&m.InvalidPayloads),
		MessagesSent:      atomic.LoadInt64(&m.MessagesSent),
		MessagesDropped:   atomic.LoadInt64(&m.MessagesDropped),
		Announcements:     atomic.LoadInt64(&m.Announcements),
		StartTime:         start,
		Uptime:            time.Since(start),
	}
}

// GetCustomCounters returns all custom counters
func (c *Collector) GetCustomCounters() map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]int64, len(c.operationCounters))
	for name, counter := range c.operationCounters {
		result[name] = atomic.LoadInt64(counter)
	}
	return result
}

// Reset resets all metrics to zero
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.syncMetrics
	for _, p := range []*int64{
		&m.Connections, &m.Disconnections,
		&m.MessagesReceived, &m.SyncMerges, &m.RejectedKeys,
		&m.EventsHandled, &m.HandlerErrors, &m.NoHandler,
		&m.MalformedMessages, &m.UnknownNodes, &m.InvalidPayloads,
		&m.MessagesSent, &m.MessagesDropped, &m.Announcements,
	} {
		atomic.StoreInt64(p, 0)
	}

	c.operationCounters = make(map[string]*int64)
	c.startTime = time.Now()
}

// GetErrorRate returns the percentage of received messages that failed to dispatch
func (c *Collector) GetErrorRate() float64 {
	received := atomic.LoadInt64(&c.syncMetrics.MessagesReceived)
	if received == 0 {
		return 0.0
	}

	failed := atomic.LoadInt64(&c.syncMetrics.MalformedMessages) +
		atomic.LoadInt64(&c.syncMetrics.UnknownNodes) +
		atomic.LoadInt64(&c.syncMetrics.InvalidPayloads)

	return float64(failed) / float64(received) * 100.0
}

// GetDeliveryRate returns the percentage of outbound messages actually written
func (c *Collector) GetDeliveryRate() float64 {
	sent := atomic.LoadInt64(&c.syncMetrics.MessagesSent)
	dropped := atomic.LoadInt64(&c.syncMetrics.MessagesDropped)

	total := sent + dropped
	if total == 0 {
		return 100.0 // Nothing emitted means nothing lost
	}

	return float64(sent) / float64(total) * 100.0
}
