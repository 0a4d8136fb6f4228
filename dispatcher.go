package livegui

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/livefir/livegui/internal/metrics"
)

// State is the connection state seen by a Dispatcher.
type State int

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// Dispatcher applies inbound messages to the node tree and announces events
// when a connection opens.
//
// All dispatch work is serialized: Handle, Connect and Do never overlap, so
// handlers run one at a time and to completion. A handler must not call back
// into Handle, Connect or Do.
type Dispatcher struct {
	mu      sync.Mutex
	reg     *Registry
	current atomic.Pointer[Node]
	logger  *slog.Logger
	metrics *metrics.Collector
}

// NewDispatcher creates a dispatcher for reg. It logs and counts with the
// registry's logger and collector unless opts override them.
func NewDispatcher(reg *Registry, opts ...Option) *Dispatcher {
	s := settings{logger: reg.logger, metrics: reg.metrics}
	for _, opt := range opts {
		opt(&s)
	}
	return &Dispatcher{
		reg:     reg,
		logger:  s.logger,
		metrics: s.metrics,
	}
}

// Registry returns the registry the dispatcher works on.
func (d *Dispatcher) Registry() *Registry {
	return d.reg
}

// Metrics returns the dispatcher's collector.
func (d *Dispatcher) Metrics() *metrics.Collector {
	return d.metrics
}

// State reports whether a connection is active.
func (d *Dispatcher) State() State {
	if d.reg.outbox.Connected() {
		return Connected
	}
	return Disconnected
}

// Current returns the node whose handler is running, or nil.
func (d *Dispatcher) Current() *Node {
	return d.current.Load()
}

// Connect makes s the sole active connection and announces, in id order,
// the event names of every node that has handlers.
func (d *Dispatcher) Connect(s Sender) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.reg.outbox.Attach(s)
	d.metrics.IncrementConnection()

	for _, n := range d.reg.nodes {
		if len(n.events) == 0 {
			continue
		}
		msg, err := EncodeAddEvent(n.id, n.events)
		if err != nil {
			d.logger.Error("failed to encode announcement", "node", n.id, "error", err)
			continue
		}
		d.metrics.IncrementAnnouncement()
		_ = d.reg.outbox.Emit(msg)
	}
}

// Disconnect forgets s if it is still the active connection. Node state is
// kept.
func (d *Dispatcher) Disconnect(s Sender) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.reg.outbox.Detach(s) {
		d.metrics.IncrementDisconnection()
	}
}

// Do runs fn with dispatch exclusivity, for server-initiated work such as
// timers that update node properties.
func (d *Dispatcher) Do(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn()
}

// Handle parses and dispatches one inbound message and returns the target
// node.
//
// Malformed messages, unknown ids and bad payloads return a nil node and an
// error wrapping ErrMalformedMessage, ErrUnknownNode or ErrInvalidPayload.
// An event without a handler returns the node and no error. A failing
// handler returns the node and a *HandlerError.
func (d *Dispatcher) Handle(raw string) (*Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.metrics.IncrementReceived()

	msg, err := ParseMessage(raw)
	if err != nil {
		d.reject(err)
		return nil, err
	}

	node, err := d.reg.Lookup(msg.NodeID())
	if err != nil {
		err = &ParseError{Input: raw, Reason: err.Error(), Err: ErrUnknownNode}
		d.reject(err)
		return nil, err
	}

	switch m := msg.(type) {
	case SyncMessage:
		d.merge(node, m)
		return node, nil
	case EventMessage:
		return node, d.invoke(node, m)
	}
	return nil, fmt.Errorf("%w: unhandled message type %T", ErrMalformedMessage, msg)
}

func (d *Dispatcher) reject(err error) {
	switch {
	case errors.Is(err, ErrUnknownNode):
		d.metrics.IncrementUnknownNode()
	case errors.Is(err, ErrInvalidPayload):
		d.metrics.IncrementInvalidPayload()
	default:
		d.metrics.IncrementMalformed()
	}
	d.logger.Warn("rejected message", "error", err)
}

func (d *Dispatcher) merge(node *Node, m SyncMessage) {
	rejected := node.merge(m.Payload)
	d.metrics.IncrementSyncMerge()
	if len(rejected) > 0 {
		d.metrics.AddRejectedKeys(len(rejected))
		d.logger.Warn("ignoring sync keys not allowed for kind",
			"node", node.id, "kind", node.kind, "keys", rejected)
	}
}

func (d *Dispatcher) invoke(node *Node, m EventMessage) error {
	h := node.handlers[m.Name]
	if h == nil {
		d.metrics.IncrementNoHandler()
		d.logger.Debug("no handler", "node", node.id, "event", m.Name)
		return nil
	}

	ev := &Event{
		Name:       m.Name,
		Node:       node,
		Data:       newEventData(m.Payload),
		dispatcher: d,
	}

	d.current.Store(node)
	err := call(h, ev)
	d.current.Store(nil)

	d.metrics.IncrementEventHandled()
	d.metrics.IncrementCustomCounter(m.Name)
	if err != nil {
		d.metrics.IncrementHandlerError()
		herr := &HandlerError{NodeID: node.id, Event: m.Name, Err: err}
		d.logger.Error("handler failed", "node", node.id, "event", m.Name, "error", err)
		return herr
	}
	return nil
}

// call runs h and turns a panic into an error.
func call(h Handler, ev *Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(ev)
}
