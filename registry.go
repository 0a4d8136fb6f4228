package livegui

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/livefir/livegui/internal/metrics"
)

// Option configures a Registry, Dispatcher or Server.
type Option func(*settings)

type settings struct {
	logger  *slog.Logger
	metrics *metrics.Collector
}

func newSettings(opts []Option) settings {
	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = metrics.NewCollector()
	}
	return s
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithMetrics shares a metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *settings) { s.metrics = m }
}

// Registry is the append-only, id-indexed store of every node in the process.
// The node with id i is always at index i. Nothing is ever removed.
//
// Registry is not safe for concurrent use. Registration happens during
// construction and lookups during dispatch, both on the dispatch goroutine.
type Registry struct {
	nodes  []*Node
	outbox *Outbox
	settings
}

// NewRegistry creates an empty registry with its own outbox.
func NewRegistry(opts ...Option) *Registry {
	s := newSettings(opts)
	return &Registry{
		outbox:   newOutbox(s.logger, s.metrics),
		settings: s,
	}
}

// Register appends n and returns its id, which is the registry size before
// the call. Registering a node twice returns its existing id.
func (r *Registry) Register(n *Node) int {
	if n.reg == r {
		return n.id
	}
	if n.reg != nil {
		panic(fmt.Sprintf("livegui: node %d already belongs to another registry", n.id))
	}
	n.id = len(r.nodes)
	n.reg = r
	r.nodes = append(r.nodes, n)
	return n.id
}

// Lookup returns the node with the given id.
func (r *Registry) Lookup(id int) (*Node, error) {
	if id < 0 || id >= len(r.nodes) {
		return nil, fmt.Errorf("%w: %d (registry holds %d nodes)", ErrUnknownNode, id, len(r.nodes))
	}
	return r.nodes[id], nil
}

// Len returns the number of registered nodes.
func (r *Registry) Len() int {
	return len(r.nodes)
}

// Nodes returns all nodes in id order.
func (r *Registry) Nodes() []*Node {
	return slices.Clone(r.nodes)
}

// Root returns the first registered node without a parent, or nil.
func (r *Registry) Root() *Node {
	for _, n := range r.nodes {
		if n.parent == nil {
			return n
		}
	}
	return nil
}

// Outbox returns the registry's outbound channel.
func (r *Registry) Outbox() *Outbox {
	return r.outbox
}

// Metrics returns the collector shared by the registry's components.
func (r *Registry) Metrics() *metrics.Collector {
	return r.metrics
}
