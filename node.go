package livegui

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Node is a single UI element. Nodes are created by a Builder and live as
// long as their Registry.
//
// A node's properties and events may only be touched from dispatch
// context: during construction, inside a handler, or inside Dispatcher.Do.
type Node struct {
	id       int
	kind     Kind
	props    Props
	children []*Node
	parent   *Node // back-reference only; the parent owns this node, not the reverse
	handlers map[string]Handler
	events   []string // event names in first-registration order
	reg      *Registry
}

// NewNode creates an unregistered node of the given kind. Keys in params
// that the kind does not allow are returned in dropped and left out of the
// node's properties.
func NewNode(kind Kind, params Props) (n *Node, dropped []string, err error) {
	if !kind.Valid() {
		return nil, nil, fmt.Errorf("unknown kind %q", kind)
	}

	n = &Node{
		id:       -1,
		kind:     kind,
		props:    Props{},
		handlers: map[string]Handler{},
	}
	for k, v := range params {
		if !kind.Allows(k) {
			dropped = append(dropped, k)
			continue
		}
		n.props[k] = v
	}
	slices.Sort(dropped)
	return n, dropped, nil
}

// ID returns the node's registry index, or -1 before registration.
func (n *Node) ID() int { return n.id }

// Kind returns the node's kind.
func (n *Node) Kind() Kind { return n.kind }

// Parent returns the owning node, nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the owned children in render order.
func (n *Node) Children() []*Node {
	return slices.Clone(n.children)
}

// Properties returns a copy of the property map.
func (n *Node) Properties() Props {
	return maps.Clone(n.props)
}

// Get returns the current value of key.
func (n *Node) Get(key string) (any, bool) {
	v, ok := n.props[key]
	return v, ok
}

// Set writes one property and pushes the node's whole property map to the
// client. Delivery problems are absorbed; the error reports only a key the
// kind does not allow or a value that cannot be encoded.
func (n *Node) Set(key string, value any) error {
	return n.Update(Props{key: value})
}

// Update writes several properties and pushes a single sync message.
func (n *Node) Update(values Props) error {
	next := maps.Clone(n.props)
	for k, v := range values {
		if !n.kind.Allows(k) {
			return fmt.Errorf("%w: %s has no property %q", ErrUnknownProperty, n.kind, k)
		}
		next[k] = v
	}

	msg, err := EncodeSync(n.id, next)
	if err != nil {
		return err
	}

	n.props = next
	if n.reg != nil {
		_ = n.reg.outbox.Emit(msg)
	}
	return nil
}

// merge applies client data without pushing anything back. Keys outside the
// allow-list are skipped and returned.
func (n *Node) merge(values Props) (rejected []string) {
	for k, v := range values {
		if !n.kind.Allows(k) {
			rejected = append(rejected, k)
			continue
		}
		n.props[k] = v
	}
	slices.Sort(rejected)
	return rejected
}

// String returns a property as text. Non-string values are formatted.
func (n *Node) String(key string) string {
	switch v := n.props[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Int returns a numeric property truncated to int, or 0.
func (n *Node) Int(key string) int {
	i, _ := toInt(n.props[key])
	return i
}

// Float returns a numeric property, or 0.
func (n *Node) Float(key string) float64 {
	f, _ := toFloat(n.props[key])
	return f
}

// Bool returns a boolean property, or false.
func (n *Node) Bool(key string) bool {
	b, _ := n.props[key].(bool)
	return b
}

// Strings returns a list property such as options or checked.
func (n *Node) Strings(key string) []string {
	s, _ := toStrings(n.props[key])
	return s
}

// normalizeEvent maps "onClick", "OnClick" and "click" to "click".
func normalizeEvent(name string) string {
	name = cases.Lower(language.Und).String(strings.TrimSpace(name))
	if trimmed, ok := strings.CutPrefix(name, "on"); ok && knownEvent(trimmed) {
		return trimmed
	}
	return name
}

// On registers h for the named event, replacing any previous handler for it.
// It panics on an event name the client cannot forward.
func (n *Node) On(event string, h Handler) *Node {
	name := normalizeEvent(event)
	if !knownEvent(name) {
		panic(fmt.Sprintf("livegui: unknown event %q (known: %s)", event, strings.Join(Events, ", ")))
	}
	if h == nil {
		panic("livegui: nil handler for event " + name)
	}
	if _, exists := n.handlers[name]; !exists {
		n.events = append(n.events, name)
	}
	n.handlers[name] = h
	return n
}

// OnClick registers a click handler.
func (n *Node) OnClick(h Handler) *Node { return n.On("click", h) }

// OnChange registers a change handler.
func (n *Node) OnChange(h Handler) *Node { return n.On("change", h) }

// OnInput registers an input handler.
func (n *Node) OnInput(h Handler) *Node { return n.On("input", h) }

// Handler returns the handler registered for event, or nil.
func (n *Node) Handler(event string) Handler {
	return n.handlers[event]
}

// Events returns the registered event names in registration order.
func (n *Node) Events() []string {
	return slices.Clone(n.events)
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		return int(x), true
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return int(i), true
		}
		if f, err := x.Float64(); err == nil {
			return int(f), true
		}
	case string:
		if i, err := strconv.Atoi(x); err == nil {
			return i, true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	return 0, false
}

func toStrings(v any) ([]string, bool) {
	switch x := v.(type) {
	case []string:
		return slices.Clone(x), true
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case string:
		return []string{x}, true
	}
	return nil, false
}
