package livegui

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Wire commands with fixed meaning. Any other inbound command is an event name.
const (
	CommandSync     = "sync"
	CommandAddEvent = "add_event"
)

const payloadSep = "->"

// Props is a node's property map as it travels on the wire.
type Props map[string]any

// Message is a decoded inbound message: a SyncMessage or an EventMessage.
type Message interface {
	NodeID() int
	String() string
	message()
}

// SyncMessage carries a partial property update from the client.
type SyncMessage struct {
	ID      int
	Payload Props
}

// EventMessage names an event that fired on the client. Payload is nil when
// the client sent none.
type EventMessage struct {
	ID      int
	Name    string
	Payload Props
}

func (m SyncMessage) NodeID() int { return m.ID }
func (m EventMessage) NodeID() int { return m.ID }
func (SyncMessage) message() {}
func (EventMessage) message() {}

func (m SyncMessage) String() string {
	s, _ := encode(CommandSync, m.ID, m.Payload)
	return s
}

func (m EventMessage) String() string {
	if m.Payload == nil {
		return m.Name + ":" + strconv.Itoa(m.ID)
	}
	s, _ := encode(m.Name, m.ID, m.Payload)
	return s
}

// AnnounceMessage is the decoded form of an outbound add_event message.
type AnnounceMessage struct {
	ID     int
	Events []string
}

// frame is one tokenized message: command, id and the raw payload if any.
type frame struct {
	command    string
	id         int
	payload    []byte
	hasPayload bool
}

// scan splits "<command>:<id>[-><payload>]". It only checks the framing; the
// payload is returned undecoded.
func scan(s string) (frame, error) {
	var f frame

	i := 0
	for i < len(s) && isIdentByte(s[i], i == 0) {
		i++
	}
	if i == 0 {
		return f, malformed(s, "missing command")
	}
	f.command = s[:i]

	if i >= len(s) || s[i] != ':' {
		return f, malformed(s, "expected ':' after command")
	}
	i++

	start := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == start {
		return f, malformed(s, "missing node id")
	}
	id, err := strconv.Atoi(s[start:i])
	if err != nil {
		return f, malformed(s, "node id out of range")
	}
	f.id = id

	if i == len(s) {
		return f, nil
	}
	if len(s)-i < len(payloadSep) || s[i:i+len(payloadSep)] != payloadSep {
		return f, malformed(s, "unexpected text after node id")
	}
	i += len(payloadSep)
	if i == len(s) {
		return f, malformed(s, "empty payload")
	}
	f.payload = []byte(s[i:])
	f.hasPayload = true
	return f, nil
}

func isIdentByte(c byte, first bool) bool {
	switch {
	case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return !first
	}
	return false
}

// ParseMessage decodes an inbound client message.
func ParseMessage(s string) (Message, error) {
	f, err := scan(s)
	if err != nil {
		return nil, err
	}

	var payload Props
	if f.hasPayload {
		if payload, err = decodeObject(s, f.payload); err != nil {
			return nil, err
		}
	}

	if f.command == CommandSync {
		if payload == nil {
			return nil, &ParseError{Input: s, Reason: "sync requires a payload", Err: ErrInvalidPayload}
		}
		return SyncMessage{ID: f.id, Payload: payload}, nil
	}
	return EventMessage{ID: f.id, Name: f.command, Payload: payload}, nil
}

// ParseServerMessage decodes an outbound message as a client sees it: either
// a SyncMessage or an AnnounceMessage.
func ParseServerMessage(s string) (any, error) {
	f, err := scan(s)
	if err != nil {
		return nil, err
	}
	if !f.hasPayload {
		return nil, &ParseError{Input: s, Reason: "server messages carry a payload", Err: ErrInvalidPayload}
	}

	switch f.command {
	case CommandSync:
		payload, err := decodeObject(s, f.payload)
		if err != nil {
			return nil, err
		}
		return SyncMessage{ID: f.id, Payload: payload}, nil
	case CommandAddEvent:
		var names []string
		if err := json.Unmarshal(f.payload, &names); err != nil {
			return nil, &ParseError{Input: s, Reason: "event list is not a JSON string array", Err: ErrInvalidPayload}
		}
		return AnnounceMessage{ID: f.id, Events: names}, nil
	}
	return nil, malformed(s, fmt.Sprintf("unknown server command %q", f.command))
}

func decodeObject(s string, raw []byte) (Props, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, &ParseError{Input: s, Reason: err.Error(), Err: ErrInvalidPayload}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &ParseError{Input: s, Reason: "payload is not a JSON object", Err: ErrInvalidPayload}
	}
	return Props(obj), nil
}

func malformed(s, reason string) error {
	return &ParseError{Input: s, Reason: reason, Err: ErrMalformedMessage}
}

// EncodeSync builds "sync:<id>-><properties>".
func EncodeSync(id int, props Props) (string, error) {
	if props == nil {
		props = Props{}
	}
	return encode(CommandSync, id, props)
}

// EncodeAddEvent builds "add_event:<id>-><event names>".
func EncodeAddEvent(id int, names []string) (string, error) {
	if names == nil {
		names = []string{}
	}
	return encode(CommandAddEvent, id, names)
}

func encode(command string, id int, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s payload for node %d: %w", command, id, err)
	}
	return command + ":" + strconv.Itoa(id) + payloadSep + string(data), nil
}
