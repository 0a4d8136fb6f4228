package livegui

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Handler runs when an event fires on the node it is registered on.
type Handler func(ev *Event) error

// Event is the explicit context a handler executes in.
type Event struct {
	Name string     // Event name, e.g. "click"
	Node *Node      // The node the event fired on
	Data *EventData // Payload sent with the event; empty when there was none

	dispatcher *Dispatcher
}

// Lookup resolves another node by id, for handlers that address nodes they do
// not close over.
func (e *Event) Lookup(id int) (*Node, error) {
	return e.dispatcher.reg.Lookup(id)
}

// Bind is a convenience method that delegates to Data.Bind
func (e *Event) Bind(v interface{}) error {
	return e.Data.Bind(v)
}

// GetString is a convenience method that delegates to Data.GetString
func (e *Event) GetString(key string) string {
	return e.Data.GetString(key)
}

var (
	defaultValidate     *validator.Validate
	defaultValidateOnce sync.Once
)

func defaultValidator() *validator.Validate {
	defaultValidateOnce.Do(func() {
		defaultValidate = validator.New(validator.WithRequiredStructEnabled())
	})
	return defaultValidate
}

// EventData wraps event data with utilities for binding and validation
type EventData struct {
	raw   Props
	bytes []byte // Cached JSON for efficient binding
}

func newEventData(data Props) *EventData {
	if data == nil {
		data = Props{}
	}
	return &EventData{raw: data}
}

// Bind unmarshals the data into a struct
func (d *EventData) Bind(v interface{}) error {
	if d.bytes == nil {
		var err error
		d.bytes, err = json.Marshal(d.raw)
		if err != nil {
			return fmt.Errorf("failed to marshal data: %w", err)
		}
	}

	return json.Unmarshal(d.bytes, v)
}

// BindAndValidate binds data to struct and validates it in one step. A nil
// validate uses a shared default instance.
func (d *EventData) BindAndValidate(v interface{}, validate *validator.Validate) error {
	if err := d.Bind(v); err != nil {
		return err
	}

	if validate == nil {
		validate = defaultValidator()
	}
	if err := validate.Struct(v); err != nil {
		return ValidationToMultiError(err)
	}

	return nil
}

// Raw returns the underlying map for direct access
func (d *EventData) Raw() Props {
	return d.raw
}

// Empty reports whether the event carried no data
func (d *EventData) Empty() bool {
	return len(d.raw) == 0
}

// GetString extracts a string value
func (d *EventData) GetString(key string) string {
	if v, ok := d.raw[key].(string); ok {
		return v
	}
	return ""
}

// GetInt extracts an int value (JSON numbers are float64)
func (d *EventData) GetInt(key string) int {
	n, _ := toInt(d.raw[key])
	return n
}

// GetFloat extracts a float64 value
func (d *EventData) GetFloat(key string) float64 {
	f, _ := toFloat(d.raw[key])
	return f
}

// GetBool extracts a bool value
func (d *EventData) GetBool(key string) bool {
	if v, ok := d.raw[key].(bool); ok {
		return v
	}
	return false
}

// GetStrings extracts a list of strings, e.g. checked options
func (d *EventData) GetStrings(key string) []string {
	s, _ := toStrings(d.raw[key])
	return s
}

// Has checks if a key exists
func (d *EventData) Has(key string) bool {
	_, exists := d.raw[key]
	return exists
}

// Get returns the raw value for a key
func (d *EventData) Get(key string) interface{} {
	return d.raw[key]
}
