package livegui

import (
	"fmt"
	"slices"
)

// Kind identifies the type of a UI element. The set is closed.
type Kind string

const (
	KindBody     Kind = "body"
	KindForm     Kind = "form"
	KindStack    Kind = "stack"
	KindFlow     Kind = "flow"
	KindButton   Kind = "button"
	KindTextline Kind = "textline"
	KindTextarea Kind = "textarea"
	KindImage    Kind = "image"
	KindSelect   Kind = "select"
	KindCheckbox Kind = "checkbox"
	KindRadio    Kind = "radio"
	KindProgress Kind = "progress"
	KindLabel    Kind = "label"
)

// Property keys used by the built-in kinds.
const (
	PropStyle     = "style"
	PropValue     = "value"
	PropTitle     = "title"
	PropCursor    = "cursor"
	PropSelection = "selection"
	PropSrc       = "src"
	PropOptions   = "options"
	PropChecked   = "checked"
	PropArrange   = "arrange"
	PropPercent   = "percent"
)

// schema maps each kind to the property keys it may carry.
var schema = map[Kind][]string{
	KindBody:     {PropStyle, PropTitle},
	KindForm:     {PropStyle, PropTitle},
	KindStack:    {PropStyle},
	KindFlow:     {PropStyle},
	KindButton:   {PropStyle, PropValue},
	KindLabel:    {PropStyle, PropValue},
	KindTextline: {PropStyle, PropValue, PropCursor},
	KindTextarea: {PropStyle, PropValue, PropCursor, PropSelection},
	KindImage:    {PropStyle, PropSrc},
	KindSelect:   {PropStyle, PropValue, PropOptions},
	KindCheckbox: {PropStyle, PropValue, PropOptions, PropChecked, PropArrange},
	KindRadio:    {PropStyle, PropValue, PropOptions, PropChecked, PropArrange},
	KindProgress: {PropStyle, PropPercent},
}

// containers may own children.
var containers = map[Kind]bool{
	KindBody:  true,
	KindForm:  true,
	KindStack: true,
	KindFlow:  true,
}

// Events lists the DOM-level event names a handler may be registered for.
var Events = []string{
	"click", "input", "dblclick", "mouseover", "mouseout",
	"blur", "focus", "mousemove", "change", "select",
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := schema[k]
	return ok
}

// Container reports whether nodes of this kind may own children.
func (k Kind) Container() bool {
	return containers[k]
}

// Allows reports whether key is on the kind's allow-list.
func (k Kind) Allows(key string) bool {
	return slices.Contains(schema[k], key)
}

// Keys returns a copy of the kind's allow-list.
func (k Kind) Keys() []string {
	return slices.Clone(schema[k])
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind converts a name into a Kind.
func ParseKind(name string) (Kind, error) {
	k := Kind(name)
	if !k.Valid() {
		return "", fmt.Errorf("unknown kind %q", name)
	}
	return k, nil
}

func knownEvent(name string) bool {
	return slices.Contains(Events, name)
}
