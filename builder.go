package livegui

import (
	"errors"
	"fmt"
	"maps"
)

// Builder constructs the node tree. Each Builder knows the container new
// nodes are attached to; nested build funcs receive a Builder whose parent is
// the container just created.
//
// The first construction error is kept and reported by Err. Calls after an
// error still return usable, unregistered nodes so construction code does not
// need to check every step.
type Builder struct {
	reg    *Registry
	parent *Node
	state  *buildState
}

type buildState struct {
	err error
}

// NewBuilder returns a top-level builder for reg.
func NewBuilder(reg *Registry) *Builder {
	return &Builder{reg: reg, state: &buildState{}}
}

// Err returns the first construction error.
func (b *Builder) Err() error {
	return b.state.err
}

// Parent returns the container this builder attaches to, nil at top level.
func (b *Builder) Parent() *Node {
	return b.parent
}

func (b *Builder) fail(err error) {
	if b.state.err == nil {
		b.state.err = err
	}
}

// Add creates a node of kind under the builder's parent and, when build is
// non-nil, builds its children.
func (b *Builder) Add(kind Kind, params Props, build func(*Builder)) *Node {
	n, dropped, err := NewNode(kind, params)
	if err != nil {
		b.fail(err)
		n, _, _ = NewNode(KindStack, nil)
		return n
	}
	if len(dropped) > 0 {
		b.reg.logger.Warn("dropping construction parameters not allowed for kind",
			"kind", kind, "keys", dropped)
	}

	if err := b.check(kind, build != nil); err != nil {
		b.fail(err)
		return n
	}

	b.reg.Register(n)
	if b.parent != nil {
		n.parent = b.parent
		b.parent.children = append(b.parent.children, n)
	}

	if build != nil {
		build(&Builder{reg: b.reg, parent: n, state: b.state})
	}
	return n
}

func (b *Builder) check(kind Kind, hasChildren bool) error {
	if hasChildren && !kind.Container() {
		return fmt.Errorf("%s cannot own children", kind)
	}
	if b.parent != nil {
		return nil
	}
	if !kind.Container() {
		return fmt.Errorf("%s must be created inside a container", kind)
	}
	if root := b.reg.Root(); root != nil {
		return fmt.Errorf("tree already has root node %d (%s)", root.id, root.kind)
	}
	return nil
}

// with merges the positional value into the optional params; the positional
// value wins.
func with(key string, value any, params []Props) Props {
	out := Props{}
	for _, p := range params {
		maps.Copy(out, p)
	}
	out[key] = value
	return out
}

func merged(params []Props) Props {
	out := Props{}
	for _, p := range params {
		maps.Copy(out, p)
	}
	return out
}

// Body creates the root container.
func (b *Builder) Body(params Props, build func(*Builder)) *Node {
	if b.parent != nil {
		b.fail(errors.New("body must be the root node"))
	}
	return b.Add(KindBody, params, build)
}

// Form creates a titled container.
func (b *Builder) Form(title string, build func(*Builder), params ...Props) *Node {
	return b.Add(KindForm, with(PropTitle, title, params), build)
}

// Stack creates a vertical container.
func (b *Builder) Stack(build func(*Builder), params ...Props) *Node {
	return b.Add(KindStack, merged(params), build)
}

// Flow creates a horizontal container.
func (b *Builder) Flow(build func(*Builder), params ...Props) *Node {
	return b.Add(KindFlow, merged(params), build)
}

// Button creates a button labelled value.
func (b *Builder) Button(value string, params ...Props) *Node {
	return b.Add(KindButton, with(PropValue, value, params), nil)
}

// Label creates a static text label.
func (b *Builder) Label(value string, params ...Props) *Node {
	return b.Add(KindLabel, with(PropValue, value, params), nil)
}

// Textline creates a single-line text input.
func (b *Builder) Textline(value string, params ...Props) *Node {
	return b.Add(KindTextline, with(PropValue, value, params), nil)
}

// Textarea creates a multi-line text input.
func (b *Builder) Textarea(value string, params ...Props) *Node {
	return b.Add(KindTextarea, with(PropValue, value, params), nil)
}

// Image creates an image showing src.
func (b *Builder) Image(src string, params ...Props) *Node {
	return b.Add(KindImage, with(PropSrc, src, params), nil)
}

// Select creates a single-select list.
func (b *Builder) Select(options []string, params ...Props) *Node {
	return b.Add(KindSelect, with(PropOptions, options, params), nil)
}

// Checkbox creates a checkbox group.
func (b *Builder) Checkbox(options []string, params ...Props) *Node {
	return b.Add(KindCheckbox, with(PropOptions, options, params), nil)
}

// Radio creates a radio group.
func (b *Builder) Radio(options []string, params ...Props) *Node {
	return b.Add(KindRadio, with(PropOptions, options, params), nil)
}

// Progress creates a progress bar at percent.
func (b *Builder) Progress(percent int, params ...Props) *Node {
	return b.Add(KindProgress, with(PropPercent, percent, params), nil)
}
