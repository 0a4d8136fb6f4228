package livegui

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// recorder is a Sender that keeps every message.
type recorder struct {
	mu   sync.Mutex
	msgs []string
	err  error
}

func (r *recorder) Send(msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

func (r *recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = nil
}

func (r *recorder) withPrefix(prefix string) []string {
	var out []string
	for _, m := range r.Messages() {
		if strings.HasPrefix(m, prefix) {
			out = append(out, m)
		}
	}
	return out
}

var errBrokenPipe = errors.New("broken pipe")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRegistry() *Registry {
	return NewRegistry(WithLogger(quietLogger()))
}

// buildButtonTree builds body > button and returns the parts.
func buildButtonTree(t *testing.T) (*Registry, *Dispatcher, *Node) {
	t.Helper()
	reg := newTestRegistry()
	b := NewBuilder(reg)

	var button *Node
	b.Body(nil, func(b *Builder) {
		button = b.Button("button1")
	})
	if err := b.Err(); err != nil {
		t.Fatalf("build failed: %v", err)
	}
	return reg, NewDispatcher(reg), button
}
