package main

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/livefir/livegui"
)

func buildTestDemo(t *testing.T) (*livegui.Registry, *livegui.Dispatcher) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := livegui.NewRegistry(livegui.WithLogger(logger))
	b := livegui.NewBuilder(reg)
	b.Body(nil, buildDemo(logger))
	if err := b.Err(); err != nil {
		t.Fatalf("build failed: %v", err)
	}
	return reg, livegui.NewDispatcher(reg)
}

func node(t *testing.T, reg *livegui.Registry, id int) *livegui.Node {
	t.Helper()
	n, err := reg.Lookup(id)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestDemoButton(t *testing.T) {
	reg, d := buildTestDemo(t)

	if _, err := d.Handle("click:5"); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if got := node(t, reg, 5).String(livegui.PropValue); got != "clicked" {
		t.Errorf("button = %q, want clicked", got)
	}
	if got := node(t, reg, 8).String(livegui.PropValue); got != "defaultok" {
		t.Errorf("textarea = %q, want defaultok", got)
	}
	if got := node(t, reg, 11).String(livegui.PropValue); got != "1extline" {
		t.Errorf("textline = %q, want 1extline", got)
	}
	if got := strings.Join(node(t, reg, 2).Strings(livegui.PropOptions), ","); got != "1,2" {
		t.Errorf("select options = %q, want 1,2", got)
	}
}

func TestDemoProgress(t *testing.T) {
	reg, d := buildTestDemo(t)
	progress := node(t, reg, 12)

	d.Handle("click:15")
	d.Handle("click:15")
	if got := progress.Int(livegui.PropPercent); got != 25 {
		t.Errorf("percent = %d, want 25", got)
	}

	for i := 0; i < 10; i++ {
		d.Handle("click:14")
	}
	if got := progress.Int(livegui.PropPercent); got != 0 {
		t.Errorf("percent = %d, want 0", got)
	}
}

func TestDemoInputCopiesToButton(t *testing.T) {
	reg, d := buildTestDemo(t)

	d.Handle(`sync:11->{"value":"typed"}`)
	if _, err := d.Handle("input:11"); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if got := node(t, reg, 5).String(livegui.PropValue); got != "typed" {
		t.Errorf("button = %q, want typed", got)
	}
}

func TestDemoImageSource(t *testing.T) {
	reg, d := buildTestDemo(t)

	d.Handle(`sync:10->{"value":"cat.png"}`)
	d.Handle("change:10")
	if got := node(t, reg, 9).String(livegui.PropSrc); got != "cat.png" {
		t.Errorf("image src = %q, want cat.png", got)
	}
}

func TestDemoSelection(t *testing.T) {
	_, d := buildTestDemo(t)

	for _, msg := range []string{
		`select:8->{"selection":[0,3]}`,
		`select:8->{"selection":[5,99]}`,
		"select:8",
	} {
		if _, err := d.Handle(msg); err != nil {
			t.Errorf("Handle(%q) failed: %v", msg, err)
		}
	}
}
