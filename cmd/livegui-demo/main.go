// Command livegui-demo serves a form that exercises every element kind.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/livefir/livegui"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	addr := flag.String("addr", "", "listen address, overrides the config file")
	open := flag.Bool("open", false, "open the page in a browser")
	flag.Parse()

	config, err := livegui.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *addr != "" {
		config.Addr = *addr
	}
	if *open {
		config.OpenBrowser = true
	}

	logger := livegui.NewLogger(config, os.Stderr)

	app, err := livegui.New(config, buildDemo(logger), livegui.WithLogger(logger))
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func buildDemo(logger *slog.Logger) func(b *livegui.Builder) {
	return func(b *livegui.Builder) {
		b.Form("test", func(b *livegui.Builder) {
			sel := b.Select([]string{"1", "2", "3"})

			b.Radio([]string{"option1", "option2", "option3"}, livegui.Props{livegui.PropArrange: "horizontal"})
			b.Radio([]string{"option7", "option8", "option9"}, livegui.Props{livegui.PropChecked: "option9"})

			button := b.Button("button1")

			var text *livegui.Node
			b.Stack(func(b *livegui.Builder) {
				b.Label("a textarea:")
				text = b.Textarea("default", livegui.Props{livegui.PropStyle: "width: 100%"})
			})
			text.On("select", func(ev *livegui.Event) error {
				start, end := selection(ev)
				value := []rune(ev.Node.String(livegui.PropValue))
				if start < 0 || end > len(value) || start > end {
					return nil
				}
				logger.Info("textarea selection", "text", string(value[start:end]))
				return nil
			})

			image := b.Image("https://go.dev/images/gophers/ladder.svg", livegui.Props{livegui.PropStyle: "width: 120px"})
			src := b.Textline(image.String(livegui.PropSrc))
			src.OnChange(func(ev *livegui.Event) error {
				return image.Set(livegui.PropSrc, ev.Node.String(livegui.PropValue))
			})

			line := b.Textline("textline")
			line.OnInput(func(ev *livegui.Event) error {
				return button.Set(livegui.PropValue, ev.Node.String(livegui.PropValue))
			})

			button.OnClick(func(ev *livegui.Event) error {
				if err := ev.Node.Set(livegui.PropValue, "clicked"); err != nil {
					return err
				}
				if err := text.Set(livegui.PropValue, text.String(livegui.PropValue)+"ok"); err != nil {
					return err
				}
				if v := line.String(livegui.PropValue); v != "" {
					if err := line.Set(livegui.PropValue, "1"+v[1:]); err != nil {
						return err
					}
				}
				opts := sel.Strings(livegui.PropOptions)
				if len(opts) == 0 {
					return nil
				}
				return sel.Set(livegui.PropOptions, opts[:len(opts)-1])
			})

			progress := b.Progress(15)
			b.Flow(func(b *livegui.Builder) {
				b.Button("-").OnClick(func(*livegui.Event) error {
					return progress.Set(livegui.PropPercent, max(progress.Int(livegui.PropPercent)-5, 0))
				})
				b.Button("+").OnClick(func(*livegui.Event) error {
					return progress.Set(livegui.PropPercent, min(progress.Int(livegui.PropPercent)+5, 100))
				})
			})

			b.Checkbox([]string{"check me", "and me"}, livegui.Props{livegui.PropChecked: []string{"check me"}})
		})
	}
}

// selection reads the [start, end] pair a textarea sends with select events.
func selection(ev *livegui.Event) (int, int) {
	var data struct {
		Selection []int `json:"selection"`
	}
	if err := ev.Bind(&data); err != nil || len(data.Selection) != 2 {
		return -1, -1
	}
	return data.Selection[0], data.Selection[1]
}
