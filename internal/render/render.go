// Package render turns a snapshot of the node tree into the static page the
// client loads once, before the websocket comes up.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed client.js
var clientScript string

const defaultStyle = `
.lg-stack { display: flex; flex-direction: column; gap: .5em; }
.lg-flow, .lg-group.lg-horizontal { display: flex; flex-direction: row; gap: .5em; }
.lg-group.lg-vertical { display: flex; flex-direction: column; }
.lg-progress { width: 100%; height: 1em; background: #eee; }
.lg-bar { height: 100%; background: #4a90d9; }
`

// Element is the render view of a node: what the renderer may read.
type Element struct {
	ID       int            `json:"id"`
	Kind     string         `json:"kind"`
	Props    map[string]any `json:"properties"`
	Children []Element      `json:"children,omitempty"`
}

// Options controls page-level output.
type Options struct {
	Title string

	// SocketURL is the websocket address the client script dials. A value
	// starting with "/" is resolved against the page's own host.
	SocketURL string

	Minify bool
}

var (
	minifier *minify.M
	once     sync.Once
)

// getMinifier returns a configured minifier (singleton)
func getMinifier() *minify.M {
	once.Do(func() {
		minifier = minify.New()
		minifier.AddFunc("text/html", html.Minify)
		minifier.AddFunc("text/css", css.Minify)
		minifier.AddFunc("application/javascript", js.Minify)
	})
	return minifier
}

// Renderer executes the element templates.
type Renderer struct {
	tmpl *template.Template
	opts Options
}

// New parses the embedded templates.
func New(opts Options) (*Renderer, error) {
	r := &Renderer{opts: opts}

	tmpl, err := template.New("elements").Funcs(template.FuncMap{
		"renderNode":   r.renderNode,
		"socketURL":    func() string { return r.opts.SocketURL },
		"clientScript": func() template.JS { return template.JS(clientScript) },
		"prop":         prop,
		"style":        style,
		"options":      options,
		"checked":      checked,
		"arrange":      arrange,
		"percent":      percent,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse element templates: %w", err)
	}
	r.tmpl = tmpl
	return r, nil
}

// Page writes the complete document for root.
func (r *Renderer) Page(w io.Writer, root Element) error {
	if root.Kind != "body" {
		return fmt.Errorf("root element must be body, got %q", root.Kind)
	}

	var buf bytes.Buffer
	err := r.tmpl.ExecuteTemplate(&buf, "page", struct {
		Title string
		Style template.CSS
		Root  Element
	}{r.opts.Title, template.CSS(defaultStyle), root})
	if err != nil {
		return fmt.Errorf("template execution failed: %w", err)
	}

	if !r.opts.Minify {
		_, err = w.Write(buf.Bytes())
		return err
	}
	return getMinifier().Minify("text/html", w, &buf)
}

// PageString renders root to a string.
func (r *Renderer) PageString(root Element) (string, error) {
	var sb strings.Builder
	if err := r.Page(&sb, root); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (r *Renderer) renderNode(el Element) (template.HTML, error) {
	if r.tmpl.Lookup(el.Kind) == nil {
		return "", fmt.Errorf("no template for kind %q (node %d)", el.Kind, el.ID)
	}
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, el.Kind, el); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func prop(el Element, key string) string {
	switch v := el.Props[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// style is trusted: it comes from construction code.
func style(el Element) template.CSS {
	return template.CSS(prop(el, "style"))
}

func options(el Element) []string {
	return stringList(el.Props["options"])
}

func checked(el Element, key, option string) bool {
	return slices.Contains(stringList(el.Props[key]), option)
}

func arrange(el Element) string {
	if prop(el, "arrange") == "horizontal" {
		return "horizontal"
	}
	return "vertical"
}

func percent(el Element) int {
	var p int
	switch v := el.Props["percent"].(type) {
	case int:
		p = v
	case int64:
		p = int(v)
	case float64:
		p = int(v)
	}
	return max(0, min(100, p))
}

func stringList(v any) []string {
	switch x := v.(type) {
	case []string:
		return x
	case string:
		return []string{x}
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
