package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"math"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"promptgrid/internal/prompt"
)

//go:embed assets
var assets embed.FS

type renderer struct {
	templates *template.Template
	markdown  goldmark.Markdown
}

func newRenderer() (*renderer, error) {
	r := &renderer{
		// Raw HTML in model output is escaped: the default renderer is not unsafe.
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}

	funcs := template.FuncMap{
		"tenth":    func(f float64) string { return strconv.FormatFloat(f, 'f', 1, 64) },
		"same":     func(a, b float64) bool { return math.Abs(a-b) < 1e-9 },
		"stops":    prompt.FormatStopSequences,
		"markdown": r.renderMarkdown,
	}

	tmpl, err := template.New("pages").Funcs(funcs).ParseFS(assets, "assets/templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse page templates: %w", err)
	}
	r.templates = tmpl
	return r, nil
}

func (r *renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

func (r *renderer) renderMarkdown(text string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}
