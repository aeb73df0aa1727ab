// Package htmx renders bus messages into HTML fragments for the htmx
// WebSocket extension, which swaps them into the page by element id.
package htmx

import (
	"embed"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer turns a named fragment template and its data into HTML.
type Renderer interface {
	Render(name string, data any) (string, error)
}

// TemplateRenderer renders the embedded fragment templates.
type TemplateRenderer struct {
	templates *template.Template
}

func NewTemplateRenderer() (*TemplateRenderer, error) {
	t, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &TemplateRenderer{templates: t}, nil
}

func (r *TemplateRenderer) Render(name string, data any) (string, error) {
	var sb strings.Builder
	if err := r.templates.ExecuteTemplate(&sb, name, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}
