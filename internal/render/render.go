// Package render writes layout documents as web pages.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"mfpreport/internal/layout"
	appweb "mfpreport/web"
)

const (
	pageTemplate      = "report.html"
	DefaultStylesheet = "report.css"
)

// Page is the template data for one report.
type Page struct {
	*layout.Document
	Title       string
	InlineStyle template.CSS
}

// Renderer holds the parsed page templates. It is safe for concurrent use.
type Renderer struct {
	templates *template.Template
}

func New() (*Renderer, error) {
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse report templates: %w", err)
	}
	return &Renderer{templates: t}, nil
}

// Title builds the page title from the document's date range.
func Title(doc *layout.Document) string {
	if len(doc.Dates) == 0 {
		return "Nutrition report"
	}
	first, last := doc.Dates[0], doc.Dates[len(doc.Dates)-1]
	return fmt.Sprintf("Nutrition report %s - %s", first, last)
}

// HTML writes doc as an XHTML page. When inline is true the default
// stylesheet is embedded in the page instead of linked.
func (r *Renderer) HTML(w io.Writer, doc *layout.Document, inline bool) error {
	page := Page{Document: doc, Title: Title(doc)}
	if inline {
		css, err := Stylesheet()
		if err != nil {
			return err
		}
		page.InlineStyle = template.CSS(css)
	}
	// Render to a buffer so a template error never leaves half a page behind.
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, pageTemplate, page); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// WriteFile renders doc to path and makes sure the linked stylesheet exists
// next to it.
func (r *Renderer) WriteFile(path string, doc *layout.Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	var buf bytes.Buffer
	if err := r.HTML(&buf, doc, false); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if doc.Stylesheet == DefaultStylesheet {
		return ensureStylesheet(filepath.Join(filepath.Dir(path), DefaultStylesheet))
	}
	return nil
}

// Stylesheet returns the embedded default stylesheet.
func Stylesheet() ([]byte, error) {
	return fs.ReadFile(appweb.StaticFS, "static/"+DefaultStylesheet)
}

func ensureStylesheet(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	css, err := Stylesheet()
	if err != nil {
		return err
	}
	return os.WriteFile(path, css, 0644)
}
