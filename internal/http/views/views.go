// Package views renders the HTML pages from embedded templates.
package views

import (
	"embed"
	"html/template"
	"io"
	"net/url"

	"cloudfiles/internal/models"
	"cloudfiles/internal/security"
)

//go:embed templates/*.html
var templateFS embed.FS

// pathEscape encodes a filename as a single path segment, so "#", "?"
// and "%" reach the handler instead of being read as URL syntax.
var funcs = template.FuncMap{
	"pathEscape": url.PathEscape,
}

var pages = template.Must(template.New("pages").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))

type IndexPage struct {
	Files   []models.File
	Flashes []security.Flash
}

type EditPage struct {
	Filename   string
	UploadTime string
	Exists     bool
	Flashes    []security.Flash
}

func RenderIndex(w io.Writer, page IndexPage) error {
	return pages.ExecuteTemplate(w, "index.html", page)
}

func RenderEdit(w io.Writer, page EditPage) error {
	return pages.ExecuteTemplate(w, "edit.html", page)
}
