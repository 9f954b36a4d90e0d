package handler

import (
	"embed"
	"html/template"
	"strings"
	"time"

	"github.com/timmy/crafto/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the embedded page templates.
func Templates() (*template.Template, error) {
	return template.New("pages").Funcs(template.FuncMap{
		"date": func(q domain.Quote) string {
			return q.CreatedDate(time.Local)
		},
		// Previews are data URIs rendered by the media package, never user input.
		"previewURL": func(s string) template.URL {
			if !strings.HasPrefix(s, "data:image/") {
				return ""
			}
			return template.URL(s)
		},
	}).ParseFS(templateFS, "templates/*.html")
}
