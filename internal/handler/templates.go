package handler

import (
	"embed"
	"html/template"
	"time"
)

//go:embed templates/*
var templateFS embed.FS

// newTemplates parses the embedded pages with the helpers they share.
func newTemplates() *template.Template {
	funcs := template.FuncMap{
		"isoDate": func(t time.Time) string {
			return t.Format("2006-01-02")
		},
		"list": func(items ...any) []any {
			return items
		},
		"sub": func(a, b int) int {
			return a - b
		},
		"absInt": func(n int) int {
			if n < 0 {
				return -n
			}
			return n
		},
		"absDiff": func(a, b float64) float64 {
			if a < b {
				return b - a
			}
			return a - b
		},
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}
