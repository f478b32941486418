// Package templates holds the embedded HTML views.
package templates

import (
	"embed"
	"html/template"
	"time"
)

//go:embed *.html
var FS embed.FS

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		return t.Format("Jan 2, 2006 15:04")
	},
}

// Load parses every view. Each page is addressed by its file name, e.g. "index.html".
func Load() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(FS, "*.html")
}
