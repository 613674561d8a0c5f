// Package views renders the dashboard's server-side HTML pages.
package views

import (
	"embed"
	"encoding/json"
	"html/template"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/stockyard-ci/stockyard/internal/summary"
)

//go:embed templates/*.html
var templateFS embed.FS

// Funcs returns the helpers available to every page template.
func Funcs(thresholds summary.CoverageThresholds) template.FuncMap {
	return template.FuncMap{
		"reltime": func(t *time.Time) string {
			if t == nil || t.IsZero() {
				return "never"
			}
			return humanize.Time(*t)
		},
		"comma": func(n int) string {
			return humanize.Comma(int64(n))
		},
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"pct":    summary.RatioPercent,
		"band":   func(ratio float64) string { return string(thresholds.Classify(ratio)) },
		"passed": summary.IsSuccess,
		"json": func(v interface{}) (template.JS, error) {
			b, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			return template.JS(b), nil
		},
	}
}

// Load parses every embedded page. Templates are addressed by file name,
// e.g. "index.html".
func Load(thresholds summary.CoverageThresholds) (*template.Template, error) {
	return template.New("").Funcs(Funcs(thresholds)).ParseFS(templateFS, "templates/*.html")
}
