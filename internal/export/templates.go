package export

import (
	"html/template"
	"time"
)

// TemplateData holds the data rendered into the export document.
type TemplateData struct {
	Title       string
	ContentHTML template.HTML
	Version     int
	UpdatedAt   time.Time
	Annotations []TemplateAnnotation
}

// TemplateAnnotation is one row of the annotation appendix.
type TemplateAnnotation struct {
	Author       string
	Kind         string
	SelectedText string
	Body         string
	Resolved     bool
	Stale        bool
}

var documentTemplate = template.Must(template.New("document").Funcs(template.FuncMap{
	"formatDate": func(t time.Time, layout string) string {
		return t.Format(layout)
	},
}).Parse(documentTemplateHTML))

const documentTemplateHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Georgia, serif; max-width: 48rem; margin: 2rem auto; line-height: 1.5; }
.meta { color: #666; font-size: 0.85rem; margin-bottom: 2rem; }
.annotation { border-left: 3px solid #ccc; padding: 0.5rem 1rem; margin: 1rem 0; }
.annotation.resolved { opacity: 0.6; }
.annotation .quoted { font-style: italic; color: #444; }
.badge { font-size: 0.7rem; text-transform: uppercase; color: #900; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="meta">Version {{.Version}} &middot; updated {{formatDate .UpdatedAt "Jan 2, 2006 15:04"}}</div>
{{.ContentHTML}}
{{if .Annotations}}
<hr>
<h2>Annotations</h2>
{{range .Annotations}}
<div class="annotation{{if .Resolved}} resolved{{end}}">
	<div><strong>{{.Author}}</strong> ({{.Kind}}){{if .Stale}} <span class="badge">possibly outdated</span>{{end}}</div>
	<div class="quoted">&ldquo;{{.SelectedText}}&rdquo;</div>
	{{if .Body}}<div>{{.Body}}</div>{{end}}
</div>
{{end}}
{{end}}
</body>
</html>
`
