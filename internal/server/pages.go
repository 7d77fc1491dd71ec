package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/surveydesk/internal/mount"
)

//go:embed templates/*.html
var templateFS embed.FS

// MountFailuresHeader lists the entries that failed to mount on a page.
const MountFailuresHeader = "X-Mount-Failures"

// page ties a template to the entries mounted into it.
type page struct {
	file    string
	entries []string
}

var pageTable = map[string]page{
	"dashboard":     {file: "dashboard.html"},
	"design-list":   {file: "design_list.html"},
	"questionnaire": {file: "questionnaire_design.html", entries: []string{"survey"}},
	"roster":        {file: "roster_data.html", entries: []string{"collector"}},
	"analysis":      {file: "analysis.html", entries: []string{"analysis"}},
	"viewer":        {file: "viewer.html", entries: []string{"viewer"}},
}

var labels = map[string]string{
	"home":                 "대시보드",
	"design":               "설계 영역",
	"field_design":         "항목설계",
	"roster_design":        "명부설계",
	"questionnaire_design": "설문설계",
	"collect":              "자료수집",
	"analysis":             "분석",
	"viewer":               "결과 보기",
}

// PageData is passed to every page template. Props is handed to the client
// application as JSON.
type PageData struct {
	Labels map[string]string
	Props  map[string]any
}

// Pages renders server templates and mounts their entries.
type Pages struct {
	coord *mount.Coordinator
	tmpl  map[string]*template.Template
}

// NewPages parses the embedded templates.
func NewPages(coord *mount.Coordinator) (*Pages, error) {
	p := &Pages{coord: coord, tmpl: make(map[string]*template.Template, len(pageTable))}
	for name, pg := range pageTable {
		t, err := template.New(pg.file).Funcs(templateFuncs()).
			ParseFS(templateFS, "templates/layout.html", "templates/"+pg.file)
		if err != nil {
			return nil, fmt.Errorf("server.NewPages: %s: %w", pg.file, err)
		}
		p.tmpl[name] = t
	}
	return p, nil
}

// Render writes page name. Mount failures do not fail the response: they
// are listed in the X-Mount-Failures header and the page is served without
// the affected entries.
func (p *Pages) Render(w http.ResponseWriter, name string, props map[string]any) {
	pg, ok := pageTable[name]
	if !ok {
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	data := PageData{Labels: labels, Props: props}
	if err := p.tmpl[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Error().Err(err).Str("page", name).Msg("render template")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	out := &buf
	if len(pg.entries) > 0 {
		var mounted bytes.Buffer
		report, err := p.coord.Page(&mounted, &buf, pg.entries...)
		if err != nil {
			log.Error().Err(err).Str("page", name).Msg("mount page")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if len(report.Failures) > 0 {
			failed := make([]string, 0, len(report.Failures))
			for _, f := range report.Failures {
				failed = append(failed, f.Entry)
			}
			w.Header().Set(MountFailuresHeader, strings.Join(failed, ", "))
		}
		out = &mounted
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = out.WriteTo(w)
}
