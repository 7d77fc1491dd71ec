package server

import (
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/surveydesk/internal/api/v1"
	"github.com/gosuda/surveydesk/internal/api/ws"
	"github.com/gosuda/surveydesk/internal/assets"
	"github.com/gosuda/surveydesk/internal/frontend"
)

func registerAPIRoutes(api huma.API, fe *frontend.Config, resolver assets.Resolver) {
	source, _ := resolver.(v1.ManifestSource)
	v1.RegisterEntryRoutes(api, fe, resolver, source)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/assets", hub.ServeAssets)
}

func registerPageRoutes(r chi.Router, pages *Pages) {
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		pages.Render(w, "dashboard", nil)
	})
	r.Get("/design-list/", func(w http.ResponseWriter, _ *http.Request) {
		pages.Render(w, "design-list", nil)
	})
	r.Get("/{surveyID}/questionnaire_design/", idPage(pages, "questionnaire", "surveyID", "surveyId"))
	r.Get("/collect/roster/{rosterID}/", idPage(pages, "roster", "rosterID", "rosterId"))
	r.Get("/analysis/{surveyID}/", idPage(pages, "analysis", "surveyID", "surveyId"))
	r.Get("/analysis/{surveyID}/viewer/", idPage(pages, "viewer", "surveyID", "surveyId"))
}

// idPage renders a page keyed by a positive integer URL parameter, which is
// passed to the client application as prop.
func idPage(pages *Pages, name, param, prop string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, param))
		if err != nil || id < 1 {
			http.NotFound(w, r)
			return
		}
		pages.Render(w, name, map[string]any{
			prop:      id,
			"apiBase": "/api/v1",
		})
	}
}
