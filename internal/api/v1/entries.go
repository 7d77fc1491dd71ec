package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/surveydesk/internal/assets"
	"github.com/gosuda/surveydesk/internal/manifest"
)

type EntryResponse struct {
	Name    string            `json:"name"`
	Src     string            `json:"src"`
	Anchor  string            `json:"anchor"`
	Styles  []string          `json:"styles"`
	Scripts []string          `json:"scripts"`
	Globals map[string]string `json:"globals,omitempty"`
}

type ListEntriesOutput struct {
	Body []EntryResponse
}

type GetEntryAssetsInput struct {
	Name string `path:"name" doc:"Logical entry name" example:"collector"`
}

type GetEntryAssetsOutput struct {
	Body *assets.Bundle
}

type GetManifestOutput struct {
	Body manifest.Index
}

// RegisterEntryRoutes mounts the entry and manifest endpoints. source may be
// nil when pages are served from the dev server.
func RegisterEntryRoutes(api huma.API, catalog EntryCatalog, resolver assets.Resolver, source ManifestSource) {
	huma.Register(api, huma.Operation{
		OperationID: "list-entries",
		Method:      http.MethodGet,
		Path:        "/entries",
		Summary:     "List configured entries",
		Tags:        []string{"Entries"},
	}, func(_ context.Context, _ *struct{}) (*ListEntriesOutput, error) {
		names := catalog.Names()
		out := make([]EntryResponse, 0, len(names))
		for _, name := range names {
			e, ok := catalog.Entry(name)
			if !ok {
				continue
			}
			out = append(out, EntryResponse{
				Name:    e.Name,
				Src:     e.Src,
				Anchor:  e.Anchor,
				Styles:  nonNil(e.Styles),
				Scripts: nonNil(e.Scripts),
				Globals: e.Globals,
			})
		}
		return &ListEntriesOutput{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-entry-assets",
		Method:      http.MethodGet,
		Path:        "/entries/{name}/assets",
		Summary:     "Resolve the URLs an entry loads",
		Tags:        []string{"Entries"},
	}, func(_ context.Context, input *GetEntryAssetsInput) (*GetEntryAssetsOutput, error) {
		if _, ok := catalog.Entry(input.Name); !ok {
			return nil, huma.Error404NotFound("entry not configured")
		}

		b, err := resolver.Resolve(input.Name)
		if errors.Is(err, manifest.ErrEntryNotFound) {
			return nil, huma.Error404NotFound("entry missing from build manifest", err)
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to resolve entry", err)
		}
		return &GetEntryAssetsOutput{Body: b}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-manifest",
		Method:      http.MethodGet,
		Path:        "/manifest",
		Summary:     "Logical entry name to emitted files",
		Tags:        []string{"Manifest"},
	}, func(_ context.Context, _ *struct{}) (*GetManifestOutput, error) {
		if source == nil {
			return nil, huma.Error404NotFound("no build manifest in dev mode")
		}
		return &GetManifestOutput{Body: source.Manifest().Index()}, nil
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
