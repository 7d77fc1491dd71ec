// Package web embeds the built frontend assets for single-binary distribution.
package web

import "embed"

// Assets contains the frontend build output under dist/.
// Populate it with `surveyassets build --out web/dist`; the checked-in tree
// holds an empty manifest so the package always compiles.
//
//go:embed all:dist
var Assets embed.FS
