// Package assets embeds the built viewer UI and fallback images.
package assets

import _ "embed"

// Index is the viewer single-page application, baked by cmd/minify.
//
//go:embed index.html
var Index []byte

// Favicon is the site icon.
//
//go:embed favicon.png
var Favicon []byte

// BlankTile is served where a layer has no tile at the requested coordinate.
//
//go:embed blank.png
var BlankTile []byte
