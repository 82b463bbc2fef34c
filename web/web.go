// Package web holds the embedded static assets served by the API.
package web

import "embed"

// Viewer is the download-and-decrypt page served for every file id. All
// state it needs (the id and the key material in the URL fragment) comes
// from the browser location, so one page serves every file.
//
//go:embed index.html
var Viewer []byte

// Assets holds the stylesheet and scripts the viewer page references.
// Paths inside the FS keep their "static/" prefix, matching the request
// paths, so the FS can be served without stripping.
//
//go:embed static
var Assets embed.FS
