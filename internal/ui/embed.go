package ui

import (
	"embed"
	"io/fs"
)

// dist embeds the admin pages from ui/dist/.
//
//go:embed all:dist
var dist embed.FS

// Pages returns the admin pages: login.html and index.html.
func Pages() fs.FS {
	sub, err := fs.Sub(dist, "dist")
	if err != nil {
		// dist is embedded at build time; Sub only fails on an invalid name.
		panic(err)
	}
	return sub
}
