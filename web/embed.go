// Package web embeds the browser console (dist/) and serves it over HTTP.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

//go:embed all:dist
var distFS embed.FS

const consolePage = "index.html"

type consoleHandler struct {
	files  fs.FS
	assets http.Handler
}

// ConsoleHandler returns an http.Handler that serves the embedded console.
// Embedded assets are served as files; any other path gets the console page,
// which is never cached so a rebuilt binary is picked up on reload.
func ConsoleHandler() http.Handler {
	files, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}
	return &consoleHandler{files: files, assets: http.FileServerFS(files)}
}

func (h *consoleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := path.Clean(strings.TrimPrefix(r.URL.Path, "/"))
	if name != "." && name != consolePage {
		if info, err := fs.Stat(h.files, name); err == nil && !info.IsDir() {
			h.assets.ServeHTTP(w, r)
			return
		}
	}

	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFileFS(w, r, h.files, consolePage)
}
