package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"feedback-hub/internal/utils"
)

// SPA serves a prebuilt single-page app from dir. Unknown non-API paths
// fall back to index.html so client-side routes resolve.
func SPA(dir string) http.HandlerFunc {
	fs := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			NotFound().ServeHTTP(w, r)
			return
		}
		p := filepath.Join(dir, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			fs.ServeHTTP(w, r)
			return
		}
		http.ServeFile(w, r, index)
	}
}

func NotFound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.Fail(w, r, utils.NotFoundError("Cannot find "+r.Method+" "+r.URL.Path+" on this server"))
	}
}

func MethodNotAllowed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.Fail(w, r, utils.NotFoundError("Cannot find "+r.Method+" "+r.URL.Path+" on this server"))
	}
}
