package server

import (
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// staticFileServer serves build output from an fs.FS. Files under assetsDir
// carry a content hash in their name and are cached indefinitely. Dot
// directories such as the manifest's .vite/ are not served.
func staticFileServer(files fs.FS, assetsDir string) http.Handler {
	fileServer := http.FileServerFS(files)
	prefix := strings.Trim(assetsDir, "/") + "/"

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")

		for _, seg := range strings.Split(name, "/") {
			if strings.HasPrefix(seg, ".") {
				http.NotFound(w, r)
				return
			}
		}

		if _, err := fs.Stat(files, name); err != nil {
			http.NotFound(w, r)
			return
		}

		if strings.HasPrefix(name, prefix) {
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		}
		fileServer.ServeHTTP(w, r)
	})
}
