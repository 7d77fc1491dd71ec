package devserver

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// sourceFS resolves paths against the source root first and then against
// the node_modules directory beside it, so bare package paths such as
// bootstrap/dist/css/bootstrap.min.css resolve the way the builder does.
type sourceFS struct {
	layers []fs.FS
}

func newSourceFS(root string) sourceFS {
	return sourceFS{layers: []fs.FS{
		os.DirFS(root),
		os.DirFS(filepath.Join(filepath.Dir(root), "node_modules")),
	}}
}

func (s sourceFS) Open(name string) (fs.File, error) {
	var firstErr error
	for _, layer := range s.layers {
		f, err := layer.Open(name)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}
