package view

import (
	"io"
	"io/fs"
)

// FSRenderer renders views from a file system.
type FSRenderer struct {
	fs fs.FS
}

func NewFSRenderer(fsys fs.FS) *FSRenderer {
	return &FSRenderer{fs: fsys}
}

func (r *FSRenderer) Render(w io.Writer, name string, data any) error {
	v, err := Parse(r.fs, name)
	if err != nil {
		return err
	}

	return v.Render(w, data)
}
