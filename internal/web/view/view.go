package view

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
)

const baseFilename = "base.html"

// View is a collection of templates used to render a HTML page. Every
// view has an unique name and combines:
// - base.html (required)
// - {name}.html (optional)
type View struct {
	name string
	tmpl *template.Template
}

// Parse parses the file system and returns a view for the given name.
func Parse(viewFS fs.FS, name string) (*View, error) {
	// Validate the filename, just to be sure.
	//
	// Generally these will be hardcoded, but if for some reason we end
	// up with user input as a filename, we don't want to allow them
	// access to the filesystem.
	if err := validateName(name); err != nil {
		return nil, err
	}

	files := []string{
		baseFilename,
	}

	if name != baseFilename && name != "" {
		files = append(files, fmt.Sprintf("%s.html", name))
	}

	t := template.New(baseFilename)
	tmpl, err := t.ParseFS(viewFS, files...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse view %q: %w", name, err)
	}

	return &View{
		name: name,
		tmpl: tmpl,
	}, nil
}

// Render renders the view with the provided data.
func (v *View) Render(w io.Writer, data any) error {
	return v.tmpl.ExecuteTemplate(w, baseFilename, data)
}

// validateName checks if all characters are alphanumeric, dashes or underscores.
func validateName(name string) error {
	for _, c := range name {
		if !validViewRune(c) {
			return fmt.Errorf("invalid character %v in view name: %s", c, name)
		}
	}
	return nil
}

func validViewRune(r rune) bool {
	return r == '-' || r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
