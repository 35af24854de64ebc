// Package assets embeds the templates and migrations the server needs
// at runtime.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed templates/*
var templateFS embed.FS

//go:embed emails/*.tmpl
var emailFS embed.FS

//go:embed migrations/*.sql
var migrationFS embed.FS

var (
	TemplateFS  fs.FS
	EmailFS     fs.FS
	MigrationFS fs.FS
)

func init() {
	var err error

	TemplateFS, err = fs.Sub(templateFS, "templates")
	if err != nil {
		panic("failed to subtree template FS: " + err.Error())
	}

	EmailFS, err = fs.Sub(emailFS, "emails")
	if err != nil {
		panic("failed to subtree email FS: " + err.Error())
	}

	MigrationFS, err = fs.Sub(migrationFS, "migrations")
	if err != nil {
		panic("failed to subtree migration FS: " + err.Error())
	}
}
