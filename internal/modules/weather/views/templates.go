package views

import "embed"

//go:embed templates/*.tmpl
var viewsFS embed.FS
