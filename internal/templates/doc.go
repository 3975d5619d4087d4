// Package templates provides starter pack scaffolding.
//
// Templates are used by "zcc pack create" to lay out a new pack directory
// that validates out of the box and can be served by a custom or http
// source.
//
// # Available Templates
//
//   - minimal: a manifest and a single mode
//   - full: one component of every type, a hook script and post-install notes
//   - hooks: a hook-only pack
//
// # Usage
//
//	tmpl, err := templates.Get("full")
//	if err != nil {
//	    return err
//	}
//	if err := tmpl.Create(packDir, templates.Config{Name: "my-pack"}); err != nil {
//	    return err
//	}
//
// # Template Variables
//
//	{{.Name}}         - Pack name
//	{{.Title}}        - Pack name in title case
//	{{.Description}}  - Pack description
//	{{.Author}}       - Pack author
//	{{.Category}}     - Pack category
//	{{.Version}}      - Initial version
package templates
