/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package processor

import (
	"bytes"
	"fmt"
	"go/format"
	"io"
	"slices"
	"text/template"
)

const (
	doccontextImport = "github.com/suparena/doccontext"
	datastoreImport  = "github.com/suparena/doccontext/datastore"
)

type renderData struct {
	Package   string
	Context   string
	Comment   string
	Imports   []string
	Sets      []SetEntry
	Overrides []SetEntry
	Version   string
}

// Render writes the gofmt-formatted context model for m. version, when set,
// is recorded in the header.
func Render(w io.Writer, m *Manifest, version string) error {
	if err := m.Validate(); err != nil {
		return err
	}

	data := renderData{
		Package: m.Package,
		Context: m.Context,
		Comment: m.Comment,
		Imports: []string{doccontextImport, datastoreImport},
		Sets:    m.Sets,
		Version: version,
	}
	for _, imp := range m.Imports {
		if !slices.Contains(data.Imports, imp) {
			data.Imports = append(data.Imports, imp)
		}
	}
	slices.Sort(data.Imports)
	for _, s := range m.Sets {
		if s.Collection != "" {
			data.Overrides = append(data.Overrides, s)
		}
	}

	var buf bytes.Buffer
	if err := modelTemplate.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", m.Context, err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return fmt.Errorf("generated code for %s does not parse: %w", m.Context, err)
	}
	_, err = w.Write(src)
	return err
}

var modelTemplate = template.Must(template.New("model").Parse(`// Code generated by docmapgen{{if .Version}} {{.Version}}{{end}}. DO NOT EDIT.

package {{.Package}}

import (
{{- range .Imports}}
	"{{.}}"
{{- end}}
)

{{if .Comment}}// {{.Context}} {{.Comment}}{{else}}// {{.Context}} is a generated context model.{{end}}
type {{.Context}} struct {
	doccontext.Context
{{- range .Sets}}
	{{.Name}} *doccontext.Repository[{{.Type}}]
{{- end}}
}

// {{.Context}}Model declares the entity sets of {{.Context}}.
var {{.Context}}Model = doccontext.NewModel[{{.Context}}](
{{- range .Sets}}
	doccontext.Set({{printf "%q" .Name}}, func(c *{{$.Context}}) **doccontext.Repository[{{.Type}}] { return &c.{{.Name}} }),
{{- end}}
){{range .Overrides}}.
	Map({{printf "%q" .Name}}, {{printf "%q" .Collection}}){{end}}

// New{{.Context}} creates a {{.Context}} on db.
func New{{.Context}}(db datastore.Database, opts ...doccontext.Option) *{{.Context}} {
	return {{.Context}}Model.New(db, opts...)
}
`))
