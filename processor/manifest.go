/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package processor

import (
	"bytes"
	"fmt"
	"go/token"
	"io"
	"os"
	"strings"

	"github.com/suparena/doccontext/errors"
	"gopkg.in/yaml.v3"
)

// Manifest describes one context model to generate.
type Manifest struct {
	// Package is the package clause of the generated file.
	Package string `yaml:"package"`
	// Context is the name of the generated context type.
	Context string `yaml:"context"`
	// Comment, when set, documents the context type.
	Comment string `yaml:"comment"`
	// Imports lists the packages the entity types come from.
	Imports []string   `yaml:"imports"`
	Sets    []SetEntry `yaml:"sets"`
}

// SetEntry declares one entity set.
type SetEntry struct {
	// Name is the set name and the repository field name.
	Name string `yaml:"name"`
	// Type is the entity type, qualified as it is written in Go ("models.Player").
	Type string `yaml:"type"`
	// Collection overrides the collection name.
	Collection string `yaml:"collection"`
}

// LoadManifest reads and validates the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()
	return ParseManifest(f)
}

// ParseManifest decodes a YAML manifest and validates it. Unknown keys are
// rejected.
func ParseManifest(r io.Reader) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate reports the first problem that would make the generated file fail
// to compile or the model fail to build.
func (m *Manifest) Validate() error {
	if !token.IsIdentifier(m.Package) {
		return errors.NewValidationError("package", fmt.Sprintf("%q is not a package name", m.Package))
	}
	if !token.IsIdentifier(m.Context) || !token.IsExported(m.Context) {
		return errors.NewValidationError("context", fmt.Sprintf("%q is not an exported identifier", m.Context))
	}
	if len(m.Sets) == 0 {
		return errors.NewValidationError("sets", "at least one entity set is required")
	}

	seen := make(map[string]bool, len(m.Sets))
	for i, s := range m.Sets {
		field := fmt.Sprintf("sets[%d]", i)
		if !token.IsIdentifier(s.Name) || !token.IsExported(s.Name) {
			return errors.NewValidationError(field+".name", fmt.Sprintf("%q is not an exported identifier", s.Name))
		}
		if s.Name == "Context" {
			return errors.NewValidationError(field+".name", "Context is taken by the embedded context")
		}
		key := strings.ToLower(s.Name)
		if seen[key] {
			return errors.NewValidationError(field+".name", fmt.Sprintf("duplicate set %q", s.Name))
		}
		seen[key] = true
		if !validTypeName(s.Type) {
			return errors.NewValidationError(field+".type", fmt.Sprintf("%q is not a type name", s.Type))
		}
	}
	return nil
}

// validTypeName accepts Name and pkg.Name.
func validTypeName(s string) bool {
	pkg, name, qualified := strings.Cut(s, ".")
	if !qualified {
		return token.IsIdentifier(s)
	}
	return token.IsIdentifier(pkg) && token.IsIdentifier(name) && token.IsExported(name)
}
