/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package processor

import (
	"bytes"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/doccontext/errors"
)

const leagueManifest = `
package: league
context: League
comment: holds the league's players and clubs.
imports:
  - github.com/acme/league/models
sets:
  - name: Players
    type: models.Player
  - name: Clubs
    type: models.Club
    collection: football_clubs
  - name: Notes
    type: Note
`

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest(strings.NewReader(leagueManifest))
	require.NoError(t, err)
	assert.Equal(t, "League", m.Context)
	require.Len(t, m.Sets, 3)
	assert.Equal(t, SetEntry{Name: "Clubs", Type: "models.Club", Collection: "football_clubs"}, m.Sets[1])

	path := filepath.Join(t.TempDir(), "league.yaml")
	require.NoError(t, os.WriteFile(path, []byte(leagueManifest), 0o600))
	loaded, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, m, loaded)

	_, err = ParseManifest(strings.NewReader("package: league\ncontext: League\nentities: []\n"))
	assert.ErrorContains(t, err, "failed to parse manifest")
}

func TestManifestValidate(t *testing.T) {
	valid := func() *Manifest {
		return &Manifest{Package: "league", Context: "League", Sets: []SetEntry{{Name: "Players", Type: "models.Player"}}}
	}

	tests := []struct {
		name   string
		modify func(*Manifest)
		field  string
	}{
		{"bad package", func(m *Manifest) { m.Package = "my-league" }, "package"},
		{"unexported context", func(m *Manifest) { m.Context = "league" }, "context"},
		{"no sets", func(m *Manifest) { m.Sets = nil }, "sets"},
		{"unexported set", func(m *Manifest) { m.Sets[0].Name = "players" }, "sets[0].name"},
		{"reserved set name", func(m *Manifest) { m.Sets[0].Name = "Context" }, "sets[0].name"},
		{"duplicate set", func(m *Manifest) {
			m.Sets = append(m.Sets, SetEntry{Name: "PLAYERS", Type: "models.Player"})
		}, "sets[1].name"},
		{"bad type", func(m *Manifest) { m.Sets[0].Type = "models.player" }, "sets[0].type"},
		{"empty type", func(m *Manifest) { m.Sets[0].Type = "" }, "sets[0].type"},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid()
			tt.modify(m)
			var ve *errors.ValidationError
			require.ErrorAs(t, m.Validate(), &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestRender(t *testing.T) {
	m, err := ParseManifest(strings.NewReader(leagueManifest))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, m, "0.1.0"))
	src := buf.String()

	file, err := parser.ParseFile(token.NewFileSet(), "league_gen.go", src, parser.ParseComments)
	require.NoError(t, err)
	assert.Equal(t, "league", file.Name.Name)

	var imports []string
	for _, imp := range file.Imports {
		imports = append(imports, strings.Trim(imp.Path.Value, `"`))
	}
	assert.Equal(t, []string{
		"github.com/acme/league/models",
		"github.com/suparena/doccontext",
		"github.com/suparena/doccontext/datastore",
	}, imports)

	assert.True(t, strings.HasPrefix(src, "// Code generated by docmapgen 0.1.0. DO NOT EDIT."))
	assert.Contains(t, src, "// League holds the league's players and clubs.")
	assert.Contains(t, src, "Players *doccontext.Repository[models.Player]")
	assert.Contains(t, src, "Notes   *doccontext.Repository[Note]")
	assert.Contains(t, src, `doccontext.Set("Clubs", func(c *League) **doccontext.Repository[models.Club] { return &c.Clubs })`)
	assert.Contains(t, src, `Map("Clubs", "football_clubs")`)
	assert.NotContains(t, src, `Map("Players"`)
	assert.Contains(t, src, "func NewLeague(db datastore.Database, opts ...doccontext.Option) *League {")

	t.Run("invalid manifest", func(t *testing.T) {
		err := Render(&bytes.Buffer{}, &Manifest{Package: "x"}, "")
		assert.True(t, errors.IsValidationError(err), "got %v", err)
	})
}
