package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `
- name: es_query_gen
  description: generates an Elasticsearch query from entity mappings
  outputs: [es_query]
  goal_type: support
  memorable_slots: [es_query]
  synthesis_mode: hidden
- name: show_results
  description: renders fetched hits
  outputs: [formatted_results]
  goal_type: deliverable
  synthesis_mode: display
`

func TestLoadFile_RegistersEveryEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0o644))

	r := New()
	require.NoError(t, LoadFile(r, path))

	c, ok := r.Lookup("es_query_gen")
	require.True(t, ok)
	assert.Equal(t, []string{"es_query"}, c.Outputs)
	assert.Equal(t, Hidden, c.SynthesisMode)

	c, ok = r.Lookup("show_results")
	require.True(t, ok)
	assert.Equal(t, Display, c.SynthesisMode)
}

func TestLoadFile_MissingFile(t *testing.T) {
	r := New()
	err := LoadFile(r, "/nonexistent/manifest.yaml")
	assert.Error(t, err)
}

func TestLoadFile_DuplicateAcrossCallsIsRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0o644))

	r := New()
	require.NoError(t, LoadFile(r, path))
	err := LoadFile(r, path)
	assert.Error(t, err)
}
