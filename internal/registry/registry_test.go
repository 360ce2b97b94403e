package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_DuplicateNameRejected(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Capability{Name: "es_query_gen", Outputs: []string{"es_query"}}))

	err := r.Register(Capability{Name: "es_query_gen"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestRegister_EmptyNameRejected(t *testing.T) {
	r := New()
	err := r.Register(Capability{Name: ""})
	require.Error(t, err)
}

func TestRegister_DefaultsSynthesisModeToHidden(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Capability{Name: "show_results"}))

	c, ok := r.Lookup("show_results")
	require.True(t, ok)
	assert.Equal(t, Hidden, c.SynthesisMode)
}

func TestMustRegister_PanicsOnConflict(t *testing.T) {
	r := New()
	r.MustRegister(Capability{Name: "page_query"})

	assert.Panics(t, func() {
		r.MustRegister(Capability{Name: "page_query"})
	})
}

func TestList_PreservesRegistrationOrder(t *testing.T) {
	r := New()
	r.MustRegister(Capability{Name: "b"})
	r.MustRegister(Capability{Name: "a"})
	r.MustRegister(Capability{Name: "c"})

	names := make([]string, 0, 3)
	for _, c := range r.List() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"b", "a", "c"}, names)
}

func TestOutputsOf(t *testing.T) {
	r := New()
	r.MustRegister(Capability{Name: "es_query_gen", Outputs: []string{"es_query"}})

	outputs, ok := r.OutputsOf("es_query_gen")
	require.True(t, ok)
	assert.Equal(t, []string{"es_query"}, outputs)

	_, ok = r.OutputsOf("nonexistent")
	assert.False(t, ok)
}
