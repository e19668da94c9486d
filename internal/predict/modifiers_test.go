package predict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModifier_Unknown(t *testing.T) {
	_, err := NewModifier("nope", []string{"x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "annotations, pattern, tags")
}

func TestNewModifier_NeedsValues(t *testing.T) {
	_, err := NewModifier("tags", nil)
	assert.Error(t, err)
}

func TestPatternModifier(t *testing.T) {
	m, err := NewModifier("pattern", []string{"*IT", "com.example.slow.**"})
	require.NoError(t, err)

	tests := map[string]bool{
		"com.example.CheckoutIT":   true,
		"com.example.slow.db.Test": true,
		"com.example.CheckoutTest": false,
		"org.other.slow.Test":      false,
	}
	for name, want := range tests {
		force, _ := m.Modify(name, Metadata{})
		assert.Equal(t, want, force, name)
	}
}

func TestAnnotationModifier(t *testing.T) {
	m, err := NewModifier("annotations", []string{" AlwaysRun "})
	require.NoError(t, err)

	force, detail := m.Modify("a.T", Metadata{Annotations: []string{"Disabled", "alwaysrun"}})
	assert.True(t, force)
	assert.Equal(t, "annotations=alwaysrun", detail)

	force, _ = m.Modify("a.T", Metadata{Tags: []string{"AlwaysRun"}})
	assert.False(t, force, "tags are not annotations")
}
