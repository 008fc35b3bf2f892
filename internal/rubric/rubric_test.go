package rubric

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_WeightsSumToOne(t *testing.T) {
	r := Default()
	require.NoError(t, r.Validate())

	sum := 0.0
	for _, c := range r.Categories {
		sum += c.Weight
	}
	assert.InDelta(t, 1.0, sum, WeightEpsilon)
	assert.Equal(t, DefaultVersion, r.Version)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		rubric  Rubric
		message string
	}{
		{
			name:    "missing version",
			rubric:  Rubric{Categories: []Category{{Name: "a", Weight: 1}}},
			message: "version is required",
		},
		{
			name:    "no categories",
			rubric:  Rubric{Version: "x"},
			message: "at least one category",
		},
		{
			name:    "weights short of one",
			rubric:  Rubric{Version: "x", Categories: []Category{{Name: "a", Weight: 0.5}, {Name: "b", Weight: 0.4}}},
			message: "must sum to 1.0",
		},
		{
			name:    "duplicate",
			rubric:  Rubric{Version: "x", Categories: []Category{{Name: "a", Weight: 0.5}, {Name: "a", Weight: 0.5}}},
			message: "duplicate category",
		},
		{
			name:    "negative weight",
			rubric:  Rubric{Version: "x", Categories: []Category{{Name: "a", Weight: -0.5}, {Name: "b", Weight: 1.5}}},
			message: "outside [0,1]",
		},
		{
			name:    "empty name",
			rubric:  Rubric{Version: "x", Categories: []Category{{Name: "", Weight: 1}}},
			message: "name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rubric.Validate()
			require.Error(t, err)
			var cfgErr *ConfigError
			assert.True(t, errors.As(err, &cfgErr))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestValidate_WithinEpsilon(t *testing.T) {
	r := Rubric{Version: "x", Categories: []Category{
		{Name: "a", Weight: 0.1},
		{Name: "b", Weight: 0.2},
		{Name: "c", Weight: 0.7},
	}}
	assert.NoError(t, r.Validate())
}

func TestRubric_WeightAndNames(t *testing.T) {
	r := Default()

	w, ok := r.Weight("authenticity")
	assert.True(t, ok)
	assert.Equal(t, 0.20, w)

	_, ok = r.Weight("nonexistent")
	assert.False(t, ok)

	assert.Equal(t, []string{"authenticity", "vulnerability", "specificity", "narrative_arc", "reflection", "voice", "craft"}, r.Names())
}

func TestRegistry_GetDefault(t *testing.T) {
	reg := NewRegistry()

	r, err := reg.Get("")
	require.NoError(t, err)
	assert.Equal(t, DefaultVersion, r.Version)

	_, err = reg.Get("v9")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown rubric version")
}

func TestRegistry_LoadFile(t *testing.T) {
	content := `rubrics:
  - version: short
    categories:
      - name: voice
        weight: 0.5
      - name: specificity
        weight: 0.5
`
	path := filepath.Join(t.TempDir(), "rubrics.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	reg := NewRegistry()
	require.NoError(t, reg.LoadFile(path))

	r, err := reg.Get("short")
	require.NoError(t, err)
	assert.Len(t, r.Categories, 2)
	assert.Equal(t, []string{"short", "v1"}, reg.Versions())
}

func TestRegistry_LoadYAML_RejectsBadWeights(t *testing.T) {
	content := `rubrics:
  - version: broken
    categories:
      - name: voice
        weight: 0.9
`
	reg := NewRegistry()
	err := reg.LoadYAML([]byte(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must sum to 1.0")

	_, err = reg.Get("broken")
	assert.Error(t, err)
}

func TestRegistry_LoadFile_Missing(t *testing.T) {
	reg := NewRegistry()
	err := reg.LoadFile("/nonexistent/rubrics.yaml")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read rubric file")
}
