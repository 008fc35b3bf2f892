// Package rubric defines the weighted rubric versions essays are scored against.
package rubric

import (
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// WeightEpsilon is the tolerance allowed when checking that weights sum to 1.
const WeightEpsilon = 1e-6

// DefaultVersion is the rubric version used when none is configured.
const DefaultVersion = "v1"

// Category is a single scored dimension of a rubric.
type Category struct {
	Name        string  `json:"name" yaml:"name"`
	Weight      float64 `json:"weight" yaml:"weight"`
	Description string  `json:"description,omitempty" yaml:"description"`
}

// Rubric is a fixed list of categories and weights identified by a version.
type Rubric struct {
	Version    string     `json:"version" yaml:"version"`
	Categories []Category `json:"categories" yaml:"categories"`
}

// Validate checks the rubric is usable. Weights that do not sum to 1 are a
// configuration error; they are never renormalized.
func (r *Rubric) Validate() error {
	if r.Version == "" {
		return &ConfigError{Message: "version is required"}
	}
	if len(r.Categories) == 0 {
		return &ConfigError{Version: r.Version, Message: "at least one category is required"}
	}

	seen := make(map[string]bool, len(r.Categories))
	sum := 0.0
	for _, c := range r.Categories {
		if c.Name == "" {
			return &ConfigError{Version: r.Version, Message: "category name is required"}
		}
		if seen[c.Name] {
			return &ConfigError{Version: r.Version, Message: fmt.Sprintf("duplicate category %q", c.Name)}
		}
		seen[c.Name] = true
		if c.Weight < 0 || c.Weight > 1 {
			return &ConfigError{Version: r.Version, Message: fmt.Sprintf("category %q weight %.4f outside [0,1]", c.Name, c.Weight)}
		}
		sum += c.Weight
	}

	if math.Abs(sum-1.0) > WeightEpsilon {
		return &ConfigError{Version: r.Version, Message: fmt.Sprintf("weights sum to %.6f, must sum to 1.0", sum)}
	}
	return nil
}

// Names returns the category names in rubric order.
func (r *Rubric) Names() []string {
	names := make([]string, len(r.Categories))
	for i, c := range r.Categories {
		names[i] = c.Name
	}
	return names
}

// Weight returns the weight of the named category.
func (r *Rubric) Weight(name string) (float64, bool) {
	for _, c := range r.Categories {
		if c.Name == name {
			return c.Weight, true
		}
	}
	return 0, false
}

// Default returns the built-in v1 essay rubric.
func Default() *Rubric {
	return &Rubric{
		Version: DefaultVersion,
		Categories: []Category{
			{Name: "authenticity", Weight: 0.20, Description: "Reads as the writer's own experience rather than a performance"},
			{Name: "vulnerability", Weight: 0.15, Description: "Admits uncertainty, failure or cost"},
			{Name: "specificity", Weight: 0.15, Description: "Concrete people, places, numbers and moments"},
			{Name: "narrative_arc", Weight: 0.15, Description: "Tension, turn and change across the piece"},
			{Name: "reflection", Weight: 0.15, Description: "Insight that goes beyond the events described"},
			{Name: "voice", Weight: 0.10, Description: "Distinct, consistent personal voice"},
			{Name: "craft", Weight: 0.10, Description: "Sentence-level control, pacing and structure"},
		},
	}
}

// Registry holds the rubric versions available to a process.
type Registry struct {
	rubrics map[string]*Rubric
}

// NewRegistry creates a registry containing the built-in rubric.
func NewRegistry() *Registry {
	def := Default()
	return &Registry{rubrics: map[string]*Rubric{def.Version: def}}
}

// Register validates and adds a rubric, replacing any rubric with the same version.
func (reg *Registry) Register(r *Rubric) error {
	if err := r.Validate(); err != nil {
		return err
	}
	reg.rubrics[r.Version] = r
	return nil
}

// Get returns the rubric for a version.
func (reg *Registry) Get(version string) (*Rubric, error) {
	if version == "" {
		version = DefaultVersion
	}
	r, ok := reg.rubrics[version]
	if !ok {
		return nil, &ConfigError{Version: version, Message: "unknown rubric version"}
	}
	return r, nil
}

// Versions lists registered versions in sorted order.
func (reg *Registry) Versions() []string {
	versions := make([]string, 0, len(reg.rubrics))
	for v := range reg.rubrics {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions
}

// rubricFile is the on-disk YAML layout: a list of rubric versions.
type rubricFile struct {
	Rubrics []Rubric `yaml:"rubrics"`
}

// LoadFile reads rubric versions from a YAML file and registers each of them.
func (reg *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read rubric file %s: %w", path, err)
	}
	return reg.LoadYAML(data)
}

// LoadYAML registers every rubric in a YAML document.
func (reg *Registry) LoadYAML(data []byte) error {
	var file rubricFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse rubric YAML: %w", err)
	}
	if len(file.Rubrics) == 0 {
		return &ConfigError{Message: "rubric file defines no rubrics"}
	}
	for i := range file.Rubrics {
		r := file.Rubrics[i]
		if err := reg.Register(&r); err != nil {
			return err
		}
	}
	return nil
}
