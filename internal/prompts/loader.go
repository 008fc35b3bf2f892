// Package prompts provides the oracle prompt templates. Prompts are stored as
// JSON files of key to text/template source and embedded at compile time.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"sync"
	"text/template"
)

// Prompt files and keys.
const (
	EvaluationFile = "evaluation.json"
	GenerationFile = "generation.json"
	ValidationFile = "validation.json"

	KeyScoreEssay        = "score-essay"
	KeyReviseEssay       = "revise-essay"
	KeySuggestRewrites   = "suggest-rewrites"
	KeyValidateCandidate = "validate-candidate"
)

//go:embed *.json
var promptFiles embed.FS

// catalog maps file name to prompt key to parsed template.
type catalog map[string]map[string]*template.Template

// load parses every embedded file once. A malformed file fails every lookup.
var load = sync.OnceValues(func() (catalog, error) {
	return parse(promptFiles)
})

func parse(fsys fs.FS) (catalog, error) {
	names, err := fs.Glob(fsys, "*.json")
	if err != nil {
		return nil, err
	}

	out := make(catalog, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read prompt file %s: %w", name, err)
		}
		var sources map[string]string
		if err := json.Unmarshal(data, &sources); err != nil {
			return nil, fmt.Errorf("failed to parse prompt file %s: %w", name, err)
		}

		out[name] = make(map[string]*template.Template, len(sources))
		for key, src := range sources {
			tmpl, err := template.New(name + "/" + key).Option("missingkey=error").Parse(src)
			if err != nil {
				return nil, fmt.Errorf("failed to parse prompt %s/%s: %w", name, key, err)
			}
			out[name][key] = tmpl
		}
	}
	return out, nil
}

func lookup(filename, key string) (*template.Template, error) {
	c, err := load()
	if err != nil {
		return nil, err
	}
	file, ok := c[filename]
	if !ok {
		return nil, fmt.Errorf("prompt file %s not found", filename)
	}
	tmpl, ok := file[key]
	if !ok {
		return nil, fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return tmpl, nil
}

// Render fills a prompt with data. Every placeholder must have a value.
func Render(filename, key string, data map[string]string) (string, error) {
	tmpl, err := lookup(filename, key)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s/%s: %w", filename, key, err)
	}
	return sb.String(), nil
}

// Keys returns the prompt keys in a file, sorted.
func Keys(filename string) ([]string, error) {
	c, err := load()
	if err != nil {
		return nil, err
	}
	file, ok := c[filename]
	if !ok {
		return nil, fmt.Errorf("prompt file %s not found", filename)
	}
	keys := make([]string, 0, len(file))
	for key := range file {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys, nil
}
