package module

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/goccy/go-yaml"
)

// AnswersFileName is the fixed path, relative to the workspace's .rw
// directory, where previously-prompted input answers persist per app.
const AnswersFileName = "answers.yaml"

// Answers is the per-app saved-answer set: appName -> inputName -> value.
type Answers struct {
	Apps map[string]map[string]any `yaml:"apps"`
}

// LoadAnswers loads path, returning an empty Answers if it does not exist.
func LoadAnswers(path string) (*Answers, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Answers{Apps: map[string]map[string]any{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading answers store: %w", err)
	}
	var a Answers
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parsing answers store: %w", err)
	}
	if a.Apps == nil {
		a.Apps = map[string]map[string]any{}
	}
	return &a, nil
}

// Set records value as the saved answer for input k of app, and returns a
// with the change applied.
func (a *Answers) Set(app, k string, value any) {
	if a.Apps[app] == nil {
		a.Apps[app] = map[string]any{}
	}
	a.Apps[app][k] = value
}

// Get returns the saved answer for input k of app, if any.
func (a *Answers) Get(app, k string) (any, bool) {
	inputs, ok := a.Apps[app]
	if !ok {
		return nil, false
	}
	v, ok := inputs[k]
	return v, ok
}

// Save persists a to path atomically, with keys sorted so the file's
// on-disk form is stable across runs.
func Save(path string, a *Answers) error {
	ordered := yaml.MapSlice{}
	appNames := make([]string, 0, len(a.Apps))
	for name := range a.Apps {
		appNames = append(appNames, name)
	}
	sort.Strings(appNames)
	for _, name := range appNames {
		inputs := a.Apps[name]
		keys := make([]string, 0, len(inputs))
		for k := range inputs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		inner := yaml.MapSlice{}
		for _, k := range keys {
			inner = append(inner, yaml.MapItem{Key: k, Value: inputs[k]})
		}
		ordered = append(ordered, yaml.MapItem{Key: name, Value: inner})
	}
	root := yaml.MapSlice{{Key: "apps", Value: ordered}}

	data, err := yaml.Marshal(root)
	if err != nil {
		return fmt.Errorf("encoding answers store: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating answers store directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".answers-*.yaml")
	if err != nil {
		return fmt.Errorf("creating temp file for answers store: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing answers store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing answers store temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("committing answers store: %w", err)
	}
	return nil
}
