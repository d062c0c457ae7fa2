package module

import (
	"fmt"

	"github.com/weaver-dev/weaver/internal/secret"
	"github.com/weaver-dev/weaver/internal/weavererr"
)

// Prompter asks the operator for a value of an input when no explicit
// value, saved answer, or default is available. Implementations live
// outside this package (cmd/weaver wires a terminal prompter backed by
// charmbracelet/huh; tests supply a scripted one).
type Prompter interface {
	Prompt(appName string, input string, spec InputSpec) (any, error)
}

// ResolvedApp is an app declaration instantiated against its module
// manifest: every input has been resolved to a concrete value by
// precedence, and sensitive inputs have been wrapped so they never print.
type ResolvedApp struct {
	Name     string
	Module   string
	Path     string
	Manifest *Manifest
	Inputs   map[string]any
}

// Instantiate resolves every input the manifest declares for one app,
// in the precedence order spec.md 4.C fixes:
//  1. an explicit value in the app's `inputs:` block
//  2. a saved answer from a prior interactive run
//  3. the manifest's declared default
//  4. an interactive prompt (only if prompter is non-nil)
//
// A required input with none of the above is an error. Resolved sensitive
// inputs are wrapped in secret.Secret[string] so they format as "***"
// wherever they flow through logging or output.
func Instantiate(appName, moduleName, modulePath string, explicit map[string]any, manifest *Manifest, answers *Answers, prompter Prompter) (*ResolvedApp, error) {
	resolved := make(map[string]any, len(manifest.Inputs))

	for name, spec := range manifest.Inputs {
		value, found, err := resolveOne(appName, name, spec, explicit, answers, prompter)
		if err != nil {
			return nil, fmt.Errorf("resolving input %q for app %q: %w", name, appName, err)
		}
		if !found {
			if spec.Required {
				return nil, &weavererr.MissingRequiredInput{App: appName, Module: moduleName, Key: name}
			}
			continue
		}
		if spec.Sensitive {
			if s, ok := value.(string); ok {
				value = secret.New(s)
			}
		}
		resolved[name] = value
	}

	return &ResolvedApp{
		Name:     appName,
		Module:   moduleName,
		Path:     modulePath,
		Manifest: manifest,
		Inputs:   resolved,
	}, nil
}

func resolveOne(appName, inputName string, spec InputSpec, explicit map[string]any, answers *Answers, prompter Prompter) (any, bool, error) {
	if v, ok := explicit[inputName]; ok {
		return v, true, nil
	}
	if answers != nil {
		if v, ok := answers.Get(appName, inputName); ok {
			return v, true, nil
		}
	}
	if spec.Default != nil {
		return spec.Default, true, nil
	}
	if prompter != nil {
		v, err := prompter.Prompt(appName, inputName, spec)
		if err != nil {
			return nil, false, err
		}
		if answers != nil {
			answers.Set(appName, inputName, v)
		}
		return v, true, nil
	}
	return nil, false, nil
}
