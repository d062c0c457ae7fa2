package reconcile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/weaver-dev/weaver/internal/module"
	"github.com/weaver-dev/weaver/internal/state"
	"github.com/weaver-dev/weaver/internal/weavererr"
)

// templateSuffix is the suffix stripped from a rendered template's
// destination filename (spec.md 4.E.d).
const templateSuffix = ".j2"

// writeFile applies the write protocol (spec.md 4.E) for one destination
// file: compute current checksum, compare against recorded state to
// detect drift, and either fail, log-and-proceed, or write, updating st
// on success. dest must be an absolute path.
func writeFile(dest string, content []byte, st *state.State, opts Options) (FileAction, error) {
	newChecksum := state.ChecksumBytes(content)

	existed := false
	if info, err := os.Stat(dest); err == nil && !info.IsDir() {
		existed = true
		currentChecksum, err := state.Checksum(dest)
		if err != nil {
			return FileAction{}, fmt.Errorf("checksumming %s: %w", dest, err)
		}
		if rec, ok := st.Get(dest); ok && rec.Checksum != currentChecksum {
			// Drift: the file on disk no longer matches what we last wrote.
			if opts.Strategy != "overwrite" && !opts.AutoApprove {
				return FileAction{}, &weavererr.DriftDetected{Path: dest}
			}
			slog.Warn("drift detected, overwriting", "path", dest, "recorded_checksum", rec.Checksum, "current_checksum", currentChecksum)
		}
		if currentChecksum == newChecksum {
			return FileAction{Path: dest, Kind: "noop"}, nil
		}
	}

	kind := "update"
	if !existed {
		kind = "create"
	}

	if opts.DryRun {
		return FileAction{Path: dest, Kind: kind}, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return FileAction{}, fmt.Errorf("creating directory for %s: %w", dest, err)
	}
	if err := os.WriteFile(dest, content, 0o644); err != nil {
		return FileAction{}, fmt.Errorf("writing %s: %w", dest, err)
	}
	st.Set(dest, newChecksum, time.Now())

	return FileAction{Path: dest, Kind: kind}, nil
}

// filesPass walks <modulePath>/files/ and copies every regular file to
// <appPath>/<relative-path> verbatim (spec.md 4.E.c).
func (e *Engine) filesPass(modulePath, appPath string, st *state.State, opts Options) ([]FileAction, error) {
	srcRoot := filepath.Join(modulePath, "files")
	var actions []FileAction

	err := walkRegularFiles(srcRoot, func(relPath string) error {
		data, err := os.ReadFile(filepath.Join(srcRoot, relPath))
		if err != nil {
			return fmt.Errorf("reading %s: %w", relPath, err)
		}
		dest := filepath.Join(appPath, relPath)
		action, err := writeFile(dest, data, st, opts)
		if err != nil {
			return err
		}
		actions = append(actions, action)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return actions, nil
}

// templatesPass walks <modulePath>/templates/ and renders each regular
// file through the template engine with a context built from the
// resolved app's inputs, stripping the .j2 suffix from the destination
// when present (spec.md 4.E.d).
func (e *Engine) templatesPass(modulePath, appPath string, resolvedApp *module.ResolvedApp, st *state.State, opts Options) ([]FileAction, error) {
	srcRoot := filepath.Join(modulePath, "templates")
	var actions []FileAction

	vars := templateVars(resolvedApp)

	err := walkRegularFiles(srcRoot, func(relPath string) error {
		srcPath := filepath.Join(srcRoot, relPath)
		tmplText, err := os.ReadFile(srcPath)
		if err != nil {
			return fmt.Errorf("reading template %s: %w", relPath, err)
		}
		rendered, err := Render(string(tmplText), vars)
		if err != nil {
			return fmt.Errorf("rendering template %s: %w", relPath, err)
		}

		destRel := relPath
		if strings.HasSuffix(destRel, templateSuffix) {
			destRel = strings.TrimSuffix(destRel, templateSuffix)
		}
		dest := filepath.Join(appPath, destRel)
		action, err := writeFile(dest, []byte(rendered), st, opts)
		if err != nil {
			return err
		}
		actions = append(actions, action)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return actions, nil
}

// tfvarsPass synthesizes <appPath>/terraform.tfvars.json from the
// resolved app's inputs as pretty JSON (spec.md 4.E.e).
func (e *Engine) tfvarsPass(appPath string, resolvedApp *module.ResolvedApp, st *state.State, opts Options) (*FileAction, error) {
	data, err := json.MarshalIndent(resolvedApp.Inputs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling terraform.tfvars.json for app %q: %w", resolvedApp.Name, err)
	}
	dest := filepath.Join(appPath, "terraform.tfvars.json")
	action, err := writeFile(dest, data, st, opts)
	if err != nil {
		return nil, err
	}
	return &action, nil
}

// Render executes tmplText (Go text/template syntax) against vars. This
// is the template engine spec.md 9's design notes call out as "a pure
// function (text in, text out), independent of the filesystem" — its
// narrow scope (variable interpolation over a resolved-inputs map) is
// served by stdlib text/template directly; no pack library wraps Go
// templating more usefully for this shape.
func Render(tmplText string, vars map[string]any) (string, error) {
	tmpl, err := template.New("").Option("missingkey=error").Parse(tmplText)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return buf.String(), nil
}

func templateVars(resolvedApp *module.ResolvedApp) map[string]any {
	vars := make(map[string]any, len(resolvedApp.Inputs)+2)
	for k, v := range resolvedApp.Inputs {
		vars[k] = v
	}
	vars["app_name"] = resolvedApp.Name
	vars["module"] = resolvedApp.Module
	return vars
}

// walkRegularFiles walks root (if it exists) and calls fn with each
// regular file's path relative to root, in lexicographic order —
// directory walk order is implementation-defined per spec.md 4.E, but
// sorting here makes output and logs deterministic across runs.
func walkRegularFiles(root string, fn func(relPath string) error) error {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}

	var relPaths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPaths = append(relPaths, rel)
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking %s: %w", root, err)
	}

	sort.Strings(relPaths)
	for _, rel := range relPaths {
		if err := fn(rel); err != nil {
			return err
		}
	}
	return nil
}
