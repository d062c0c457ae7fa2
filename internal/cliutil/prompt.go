package cliutil

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"

	"github.com/weaver-dev/weaver/internal/capability"
	"github.com/weaver-dev/weaver/internal/module"
)

// IsInteractiveStdin reports whether stdin is a terminal, the same
// isatty check internal/output uses for stdout color detection.
func IsInteractiveStdin() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}

// InputPrompter implements module.Prompter with a huh-backed terminal
// prompt, grounded on the teacher's cmd/reglet/init_aws.go huh.NewInput
// idiom.
type InputPrompter struct {
	interactive bool
}

// NewInputPrompter returns an InputPrompter. When interactive is false
// every Prompt call fails immediately, so a non-interactive apply
// reports MissingRequiredInput instead of hanging on stdin.
func NewInputPrompter(interactive bool) *InputPrompter {
	return &InputPrompter{interactive: interactive}
}

func (p *InputPrompter) Prompt(appName, input string, spec module.InputSpec) (any, error) {
	if !p.interactive {
		return nil, fmt.Errorf("input %q for app %q has no value and prompting is disabled (running non-interactively)", input, appName)
	}

	title := fmt.Sprintf("%s: %s", appName, input)
	if spec.Description != "" {
		title = fmt.Sprintf("%s (%s)", title, spec.Description)
	}

	var raw string
	if err := huh.NewInput().Title(title).Value(&raw).Run(); err != nil {
		return nil, fmt.Errorf("prompting for input %q: %w", input, err)
	}

	return convert(raw, spec.Type), nil
}

// convert coerces a raw string answer to the manifest-declared input
// type, falling back to the string itself for unparseable or unknown
// types rather than failing the whole apply over one input.
func convert(raw, typ string) any {
	switch strings.ToLower(typ) {
	case "bool", "boolean":
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	case "int", "integer", "number":
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return i
		}
	}
	return raw
}

// CapabilityPrompter implements capability.Prompter with a huh-backed
// confirm dialog plus an "always allow" follow-up select.
type CapabilityPrompter struct {
	interactive bool
}

// NewCapabilityPrompter returns a CapabilityPrompter.
func NewCapabilityPrompter(interactive bool) *CapabilityPrompter {
	return &CapabilityPrompter{interactive: interactive}
}

func (p *CapabilityPrompter) IsInteractive() bool { return p.interactive }

func (p *CapabilityPrompter) PromptForCapability(c capability.Capability, info capability.Info) (granted bool, always bool, err error) {
	var allow bool
	confirmTitle := fmt.Sprintf("Grant capability %s?\n%s", c.String(), c.RiskDescription())
	if info.IsBroad {
		confirmTitle += "\n(this is a broad capability)"
	}
	if err := huh.NewConfirm().
		Title(confirmTitle).
		Affirmative("Allow").
		Negative("Deny").
		Value(&allow).
		Run(); err != nil {
		return false, false, fmt.Errorf("prompting for capability %s: %w", c.String(), err)
	}
	if !allow {
		return false, false, nil
	}

	var scope string
	if err := huh.NewSelect[string]().
		Title("Remember this decision?").
		Options(
			huh.NewOption("Just this once", "once"),
			huh.NewOption("Always allow this capability", "always"),
		).
		Value(&scope).
		Run(); err != nil {
		return true, false, fmt.Errorf("prompting for capability persistence: %w", err)
	}

	return true, scope == "always", nil
}
