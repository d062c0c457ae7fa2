package module

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaver-dev/weaver/internal/secret"
)

type scriptedPrompter struct {
	values map[string]any
	calls  int
}

func (p *scriptedPrompter) Prompt(appName, input string, spec InputSpec) (any, error) {
	p.calls++
	if v, ok := p.values[input]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("scriptedPrompter: no value for %q", input)
}

func TestInstantiate_ExplicitBeatsAnswerBeatsDefault(t *testing.T) {
	manifest := &Manifest{Inputs: map[string]InputSpec{
		"explicit": {Type: "string", Default: "default-value"},
		"answered": {Type: "string", Default: "default-value"},
		"defaulty": {Type: "string", Default: "default-value"},
	}}
	answers := &Answers{Apps: map[string]map[string]any{
		"app": {"answered": "from-answer", "explicit": "should-not-win"},
	}}
	explicit := map[string]any{"explicit": "from-explicit"}

	resolved, err := Instantiate("app", "mod", "/path", explicit, manifest, answers, nil)
	require.NoError(t, err)

	assert.Equal(t, "from-explicit", resolved.Inputs["explicit"])
	assert.Equal(t, "from-answer", resolved.Inputs["answered"])
	assert.Equal(t, "default-value", resolved.Inputs["defaulty"])
}

func TestInstantiate_PromptsWhenNothingElseResolves(t *testing.T) {
	manifest := &Manifest{Inputs: map[string]InputSpec{
		"region": {Type: "string", Required: true},
	}}
	prompter := &scriptedPrompter{values: map[string]any{"region": "us-east-1"}}

	resolved, err := Instantiate("app", "mod", "/path", nil, manifest, &Answers{Apps: map[string]map[string]any{}}, prompter)
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", resolved.Inputs["region"])
	assert.Equal(t, 1, prompter.calls)
}

func TestInstantiate_RequiredInputWithNoSourceErrors(t *testing.T) {
	manifest := &Manifest{Inputs: map[string]InputSpec{
		"region": {Type: "string", Required: true},
	}}

	_, err := Instantiate("app", "mod", "/path", nil, manifest, nil, nil)
	assert.Error(t, err)
}

func TestInstantiate_OptionalInputWithNoSourceIsOmitted(t *testing.T) {
	manifest := &Manifest{Inputs: map[string]InputSpec{
		"nickname": {Type: "string"},
	}}

	resolved, err := Instantiate("app", "mod", "/path", nil, manifest, nil, nil)
	require.NoError(t, err)
	_, ok := resolved.Inputs["nickname"]
	assert.False(t, ok)
}

func TestInstantiate_SensitiveInputIsWrapped(t *testing.T) {
	manifest := &Manifest{Inputs: map[string]InputSpec{
		"password": {Type: "string", Sensitive: true},
	}}
	explicit := map[string]any{"password": "hunter2"}

	resolved, err := Instantiate("app", "mod", "/path", explicit, manifest, nil, nil)
	require.NoError(t, err)

	s, ok := resolved.Inputs["password"].(secret.Secret[string])
	require.True(t, ok)
	assert.Equal(t, "hunter2", *s.Expose())
	assert.Equal(t, "***", fmt.Sprintf("%v", s))
}
