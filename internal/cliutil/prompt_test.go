package cliutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/weaver-dev/weaver/internal/module"
)

func TestConvert_CoercesDeclaredTypes(t *testing.T) {
	assert.Equal(t, true, convert("true", "bool"))
	assert.Equal(t, true, convert("true", "boolean"))
	assert.Equal(t, int64(42), convert("42", "int"))
	assert.Equal(t, int64(42), convert("42", "number"))
	assert.Equal(t, "not-a-number", convert("not-a-number", "int"))
	assert.Equal(t, "hello", convert("hello", "string"))
}

func TestInputPrompter_NonInteractiveFailsImmediately(t *testing.T) {
	p := NewInputPrompter(false)
	_, err := p.Prompt("myapp", "region", module.InputSpec{Type: "string"})
	assert.Error(t, err)
}

func TestCapabilityPrompter_NonInteractiveIsInteractiveReportsFalse(t *testing.T) {
	p := NewCapabilityPrompter(false)
	assert.False(t, p.IsInteractive())
}
