package capability

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedPrompter struct {
	interactive bool
	allow       bool
	always      bool
}

func (p *scriptedPrompter) IsInteractive() bool { return p.interactive }
func (p *scriptedPrompter) PromptForCapability(c Capability, info Info) (bool, bool, error) {
	return p.allow, p.always, nil
}

func TestGatekeeper_TrustAllBypassesPrompt(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "capabilities.yaml"))
	prompter := &scriptedPrompter{interactive: false}
	g := NewGatekeeper(store, prompter, "standard")

	granted, err := g.Grant(Grant{Exec("npm")}, nil, true)
	require.NoError(t, err)
	assert.True(t, granted.Contains(Exec("npm")))
}

func TestGatekeeper_NonInteractiveWithMissingCapabilityErrors(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "capabilities.yaml"))
	prompter := &scriptedPrompter{interactive: false}
	g := NewGatekeeper(store, prompter, "standard")

	_, err := g.Grant(Grant{Exec("npm")}, nil, false)
	assert.Error(t, err)
}

func TestGatekeeper_InteractiveGrantPersistsOnAlways(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capabilities.yaml")
	store := NewFileStore(path)
	prompter := &scriptedPrompter{interactive: true, allow: true, always: true}
	g := NewGatekeeper(store, prompter, "standard")

	granted, err := g.Grant(Grant{Exec("npm")}, nil, false)
	require.NoError(t, err)
	assert.True(t, granted.Contains(Exec("npm")))

	reloaded, err := store.Load()
	require.NoError(t, err)
	assert.True(t, reloaded.Contains(Exec("npm")))
}

func TestGatekeeper_InteractiveDenyErrors(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "capabilities.yaml"))
	prompter := &scriptedPrompter{interactive: true, allow: false}
	g := NewGatekeeper(store, prompter, "standard")

	_, err := g.Grant(Grant{Exec("npm")}, nil, false)
	assert.Error(t, err)
}

func TestGatekeeper_StrictDeniesBroadCapabilityWithoutPrompting(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "capabilities.yaml"))
	prompter := &scriptedPrompter{interactive: true, allow: true, always: false}
	g := NewGatekeeper(store, prompter, "strict")

	info := map[string]Info{Exec("npm").String(): {IsBroad: true}}
	_, err := g.Grant(Grant{Exec("npm")}, info, false)
	assert.Error(t, err)
}

func TestGatekeeper_PermissiveAutoGrantsBroadCapability(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "capabilities.yaml"))
	prompter := &scriptedPrompter{interactive: false}
	g := NewGatekeeper(store, prompter, "permissive")

	info := map[string]Info{Exec("npm").String(): {IsBroad: true}}
	granted, err := g.Grant(Grant{Exec("npm")}, info, false)
	require.NoError(t, err)
	assert.True(t, granted.Contains(Exec("npm")))
}

func TestFileStore_LoadMissingFileYieldsEmptyGrant(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing.yaml"))
	g, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, g)
}
