package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_ExactMatch(t *testing.T) {
	p := NewPolicy()
	granted := Grant{Exec("npm")}
	assert.True(t, p.IsGranted(Exec("npm"), granted))
	assert.False(t, p.IsGranted(Exec("git"), granted))
}

func TestPolicy_WildcardGrantsEverythingOfKind(t *testing.T) {
	p := NewPolicy()
	granted := Grant{{Kind: "exec", Pattern: "*"}}
	assert.True(t, p.IsGranted(Exec("npm"), granted))
	assert.True(t, p.IsGranted(Exec("anything"), granted))
	assert.False(t, p.IsGranted(Capability{Kind: "network", Pattern: "anything"}, granted))
}

func TestPolicy_PrefixWildcard(t *testing.T) {
	p := NewPolicy()
	granted := Grant{{Kind: "fs", Pattern: "/tmp/*"}}
	assert.True(t, p.IsGranted(Capability{Kind: "fs", Pattern: "/tmp/foo"}, granted))
	assert.False(t, p.IsGranted(Capability{Kind: "fs", Pattern: "/etc/passwd"}, granted))
}

func TestGrant_AddIsIdempotent(t *testing.T) {
	g := NewGrant()
	g.Add(Exec("npm"))
	g.Add(Exec("npm"))
	assert.Len(t, g, 1)
}

func TestCapability_String(t *testing.T) {
	assert.Equal(t, "exec:npm", Exec("npm").String())
}
