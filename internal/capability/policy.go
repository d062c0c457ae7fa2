package capability

import "strings"

// Policy decides whether a requested capability is covered by a set of
// granted capabilities.
type Policy struct{}

// NewPolicy returns a ready-to-use Policy.
func NewPolicy() *Policy { return &Policy{} }

// IsGranted reports whether request is covered by any capability in granted.
func (p *Policy) IsGranted(request Capability, granted Grant) bool {
	for _, grant := range granted {
		if grant.Kind == request.Kind && matchPattern(request.Pattern, grant.Pattern) {
			return true
		}
	}
	return false
}

// matchPattern reports whether a granted pattern covers a requested one.
// "*" grants everything of that kind; a trailing "*" grants any pattern
// sharing its prefix; otherwise the patterns must match exactly.
func matchPattern(request, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(request, strings.TrimSuffix(pattern, "*"))
	}
	return request == pattern
}
