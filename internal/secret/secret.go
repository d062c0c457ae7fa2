// Package secret provides a typed wrapper whose display and debug
// representations never leak the wrapped value, plus resolution of
// secret-valued manifest inputs.
//
// Grounded on the teacher's internal/infrastructure/sensitivedata package;
// generalized to a generic Secret[T] since the spec's Secret<T> wrapper is
// not monomorphic to string the way the teacher's SecureString is.
package secret

import (
	"fmt"
	"os"
	"runtime"
)

const mask = "***"

// Secret holds a value whose String/GoString/Format never print the
// underlying value. Callers that must read it call Expose.
type Secret[T any] struct {
	value T
}

// New wraps a value as a Secret.
func New[T any](v T) Secret[T] {
	return Secret[T]{value: v}
}

// Expose returns a pointer to the wrapped value for callers that must read it.
func (s *Secret[T]) Expose() *T {
	return &s.value
}

// String implements fmt.Stringer, masking the value.
func (s Secret[T]) String() string { return mask }

// GoString implements fmt.GoStringer, masking the value in %#v output.
func (s Secret[T]) GoString() string { return mask }

// Format implements fmt.Formatter so every verb (%v, %s, %q, ...) masks.
func (s Secret[T]) Format(f fmt.State, verb rune) {
	_, _ = f.Write([]byte(mask))
}

// MarshalYAML masks the value when a Secret is accidentally serialized.
func (s Secret[T]) MarshalYAML() (any, error) { return mask, nil }

// MarshalJSON masks the value when a Secret is accidentally serialized.
func (s Secret[T]) MarshalJSON() ([]byte, error) { return []byte(`"` + mask + `"`), nil }

// SecureString holds a high-value secret (private keys, master passwords)
// that is explicitly zeroed when no longer needed, in addition to being
// garbage-collector-finalized as a backstop. Mirrors the teacher's
// SecureString exactly, including the finalizer-based best-effort cleanup.
type SecureString struct {
	value []byte
}

// NewSecureString copies s into a SecureString. The caller should zero its
// own copy of s if it came from an untrusted buffer that can be mutated.
func NewSecureString(s string) *SecureString {
	ss := &SecureString{value: []byte(s)}
	runtime.SetFinalizer(ss, func(ss *SecureString) { ss.Zero() })
	return ss
}

// String returns the secret value. Avoid logging this.
func (ss *SecureString) String() string { return string(ss.value) }

// Zero overwrites the backing memory with zeros. Call explicitly when done;
// the finalizer is a backstop, not a replacement for it.
func (ss *SecureString) Zero() {
	for i := range ss.value {
		ss.value[i] = 0
	}
}

// Resolver resolves a secret declaration's key to a value. Resolution order
// per spec.md 4.H: process environment first, then (future) plugins, with a
// test fallback so callers in non-production contexts get a deterministic
// value instead of an error.
type Resolver struct {
	// TestFallback enables the "resolved-<key>" fallback used by tests and
	// local development when a secret has no other source.
	TestFallback bool
}

// NewResolver creates a Resolver. TestFallback should only be enabled for
// non-production invocations (e.g. `weaver check` without secret access).
func NewResolver(testFallback bool) *Resolver {
	return &Resolver{TestFallback: testFallback}
}

// Resolve looks up key in the process environment, then falls back to the
// deterministic test value if enabled.
func (r *Resolver) Resolve(key string) (Secret[string], error) {
	if v, ok := os.LookupEnv(key); ok {
		return New(v), nil
	}
	if r.TestFallback {
		return New(fmt.Sprintf("resolved-%s", key)), nil
	}
	return Secret[string]{}, fmt.Errorf("secret %q: no value in environment and no plugin resolver configured", key)
}
