package secret

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecret_MasksInAllFormats(t *testing.T) {
	s := New("top-secret")

	assert.Equal(t, mask, s.String())
	assert.Equal(t, mask, fmt.Sprintf("%v", s))
	assert.Equal(t, mask, fmt.Sprintf("%s", s))
	assert.Equal(t, mask, fmt.Sprintf("%#v", s))

	y, err := s.MarshalYAML()
	require.NoError(t, err)
	assert.Equal(t, mask, y)

	j, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"***"`, string(j))
}

func TestSecret_ExposeRoundTrips(t *testing.T) {
	s := New(42)
	assert.Equal(t, 42, *s.Expose())
}

func TestSecureString_ZeroClearsMemory(t *testing.T) {
	ss := NewSecureString("hunter2")
	assert.Equal(t, "hunter2", ss.String())
	ss.Zero()
	assert.Equal(t, "\x00\x00\x00\x00\x00\x00\x00", ss.String())
}

func TestResolver_PrefersEnvironment(t *testing.T) {
	t.Setenv("WEAVER_TEST_SECRET", "from-env")
	r := NewResolver(true)

	v, err := r.Resolve("WEAVER_TEST_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "from-env", *v.Expose())
}

func TestResolver_TestFallback(t *testing.T) {
	r := NewResolver(true)
	v, err := r.Resolve("WEAVER_UNSET_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "resolved-WEAVER_UNSET_SECRET", *v.Expose())
}

func TestResolver_ErrorsWithoutFallback(t *testing.T) {
	r := NewResolver(false)
	_, err := r.Resolve("WEAVER_UNSET_SECRET_2")
	assert.Error(t, err)
}
