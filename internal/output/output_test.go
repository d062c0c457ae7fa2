package output_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaver-dev/weaver/internal/output"
)

func TestNew_UnknownFormat(t *testing.T) {
	_, err := output.New("sarif", &bytes.Buffer{}, output.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sarif")
}

func TestTableFormatter_Write(t *testing.T) {
	var buf bytes.Buffer
	f, err := output.New("table", &buf, output.Options{NoColor: true})
	require.NoError(t, err)

	err = f.Write([]string{"NAME", "STATUS"}, [][]string{
		{"web", "running"},
		{"db", "stopped"},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "web")
	assert.Contains(t, out, "stopped")
}

func TestTableFormatter_WriteValueUnsupported(t *testing.T) {
	var buf bytes.Buffer
	f, err := output.New("table", &buf, output.Options{NoColor: true})
	require.NoError(t, err)

	err = f.WriteValue(map[string]string{"a": "b"})
	require.Error(t, err)
}

func TestJSONFormatter_Write(t *testing.T) {
	var buf bytes.Buffer
	f, err := output.New("json", &buf, output.Options{})
	require.NoError(t, err)

	require.NoError(t, f.Write([]string{"name"}, [][]string{{"web"}}))
	assert.True(t, strings.Contains(buf.String(), `"name": "web"`))
}

func TestJSONFormatter_WriteValue(t *testing.T) {
	var buf bytes.Buffer
	f, err := output.New("json", &buf, output.Options{})
	require.NoError(t, err)

	require.NoError(t, f.WriteValue(struct {
		Name string `json:"name"`
	}{Name: "web"}))
	assert.Contains(t, buf.String(), `"name": "web"`)
}

func TestYAMLFormatter_Write(t *testing.T) {
	var buf bytes.Buffer
	f, err := output.New("yaml", &buf, output.Options{})
	require.NoError(t, err)

	require.NoError(t, f.Write([]string{"name"}, [][]string{{"web"}}))
	assert.Contains(t, buf.String(), "name: web")
}

func TestDefaultFormat_IsTable(t *testing.T) {
	var buf bytes.Buffer
	f, err := output.New("", &buf, output.Options{NoColor: true})
	require.NoError(t, err)
	require.NoError(t, f.Write([]string{"A"}, [][]string{{"b"}}))
	assert.Contains(t, buf.String(), "A")
}
