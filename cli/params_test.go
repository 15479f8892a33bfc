package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestParseParamValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected any
	}{
		{name: "integer", input: "42", expected: int64(42)},
		{name: "negative", input: "-7", expected: int64(-7)},
		{name: "float", input: "1.5", expected: 1.5},
		{name: "true", input: "true", expected: true},
		{name: "false", input: "false", expected: false},
		{name: "null", input: "null", expected: nil},
		{name: "string", input: "alice", expected: "alice"},
		{name: "infinity stays string", input: "Inf", expected: "Inf"},
		{name: "array", input: `["a", "b"]`, expected: []any{"a", "b"}},
		{name: "object", input: `{"name": "bob"}`, expected: map[string]any{"name": "bob"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := parseParamValue(tt.input)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, actual)
		})
	}
}

func TestLoadParameters(t *testing.T) {
	dir := t.TempDir()

	yamlFile := filepath.Join(dir, "params.yaml")
	assert.NoError(t, os.WriteFile(yamlFile, []byte("name: alice\nids: [1, 2]\n"), 0o644))

	jsonFile := filepath.Join(dir, "params.json")
	assert.NoError(t, os.WriteFile(jsonFile, []byte(`{"name": "bob"}`), 0o644))

	t.Run("yaml with override", func(t *testing.T) {
		params, err := loadParameters(yamlFile, []string{"name=carol", "active=true"})
		assert.NoError(t, err)
		assert.Equal(t, "carol", params["name"])
		assert.Equal(t, true, params["active"])
		assert.Equal(t, 2, len(params["ids"].([]any)))
	})

	t.Run("json", func(t *testing.T) {
		params, err := loadParameters(jsonFile, nil)
		assert.NoError(t, err)
		assert.Equal(t, map[string]any{"name": "bob"}, params)
	})

	t.Run("no file", func(t *testing.T) {
		params, err := loadParameters("", []string{"a=1"})
		assert.NoError(t, err)
		assert.Equal(t, map[string]any{"a": int64(1)}, params)
	})

	t.Run("value with equals sign", func(t *testing.T) {
		params, err := loadParameters("", []string{"expr=a=b"})
		assert.NoError(t, err)
		assert.Equal(t, "a=b", params["expr"])
	})

	t.Run("errors", func(t *testing.T) {
		_, err := loadParameters("", []string{"novalue"})
		assert.IsError(t, err, ErrInvalidParams)

		_, err = loadParameters(filepath.Join(dir, "missing.yaml"), nil)
		assert.IsError(t, err, ErrParametersFileNotFound)

		txt := filepath.Join(dir, "params.txt")
		assert.NoError(t, os.WriteFile(txt, []byte("a"), 0o644))

		_, err = loadParameters(txt, nil)
		assert.IsError(t, err, ErrUnsupportedParamsFormat)
	})
}
