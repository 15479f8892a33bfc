package tokenizer

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestParseParameterExpression(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected ParameterExpression
	}{
		{
			name:     "property",
			input:    "id",
			expected: ParameterExpression{Property: "id"},
		},
		{
			name:     "nested property with spaces",
			input:    "  user.address.city ",
			expected: ParameterExpression{Property: "user.address.city"},
		},
		{
			name:     "old style type",
			input:    "id:INTEGER",
			expected: ParameterExpression{Property: "id", JdbcType: "INTEGER"},
		},
		{
			name:  "attributes",
			input: "price, jdbcType=NUMERIC, numericScale=2, mode=inout",
			expected: ParameterExpression{
				Property:     "price",
				JdbcType:     "NUMERIC",
				NumericScale: "2",
				Mode:         ModeInOut,
			},
		},
		{
			name:  "go type and handler",
			input: "created, goType=time.Time, typeHandler=TimeHandler",
			expected: ParameterExpression{
				Property:    "created",
				GoType:      "time.Time",
				TypeHandler: "TimeHandler",
			},
		},
		{
			name:  "old style type with attributes",
			input: "id:VARCHAR, javaType=string",
			expected: ParameterExpression{
				Property: "id",
				JdbcType: "VARCHAR",
				GoType:   "string",
			},
		},
		{
			name:  "unknown attribute",
			input: "id, foo=bar",
			expected: ParameterExpression{
				Property:   "id",
				Attributes: map[string]string{"foo": "bar"},
			},
		},
		{
			name:     "expression",
			input:    "(size(items) + 1)",
			expected: ParameterExpression{Expression: "size(items) + 1"},
		},
		{
			name:     "expression with type",
			input:    "(a * 2), jdbcType=INTEGER",
			expected: ParameterExpression{Expression: "a * 2", JdbcType: "INTEGER"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := ParseParameterExpression(tt.input)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, actual)
		})
	}
}

func TestParseParameterExpressionErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: "   "},
		{name: "missing property", input: ", jdbcType=INTEGER"},
		{name: "attribute without key", input: "id, =INTEGER"},
		{name: "attribute without value separator", input: "id, jdbcType"},
		{name: "unterminated expression", input: "(a + b"},
		{name: "empty expression", input: "()"},
		{name: "empty old style type", input: "id:"},
		{name: "unknown mode", input: "id, mode=SIDEWAYS"},
		{name: "garbage after expression", input: "(a) b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseParameterExpression(tt.input)
			assert.IsError(t, err, ErrInvalidParameterExpression)
		})
	}
}

func TestParameterExpressionName(t *testing.T) {
	p, err := ParseParameterExpression("user.id")
	assert.NoError(t, err)
	assert.Equal(t, "user.id", p.Name())

	p, err = ParseParameterExpression("(a + 1)")
	assert.NoError(t, err)
	assert.Equal(t, "a + 1", p.Name())
}
