package evaluator

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestNormalizeExpression(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "symbols untouched", input: "a != null && b", expected: "a != null && b"},
		{name: "and or", input: "a != null and b or c", expected: "a != null && b || c"},
		{name: "not", input: "not active", expected: "! active"},
		{name: "comparison words", input: "a gt 1 and b lte 2", expected: "a > 1 && b <= 2"},
		{name: "inside single quotes", input: "name == 'cats and dogs'", expected: "name == 'cats and dogs'"},
		{name: "inside double quotes", input: `name == "a or b" or x`, expected: `name == "a or b" || x`},
		{name: "escaped quote", input: `s == 'it\'s and' and t`, expected: `s == 'it\'s and' && t`},
		{name: "member named like operator", input: "flags.and", expected: "flags.and"},
		{name: "part of identifier", input: "android or order", expected: "android || order"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeExpression(tt.input))
		})
	}
}
