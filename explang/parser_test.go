package explang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Step
	}{
		{
			name:  "single identifier",
			input: "user",
			expected: []Step{
				{Kind: StepIdentifier, Identifier: "user", Pos: Position{0, 4}},
			},
		},
		{
			name:  "member and index",
			input: "users[0].profile",
			expected: []Step{
				{Kind: StepIdentifier, Identifier: "users", Pos: Position{0, 5}},
				{Kind: StepIndex, Index: 0, Pos: Position{5, 3}},
				{Kind: StepMember, Property: "profile", Pos: Position{8, 8}},
			},
		},
		{
			name:  "safe member and index",
			input: "order?.items?[10]",
			expected: []Step{
				{Kind: StepIdentifier, Identifier: "order", Pos: Position{0, 5}},
				{Kind: StepMember, Property: "items", Safe: true, Pos: Position{5, 7}},
				{Kind: StepIndex, Index: 10, Safe: true, Pos: Position{12, 5}},
			},
		},
		{
			name:  "quoted key",
			input: "attrs['first name']",
			expected: []Step{
				{Kind: StepIdentifier, Identifier: "attrs", Pos: Position{0, 5}},
				{Kind: StepKey, Key: "first name", Pos: Position{5, 14}},
			},
		},
		{
			name:  "bare key with spaces",
			input: " attrs[ color ]",
			expected: []Step{
				{Kind: StepIdentifier, Identifier: "attrs", Pos: Position{1, 5}},
				{Kind: StepKey, Key: "color", Pos: Position{6, 9}},
			},
		},
		{
			name:  "unicode identifier",
			input: "名前.値",
			expected: []Step{
				{Kind: StepIdentifier, Identifier: "名前", Pos: Position{0, 2}},
				{Kind: StepMember, Property: "値", Pos: Position{2, 2}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := ParsePath(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, actual)
		})
	}
}

func TestParsePathErrors(t *testing.T) {
	for _, input := range []string{"", "1foo", "users[0", "attrs['x]", "user?", "a + b", "a.", "a[]", "a.1"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParsePath(input)
			assert.ErrorIs(t, err, ErrInvalidExpression)
		})
	}
}

func TestFormatSteps(t *testing.T) {
	for _, expr := range []string{"user", "users[0].name", "a?.b?[2]"} {
		steps, err := ParsePath(expr)
		require.NoError(t, err, expr)
		assert.Equal(t, expr, FormatSteps(steps))
	}

	steps, err := ParsePath("m[k]")
	require.NoError(t, err)
	assert.Equal(t, `m["k"]`, FormatSteps(steps))
}
