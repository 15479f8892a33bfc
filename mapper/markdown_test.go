package mapper

import (
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestParseMarkdown(t *testing.T) {
	input := "---\n" +
		"namespace: users\n" +
		"parameterType: User\n" +
		"---\n" +
		"\n" +
		"# Find users by name\n" +
		"\n" +
		"Looks users up by an optional name.\n" +
		"\n" +
		"## SQL\n" +
		"\n" +
		"```xml\n" +
		"<script>\n" +
		"select * from users\n" +
		"<where><if test=\"name != null\">name = #{name}</if></where>\n" +
		"</script>\n" +
		"```\n" +
		"\n" +
		"## Parameters\n" +
		"\n" +
		"```yaml\n" +
		"name: alice\n" +
		"```\n" +
		"\n" +
		"## Test Cases\n" +
		"\n" +
		"### without name\n" +
		"\n" +
		"```yaml\n" +
		"params: {}\n" +
		"sql: select * from users\n" +
		"```\n" +
		"\n" +
		"### with name\n" +
		"\n" +
		"```yaml\n" +
		"params:\n" +
		"  name: bob\n" +
		"sql: select * from users WHERE name = ?\n" +
		"args: [bob]\n" +
		"```\n"

	doc, err := ParseMarkdown(strings.NewReader(input), "find.md")
	assert.NoError(t, err)
	assert.Equal(t, 1, len(doc.Statements))

	stmt := doc.Statements[0]
	assert.Equal(t, "users.findUsersByName", stmt.FullID())
	assert.Equal(t, KindSelect, stmt.Kind)
	assert.Equal(t, "User", stmt.ParameterType)
	assert.Equal(t, "Find users by name", stmt.Title)
	assert.Equal(t, "Looks users up by an optional name.", stmt.Description)
	assert.Equal(t, "script", stmt.Element.Name)
	assert.Equal(t, "where", stmt.Element.ChildElements()[0].Name)
	assert.Equal(t, map[string]any{"name": "alice"}, stmt.SampleParams)

	assert.Equal(t, 2, len(stmt.TestCases))
	assert.Equal(t, "without name", stmt.TestCases[0].Name)
	assert.Equal(t, "select * from users", stmt.TestCases[0].ExpectedSQL)
	assert.Equal(t, "with name", stmt.TestCases[1].Name)
	assert.Equal(t, map[string]any{"name": "bob"}, stmt.TestCases[1].Params)
	assert.Equal(t, []any{"bob"}, stmt.TestCases[1].ExpectedArgs)
}

func TestParseMarkdownPlainSQL(t *testing.T) {
	input := `---
id: removeUser
---

# Remove a user

## Description

Deletes one row.

## SQL

` + "```sql\ndelete from users where id = #{id}\n```\n"

	doc, err := ParseMarkdown(strings.NewReader(input), "remove.md")
	assert.NoError(t, err)

	stmt := doc.Statements[0]
	assert.Equal(t, "removeUser", stmt.FullID())
	assert.Equal(t, KindDelete, stmt.Kind)
	assert.Equal(t, "Deletes one row.", stmt.Description)
	assert.Equal(t, "delete from users where id = #{id}", stmt.Element.InnerText())
}

func TestParseMarkdownErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected error
	}{
		{
			name:     "no sql section",
			input:    "# Title\n\nSome text\n",
			expected: ErrMissingSQLSection,
		},
		{
			name:     "sql section without code",
			input:    "# Title\n\n## SQL\n\nselect 1\n",
			expected: ErrMissingSQLSection,
		},
		{
			name:     "unterminated front matter",
			input:    "---\nid: x\n\n# Title\n",
			expected: ErrInvalidFrontMatter,
		},
		{
			name:     "unknown kind",
			input:    "---\nkind: merge\n---\n# Title\n\n## SQL\n\n```sql\nselect 1\n```\n",
			expected: ErrInvalidFrontMatter,
		},
		{
			name:     "no id",
			input:    "## SQL\n\n```sql\nselect 1\n```\n",
			expected: ErrMissingAttribute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMarkdown(strings.NewReader(tt.input), "test.md")
			assert.IsError(t, err, tt.expected)
		})
	}
}

func TestIDFromTitle(t *testing.T) {
	tests := []struct {
		title    string
		expected string
	}{
		{title: "Find user by ID", expected: "findUserById"},
		{title: "list-active users", expected: "listActiveUsers"},
		{title: "  ", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.expected, idFromTitle(tt.title))
		})
	}
}
