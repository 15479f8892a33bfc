package tokenizer

import (
	"strings"
	"unicode"
)

// ShrinkWhitespace collapses whitespace runs outside quoted literals into a
// single space and trims both ends.
func ShrinkWhitespace(sql string) string {
	var builder strings.Builder

	builder.Grow(len(sql))

	var quote rune

	pendingSpace := false

	for _, r := range sql {
		if quote != 0 {
			builder.WriteRune(r)

			if r == quote {
				quote = 0
			}

			continue
		}

		if unicode.IsSpace(r) {
			pendingSpace = builder.Len() > 0
			continue
		}

		if pendingSpace {
			builder.WriteByte(' ')

			pendingSpace = false
		}

		switch r {
		case '\'', '"', '`':
			quote = r
		}

		builder.WriteRune(r)
	}

	return builder.String()
}
