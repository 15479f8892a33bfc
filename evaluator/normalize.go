package evaluator

import (
	"strings"
	"unicode"
)

// wordOperators maps the word forms accepted in test attributes to CEL operators.
var wordOperators = map[string]string{
	"and": "&&",
	"or":  "||",
	"not": "!",
	"eq":  "==",
	"neq": "!=",
	"gt":  ">",
	"gte": ">=",
	"lt":  "<",
	"lte": "<=",
}

// NormalizeExpression rewrites word operators outside string literals into
// their CEL symbols, so "a != null and not b" becomes "a != null && ! b".
// Words directly after a '.' are member names and stay untouched.
func NormalizeExpression(expr string) string {
	var b strings.Builder

	b.Grow(len(expr))

	runes := []rune(expr)

	var quote rune

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if quote != 0 {
			b.WriteRune(r)

			switch r {
			case '\\':
				if i+1 < len(runes) {
					i++
					b.WriteRune(runes[i])
				}
			case quote:
				quote = 0
			}

			continue
		}

		if r == '\'' || r == '"' {
			quote = r
			b.WriteRune(r)

			continue
		}

		if !isWordStart(r) {
			b.WriteRune(r)
			continue
		}

		start := i
		for i+1 < len(runes) && isWordPart(runes[i+1]) {
			i++
		}

		word := string(runes[start : i+1])
		if op, ok := wordOperators[word]; ok && !afterDot(runes, start) {
			b.WriteString(op)
		} else {
			b.WriteString(word)
		}
	}

	return b.String()
}

func afterDot(runes []rune, pos int) bool {
	for i := pos - 1; i >= 0; i-- {
		if unicode.IsSpace(runes[i]) {
			continue
		}

		return runes[i] == '.'
	}

	return false
}

func isWordStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isWordPart(r rune) bool {
	return isWordStart(r) || unicode.IsDigit(r)
}
