package tokenizer

import (
	"fmt"
	"strings"
)

// ParameterMode is the direction of a bind parameter.
type ParameterMode string

const (
	ModeIn    ParameterMode = "IN"
	ModeOut   ParameterMode = "OUT"
	ModeInOut ParameterMode = "INOUT"
)

// ParameterExpression is the parsed content of a #{} placeholder such as
// "user.name, jdbcType=VARCHAR" or "id:INTEGER".
type ParameterExpression struct {
	// Property is the property path, empty when Expression is set.
	Property string
	// Expression is a parenthesized expression evaluated at bind time.
	Expression   string
	JdbcType     string
	GoType       string
	Mode         ParameterMode
	NumericScale string
	TypeHandler  string
	Attributes   map[string]string
}

// Name returns the property path or the expression text.
func (p ParameterExpression) Name() string {
	if p.Expression != "" {
		return p.Expression
	}

	return p.Property
}

// ParseParameterExpression parses the inside of a #{} placeholder.
func ParseParameterExpression(content string) (ParameterExpression, error) {
	var result ParameterExpression

	rest := strings.TrimSpace(content)
	if rest == "" {
		return result, fmt.Errorf("%w: empty placeholder", ErrInvalidParameterExpression)
	}

	if rest[0] == '(' {
		end := matchParen(rest)
		if end < 0 {
			return result, fmt.Errorf("%w: unterminated '(' in %q", ErrInvalidParameterExpression, content)
		}

		result.Expression = strings.TrimSpace(rest[1:end])
		if result.Expression == "" {
			return result, fmt.Errorf("%w: empty expression in %q", ErrInvalidParameterExpression, content)
		}

		rest = strings.TrimSpace(rest[end+1:])
	} else {
		end := strings.IndexAny(rest, ",:")
		if end < 0 {
			end = len(rest)
		}

		result.Property = strings.TrimSpace(rest[:end])
		if result.Property == "" {
			return result, fmt.Errorf("%w: missing property in %q", ErrInvalidParameterExpression, content)
		}

		rest = rest[end:]
	}

	if strings.HasPrefix(rest, ":") {
		end := strings.IndexByte(rest, ',')
		if end < 0 {
			end = len(rest)
		}

		result.JdbcType = strings.TrimSpace(rest[1:end])
		if result.JdbcType == "" {
			return result, fmt.Errorf("%w: missing type after ':' in %q", ErrInvalidParameterExpression, content)
		}

		rest = rest[end:]
	}

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return result, nil
	}

	if rest[0] != ',' {
		return result, fmt.Errorf("%w: unexpected %q in %q", ErrInvalidParameterExpression, rest, content)
	}

	for _, pair := range strings.Split(rest[1:], ",") {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if !ok || key == "" {
			return result, fmt.Errorf("%w: attribute %q must be key=value", ErrInvalidParameterExpression, strings.TrimSpace(pair))
		}

		if err := result.setAttribute(key, value); err != nil {
			return result, err
		}
	}

	return result, nil
}

func (p *ParameterExpression) setAttribute(key, value string) error {
	switch key {
	case "jdbcType":
		p.JdbcType = value
	case "javaType", "goType":
		p.GoType = value
	case "mode":
		mode := ParameterMode(strings.ToUpper(value))
		switch mode {
		case ModeIn, ModeOut, ModeInOut:
			p.Mode = mode
		default:
			return fmt.Errorf("%w: unknown mode %q", ErrInvalidParameterExpression, value)
		}
	case "numericScale":
		p.NumericScale = value
	case "typeHandler":
		p.TypeHandler = value
	default:
		if p.Attributes == nil {
			p.Attributes = make(map[string]string)
		}

		p.Attributes[key] = value
	}

	return nil
}

// matchParen returns the index of the parenthesis closing s[0], or -1.
func matchParen(s string) int {
	depth := 0

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}

	return -1
}
