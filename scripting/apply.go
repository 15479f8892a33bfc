package scripting

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/x19-huhr/mybatis/explang"
	"github.com/x19-huhr/mybatis/tokenizer"
)

// apply renders node into out and reports whether it wrote anything other
// than whitespace.
func apply(node Node, ctx *DynamicContext, out *strings.Builder) (bool, error) {
	switch n := node.(type) {
	case nil:
		return false, nil
	case *StaticText:
		out.WriteString(n.Text)
		return hasContent(n.Text), nil
	case *DynamicText:
		text, err := ctx.substitute(n.Text)
		if err != nil {
			return false, err
		}

		out.WriteString(text)

		return hasContent(text), nil
	case *Mixed:
		produced := false

		for _, child := range n.Children {
			ok, err := apply(child, ctx, out)
			if err != nil {
				return false, err
			}

			produced = produced || ok
		}

		return produced, nil
	case *If:
		ok, err := ctx.eval.EvaluateBoolean(n.Test, ctx)
		if err != nil {
			return false, &RenderError{Node: fmt.Sprintf("<if test=%q>", n.Test), Err: err}
		}

		if !ok {
			return false, nil
		}

		return apply(n.Body, ctx, out)
	case *Choose:
		for _, when := range n.Whens {
			ok, err := ctx.eval.EvaluateBoolean(when.Test, ctx)
			if err != nil {
				return false, &RenderError{Node: fmt.Sprintf("<when test=%q>", when.Test), Err: err}
			}

			if ok {
				return apply(when.Body, ctx, out)
			}
		}

		return apply(n.Otherwise, ctx, out)
	case *Trim:
		return applyTrim(n, ctx, out)
	case *ForEach:
		return applyForEach(n, ctx, out)
	case *Bind:
		value, err := ctx.eval.EvaluateValue(n.Expr, ctx)
		if err != nil {
			return false, &RenderError{Node: fmt.Sprintf("<bind name=%q>", n.Name), Err: err}
		}

		ctx.Bind(n.Name, value)

		return false, nil
	default:
		panic(fmt.Sprintf("scripting: unexpected node type %T", node))
	}
}

func applyTrim(n *Trim, ctx *DynamicContext, out *strings.Builder) (bool, error) {
	var body strings.Builder
	if _, err := apply(n.Body, ctx, &body); err != nil {
		return false, err
	}

	result := n.apply(body.String())
	if result == "" {
		return false, nil
	}

	if s := out.String(); s != "" && !unicode.IsSpace(rune(s[len(s)-1])) {
		out.WriteByte(' ')
	}

	out.WriteString(result)

	return true, nil
}

// apply trims an already rendered body. Overrides are matched
// case-sensitively, first match wins, against the whitespace-trimmed body.
func (n *Trim) apply(body string) string {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return ""
	}

	for _, override := range n.PrefixOverrides {
		if strings.HasPrefix(trimmed, override) {
			trimmed = strings.TrimSpace(trimmed[len(override):])
			break
		}
	}

	for _, override := range n.SuffixOverrides {
		if strings.HasSuffix(trimmed, override) {
			trimmed = strings.TrimSpace(trimmed[:len(trimmed)-len(override)])
			break
		}
	}

	parts := make([]string, 0, 3)
	for _, part := range []string{n.Prefix, trimmed, n.Suffix} {
		if part != "" {
			parts = append(parts, part)
		}
	}

	return strings.Join(parts, " ")
}

// substitute replaces ${} placeholders with values from the scope chain.
// Unknown names are left as they were.
func (c *DynamicContext) substitute(text string) (string, error) {
	var firstErr error

	result := tokenizer.VariableScanner.Scan(text, func(content string) string {
		if firstErr != nil {
			return ""
		}

		value, found, err := c.resolveText(content)
		if err != nil {
			firstErr = err
			return ""
		}

		if !found {
			return tokenizer.VariableOpen + content + tokenizer.VariableClose
		}

		return formatValue(value)
	})

	return result, firstErr
}

func (c *DynamicContext) resolveText(content string) (any, bool, error) {
	expr := strings.TrimSpace(content)
	if expr == "" {
		return nil, false, nil
	}

	steps, err := explang.ParsePath(expr)
	if err != nil {
		value, err := c.eval.EvaluateValue(expr, c)
		if err != nil {
			return nil, false, &RenderError{Node: "${" + content + "}", Err: err}
		}

		return value, true, nil
	}

	root, ok := c.Lookup(steps[0].Identifier)
	if !ok {
		return nil, false, nil
	}

	value, err := explang.Resolve(root, steps[1:])
	if err != nil {
		return nil, false, renderErrorf("${"+content+"}", ErrExpressionEvaluation, "%v", err)
	}

	return value, true, nil
}

func formatValue(value any) string {
	if value == nil {
		return ""
	}

	return fmt.Sprint(value)
}

func hasContent(s string) bool {
	return strings.TrimSpace(s) != ""
}
