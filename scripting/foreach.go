package scripting

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/x19-huhr/mybatis/evaluator"
	"github.com/x19-huhr/mybatis/tokenizer"
)

// itemPrefix starts the per-iteration names that #{item} references are
// rewritten to, e.g. __frch_item_0.
const itemPrefix = "__frch_"

func itemizeName(name string, n int) string {
	return itemPrefix + name + "_" + strconv.Itoa(n)
}

func applyForEach(n *ForEach, ctx *DynamicContext, out *strings.Builder) (bool, error) {
	node := fmt.Sprintf("<foreach collection=%q>", n.Collection)

	entries, err := ctx.eval.EvaluateIterable(n.Collection, ctx)

	switch {
	case errors.Is(err, evaluator.ErrNilCollection):
		if n.Nullable {
			return false, nil
		}

		return false, renderErrorf(node, ErrNotIterable, "collection %q is nil or missing", n.Collection)
	case errors.Is(err, ErrNotIterable):
		return false, renderErrorf(node, err, "collection %q", n.Collection)
	case err != nil:
		return false, &RenderError{Node: node, Err: err}
	}

	if len(entries) == 0 {
		return false, nil
	}

	parts := make([]string, 0, len(entries))

	for _, entry := range entries {
		unique := ctx.nextUnique()

		scope := map[string]any{n.Item: entry.Value}
		if n.Index != "" {
			scope[n.Index] = entry.Key
		}

		var body strings.Builder

		ctx.pushScope(scope)
		_, err := apply(n.Body, ctx, &body)
		ctx.popScope()

		if err != nil {
			return false, err
		}

		rendered := itemizeParameters(body.String(), ctx.itemizeScope(scope, n.Item, n.Index, unique))
		if !hasContent(rendered) {
			continue
		}

		parts = append(parts, rendered)
	}

	out.WriteString(n.Open)
	out.WriteString(strings.Join(parts, n.Separator))
	out.WriteString(n.Close)

	return len(parts) > 0 || hasContent(n.Open+n.Close), nil
}

// itemizeScope binds every name of an iteration scope under its unique
// name and returns the renames: item first, then index, then names set by
// <bind> inside the body in sorted order.
func (c *DynamicContext) itemizeScope(scope map[string]any, item, index string, n int) map[string]string {
	names := []string{item}
	if index != "" {
		names = append(names, index)
	}

	var bound []string

	for name := range scope {
		if name != item && name != index {
			bound = append(bound, name)
		}
	}

	slices.Sort(bound)

	renames := make(map[string]string, len(scope))

	for _, name := range append(names, bound...) {
		renames[name] = itemizeName(name, n)
		c.addBinding(renames[name], scope[name])
	}

	return renames
}

// itemizeParameters rewrites the root of #{} references found in renames.
// Escaped #{ stays escaped.
func itemizeParameters(text string, renames map[string]string) string {
	if !strings.Contains(text, tokenizer.ParamOpen) {
		return text
	}

	var b strings.Builder

	for seg := range tokenizer.ParamScanner.Segments(text) {
		switch seg.Kind {
		case tokenizer.SegmentToken:
			b.WriteString(tokenizer.ParamOpen)
			b.WriteString(replaceRoot(seg.Text, renames))
			b.WriteString(tokenizer.ParamClose)
		case tokenizer.SegmentEscaped:
			b.WriteByte('\\')
			b.WriteString(seg.Text)
		default:
			b.WriteString(seg.Text)
		}
	}

	return b.String()
}

// replaceRoot replaces the root name of the property path at the start of
// content when renames holds it.
func replaceRoot(content string, renames map[string]string) string {
	trimmed := strings.TrimLeft(content, " \t\r\n")

	end := strings.IndexAny(trimmed, ".,:[? \t\r\n")
	if end < 0 {
		end = len(trimmed)
	}

	replacement, ok := renames[trimmed[:end]]
	if !ok {
		return content
	}

	return replacement + trimmed[end:]
}
