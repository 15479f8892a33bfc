package scripting

import (
	"errors"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/x19-huhr/mybatis/evaluator"
)

func text(s string) *Mixed {
	return &Mixed{Children: []Node{&StaticText{Text: s}}}
}

func renderNode(t *testing.T, node Node, param any) (string, *DynamicContext) {
	t.Helper()

	ctx := NewDynamicContext(param, "", defaultEvaluator())

	var out strings.Builder

	_, err := apply(node, ctx, &out)
	assert.NoError(t, err)

	return out.String(), ctx
}

func TestWhere(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{name: "leading AND", body: " AND a=1 AND b=2", expected: "WHERE a=1 AND b=2"},
		{name: "leading OR", body: "OR a=1", expected: "WHERE a=1"},
		{name: "lower case and", body: "\n  and a=1", expected: "WHERE a=1"},
		{name: "AND with newline", body: "AND\na=1", expected: "WHERE a=1"},
		{name: "no override", body: "a=1", expected: "WHERE a=1"},
		{name: "empty", body: "", expected: ""},
		{name: "whitespace only", body: " \n\t", expected: ""},
		{name: "identifier starting with OR", body: "ORDER_ID = 1", expected: "WHERE ORDER_ID = 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, _ := renderNode(t, NewWhere(text(tt.body)), nil)
			assert.Equal(t, tt.expected, actual)
		})
	}
}

func TestSet(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{name: "trailing comma", body: "a=1, b=2,", expected: "SET a=1, b=2"},
		{name: "leading comma", body: ", a=1", expected: "SET a=1"},
		{name: "empty", body: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, _ := renderNode(t, NewSet(text(tt.body)), nil)
			assert.Equal(t, tt.expected, actual)
		})
	}
}

func TestTrim(t *testing.T) {
	tests := []struct {
		name     string
		node     *Trim
		expected string
	}{
		{
			name:     "prefix and suffix",
			node:     &Trim{Body: text(" a, b, "), Prefix: "(", Suffix: ")", SuffixOverrides: []string{","}},
			expected: "( a, b )",
		},
		{
			name:     "first matching override wins",
			node:     &Trim{Body: text("AND OR x"), PrefixOverrides: []string{"AND ", "OR "}},
			expected: "OR x",
		},
		{
			name:     "case sensitive",
			node:     &Trim{Body: text("And x"), Prefix: "WHERE", PrefixOverrides: []string{"AND "}},
			expected: "WHERE And x",
		},
		{
			name:     "empty body suppresses prefix",
			node:     &Trim{Body: text("   "), Prefix: "WHERE", Suffix: ";"},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, _ := renderNode(t, tt.node, nil)
			assert.Equal(t, tt.expected, actual)
		})
	}
}

func TestTrimSeparatesFromPrecedingText(t *testing.T) {
	node := &Mixed{Children: []Node{
		&StaticText{Text: "select * from users"},
		NewWhere(text("AND id = 1")),
	}}

	actual, _ := renderNode(t, node, nil)
	assert.Equal(t, "select * from users WHERE id = 1", actual)
}

func TestChoose(t *testing.T) {
	tests := []struct {
		name     string
		node     *Choose
		expected string
	}{
		{
			name: "second when matches",
			node: &Choose{
				Whens:     []When{{Test: "false", Body: text("X")}, {Test: "true", Body: text("Y")}},
				Otherwise: text("Z"),
			},
			expected: "Y",
		},
		{
			name: "otherwise",
			node: &Choose{
				Whens:     []When{{Test: "false", Body: text("X")}},
				Otherwise: text("Z"),
			},
			expected: "Z",
		},
		{
			name: "nothing matches",
			node: &Choose{
				Whens: []When{{Test: "false", Body: text("X")}},
			},
			expected: "",
		},
		{
			name: "first match wins",
			node: &Choose{
				Whens: []When{{Test: "true", Body: text("A")}, {Test: "true", Body: text("B")}},
			},
			expected: "A",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, _ := renderNode(t, tt.node, nil)
			assert.Equal(t, tt.expected, actual)
		})
	}
}

func TestIf(t *testing.T) {
	node := &If{Test: "id != null", Body: text("and id = 1")}

	actual, _ := renderNode(t, node, map[string]any{})
	assert.Equal(t, "", actual)

	actual, _ = renderNode(t, node, map[string]any{"id": 3})
	assert.Equal(t, "and id = 1", actual)
}

func TestIfInsideWhereExcluded(t *testing.T) {
	node := &Mixed{Children: []Node{
		&StaticText{Text: "select * from users "},
		NewWhere(&Mixed{Children: []Node{
			&If{Test: "id != null", Body: text("and id=#{id}")},
		}}),
	}}

	actual, _ := renderNode(t, node, map[string]any{"name": "x"})
	assert.Equal(t, "select * from users ", actual)
	assert.False(t, strings.Contains(actual, "WHERE"))
}

func TestForEachTextual(t *testing.T) {
	node := &ForEach{
		Collection: "list",
		Item:       "item",
		Open:       "(",
		Close:      ")",
		Separator:  ",",
		Body:       &Mixed{Children: []Node{&DynamicText{Text: "${item}"}}},
	}

	actual, ctx := renderNode(t, node, map[string]any{"list": []int{1, 2, 3}})
	assert.Equal(t, "(1,2,3)", actual)
	assert.Equal(t, []Binding{
		{Name: "__frch_item_0", Value: 1},
		{Name: "__frch_item_1", Value: 2},
		{Name: "__frch_item_2", Value: 3},
	}, ctx.Bindings())
}

func TestForEachRewritesParameters(t *testing.T) {
	node := &ForEach{
		Collection: "users",
		Item:       "u",
		Index:      "i",
		Separator:  ", ",
		Body:       text("(#{i}, #{u.name}, #{u, jdbcType=OTHER}, #{user}, \\#{u})"),
	}

	users := []map[string]any{{"name": "a"}}

	actual, ctx := renderNode(t, node, map[string]any{"users": users})
	assert.Equal(t, "(#{__frch_i_0}, #{__frch_u_0.name}, #{__frch_u_0, jdbcType=OTHER}, #{user}, \\#{u})", actual)
	assert.Equal(t, []Binding{
		{Name: "__frch_u_0", Value: map[string]any{"name": "a"}},
		{Name: "__frch_i_0", Value: 0},
	}, ctx.Bindings())
}

func TestForEachEmptyAndBlank(t *testing.T) {
	node := &ForEach{Collection: "list", Item: "x", Open: "(", Close: ")", Separator: ","}

	actual, _ := renderNode(t, node, map[string]any{"list": []int{}})
	assert.Equal(t, "", actual)

	node.Body = &If{Test: "x > 1", Body: &Mixed{Children: []Node{&DynamicText{Text: "${x}"}}}}

	actual, _ = renderNode(t, node, map[string]any{"list": []int{1, 2, 3}})
	assert.Equal(t, "(2,3)", actual)
}

func TestForEachMapUsesSortedKeys(t *testing.T) {
	node := &ForEach{
		Collection: "m",
		Item:       "v",
		Index:      "k",
		Separator:  " AND ",
		Body:       &Mixed{Children: []Node{&DynamicText{Text: "${k}=${v}"}}},
	}

	actual, _ := renderNode(t, node, map[string]any{"m": map[string]int{"b": 2, "a": 1}})
	assert.Equal(t, "a=1 AND b=2", actual)
}

func TestForEachErrors(t *testing.T) {
	node := &ForEach{Collection: "list", Item: "x", Body: text("x")}
	ctx := NewDynamicContext(map[string]any{}, "", defaultEvaluator())

	var out strings.Builder

	_, err := apply(node, ctx, &out)
	assert.IsError(t, err, ErrNotIterable)

	var renderErr *RenderError
	assert.True(t, errors.As(err, &renderErr))

	_, err = apply(node, NewDynamicContext(map[string]any{"list": 42}, "", defaultEvaluator()), &out)
	assert.IsError(t, err, ErrNotIterable)

	node.Nullable = true
	produced, err := apply(node, NewDynamicContext(map[string]any{}, "", defaultEvaluator()), &out)
	assert.NoError(t, err)
	assert.False(t, produced)
}

// listEvaluator lists a fixed collection for every foreach.
type listEvaluator struct {
	evaluator.Evaluator
	entries []evaluator.Entry
	calls   int
}

func (e *listEvaluator) EvaluateIterable(string, evaluator.Scope) ([]evaluator.Entry, error) {
	e.calls++
	return e.entries, nil
}

func TestForEachUsesEvaluatorIterable(t *testing.T) {
	eval := &listEvaluator{Evaluator: defaultEvaluator(), entries: []evaluator.Entry{{Key: 0, Value: "custom"}}}
	node := &ForEach{
		Collection: "xs",
		Item:       "i",
		Separator:  ",",
		Body:       &Mixed{Children: []Node{&DynamicText{Text: "${i}"}}},
	}

	ctx := NewDynamicContext(map[string]any{"xs": []string{"a", "b"}}, "", eval)

	var out strings.Builder

	_, err := apply(node, ctx, &out)
	assert.NoError(t, err)
	assert.Equal(t, "custom", out.String())
	assert.Equal(t, 1, eval.calls)
}

func TestForEachItemizesBindNames(t *testing.T) {
	node := &ForEach{
		Collection: "names",
		Item:       "n",
		Separator:  " or ",
		Body: &Mixed{Children: []Node{
			&Bind{Name: "p", Expr: "n + '%'"},
			&DynamicText{Text: "name like #{p} /* ${p} */"},
		}},
	}

	actual, ctx := renderNode(t, node, map[string]any{"names": []string{"a", "b"}})
	assert.Equal(t, "name like #{__frch_p_0} /* a% */ or name like #{__frch_p_1} /* b% */", actual)

	for name, expected := range map[string]any{"__frch_n_0": "a", "__frch_p_0": "a%", "__frch_n_1": "b", "__frch_p_1": "b%"} {
		value, ok := ctx.Binding(name)
		assert.True(t, ok, name)
		assert.Equal(t, expected, value, name)
	}
}

func TestBind(t *testing.T) {
	node := &Mixed{Children: []Node{
		&Bind{Name: "pattern", Expr: "'%' + name + '%'"},
		&DynamicText{Text: "${pattern}"},
	}}

	actual, ctx := renderNode(t, node, map[string]any{"name": "al"})
	assert.Equal(t, "%al%", actual)

	value, ok := ctx.Binding("pattern")
	assert.True(t, ok)
	assert.Equal(t, any("%al%"), value)
}

func TestDynamicText(t *testing.T) {
	type order struct {
		Column string
	}

	tests := []struct {
		name     string
		text     string
		param    any
		expected string
	}{
		{name: "map value", text: "order by ${col}", param: map[string]any{"col": "name"}, expected: "order by name"},
		{name: "struct path", text: "order by ${o.column}", param: map[string]any{"o": order{Column: "id"}}, expected: "order by id"},
		{name: "unresolved passes through", text: "from ${table}", param: map[string]any{}, expected: "from ${table}"},
		{name: "nil renders empty", text: "[${x}]", param: map[string]any{"x": nil}, expected: "[]"},
		{name: "scalar value", text: "limit ${value}", param: 10, expected: "limit 10"},
		{name: "expression", text: "limit ${n * 2}", param: map[string]any{"n": 5}, expected: "limit 10"},
		{name: "escaped", text: `'\${x}' ${x}`, param: map[string]any{"x": "y"}, expected: "'${x}' y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, _ := renderNode(t, &DynamicText{Text: tt.text}, tt.param)
			assert.Equal(t, tt.expected, actual)
		})
	}
}

func TestDynamicContextLookup(t *testing.T) {
	ctx := NewDynamicContext(map[string]any{"a": 1}, "postgres", evaluator.MustNewCEL())

	v, ok := ctx.Lookup("a")
	assert.True(t, ok)
	assert.Equal(t, any(1), v)

	v, ok = ctx.Lookup(ParameterObjectKey)
	assert.True(t, ok)
	assert.Equal(t, any(map[string]any{"a": 1}), v)

	v, ok = ctx.Lookup(DatabaseIDKey)
	assert.True(t, ok)
	assert.Equal(t, any("postgres"), v)

	_, ok = ctx.Lookup("value")
	assert.False(t, ok)

	ctx.pushScope(map[string]any{"a": 2})
	v, _ = ctx.Lookup("a")
	assert.Equal(t, any(2), v)

	ctx.popScope()
	v, _ = ctx.Lookup("a")
	assert.Equal(t, any(1), v)

	scalar := NewDynamicContext("x", "", evaluator.MustNewCEL())
	v, ok = scalar.Lookup("value")
	assert.True(t, ok)
	assert.Equal(t, any("x"), v)
}
