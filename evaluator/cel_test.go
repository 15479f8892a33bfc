package evaluator

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"
)

type celAddress struct {
	City string
}

type celUser struct {
	ID       int64
	UserName string
	Active   bool
	Address  *celAddress
	Balance  decimal.Decimal
	Tags     []string
}

func newTestCEL(t *testing.T) *CEL {
	t.Helper()

	e, err := NewCEL(WithProgramCacheSize(16))
	assert.NoError(t, err)

	return e
}

func TestCELEvaluateBoolean(t *testing.T) {
	e := newTestCEL(t)

	user := &celUser{
		ID:       10,
		UserName: "alice",
		Active:   true,
		Address:  &celAddress{City: "Osaka"},
		Balance:  decimal.NewFromFloat(12.5),
		Tags:     []string{"admin"},
	}

	tests := []struct {
		name     string
		expr     string
		scope    MapScope
		expected bool
	}{
		{name: "missing identifier is null", expr: "id != null", scope: MapScope{}, expected: false},
		{name: "present identifier", expr: "id != null", scope: MapScope{"id": 1}, expected: true},
		{name: "nil value", expr: "id != null", scope: MapScope{"id": nil}, expected: false},
		{name: "word operators", expr: "name == 'alice' and age > 18", scope: MapScope{"name": "alice", "age": 20}, expected: true},
		{name: "not", expr: "not active", scope: MapScope{"active": false}, expected: true},
		{name: "struct property", expr: "user.userName == 'alice'", scope: MapScope{"user": user}, expected: true},
		{name: "struct exported name", expr: "user.UserName != ''", scope: MapScope{"user": user}, expected: true},
		{name: "nested pointer", expr: "user.address.city == 'Osaka'", scope: MapScope{"user": user}, expected: true},
		{name: "decimal as double", expr: "user.balance > 10.0", scope: MapScope{"user": user}, expected: true},
		{name: "size", expr: "size(ids) > 0", scope: MapScope{"ids": []int{1}}, expected: true},
		{name: "comprehension", expr: "ids.exists(x, x == 2)", scope: MapScope{"ids": []int{1, 2}}, expected: true},
		{name: "plain path truthy", expr: "user.active", scope: MapScope{"user": user}, expected: true},
		{name: "plain path zero", expr: "count", scope: MapScope{"count": 0}, expected: false},
		{name: "plain path missing", expr: "missing.deep", scope: MapScope{}, expected: false},
		{name: "literal true", expr: "true", scope: MapScope{}, expected: true},
		{name: "string functions", expr: "name.upperAscii() == 'BOB'", scope: MapScope{"name": "bob"}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := e.EvaluateBoolean(tt.expr, tt.scope)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, actual)
		})
	}
}

func TestCELEvaluateBooleanErrors(t *testing.T) {
	e := newTestCEL(t)

	tests := []struct {
		name  string
		expr  string
		scope MapScope
	}{
		{name: "syntax", expr: "a +", scope: MapScope{}},
		{name: "empty", expr: "  ", scope: MapScope{}},
		{name: "division by zero", expr: "a / b == 1", scope: MapScope{"a": 1, "b": 0}},
		{name: "bad path", expr: "ids[5]", scope: MapScope{"ids": []int{1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.EvaluateBoolean(tt.expr, tt.scope)
			assert.IsError(t, err, ErrExpressionEvaluation)
		})
	}
}

func TestCELEvaluateValue(t *testing.T) {
	e := newTestCEL(t)
	addr := &celAddress{City: "Kyoto"}

	tests := []struct {
		name     string
		expr     string
		scope    MapScope
		expected any
	}{
		{name: "path keeps go value", expr: "addr", scope: MapScope{"addr": addr}, expected: addr},
		{name: "nested path", expr: "addr.city", scope: MapScope{"addr": addr}, expected: "Kyoto"},
		{name: "arithmetic", expr: "amount * 2", scope: MapScope{"amount": 3}, expected: int64(6)},
		{name: "string concat", expr: "'%' + name + '%'", scope: MapScope{"name": "al"}, expected: "%al%"},
		{name: "list literal", expr: "[1, 2]", scope: MapScope{}, expected: []any{int64(1), int64(2)}},
		{name: "map literal", expr: "{'a': 1}", scope: MapScope{}, expected: map[string]any{"a": int64(1)}},
		{name: "null", expr: "null", scope: MapScope{}, expected: nil},
		{name: "missing", expr: "missing", scope: MapScope{}, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := e.EvaluateValue(tt.expr, tt.scope)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, actual)
		})
	}
}

func TestCELEvaluateIterable(t *testing.T) {
	e := newTestCEL(t)

	entries, err := e.EvaluateIterable("names", MapScope{"names": []string{"a", "b"}})
	assert.NoError(t, err)
	assert.Equal(t, []Entry{{Key: 0, Value: "a"}, {Key: 1, Value: "b"}}, entries)

	entries, err = e.EvaluateIterable("m", MapScope{"m": map[string]int{"b": 2, "a": 1}})
	assert.NoError(t, err)
	assert.Equal(t, []Entry{{Key: "a", Value: 1}, {Key: "b", Value: 2}}, entries)

	entries, err = e.EvaluateIterable("[3, 4]", MapScope{})
	assert.NoError(t, err)
	assert.Equal(t, []Entry{{Key: 0, Value: int64(3)}, {Key: 1, Value: int64(4)}}, entries)

	_, err = e.EvaluateIterable("missing", MapScope{})
	assert.IsError(t, err, ErrNotIterable)
	assert.IsError(t, err, ErrNilCollection)

	_, err = e.EvaluateIterable("n", MapScope{"n": 5})
	assert.IsError(t, err, ErrNotIterable)
}

func TestCELProgramCache(t *testing.T) {
	e := newTestCEL(t)

	for i := range 3 {
		ok, err := e.EvaluateBoolean("a > b", MapScope{"a": i, "b": 1})
		assert.NoError(t, err)
		assert.Equal(t, i > 1, ok)
	}

	assert.Equal(t, 1, e.programs.Len())
}

func TestFreeIdentifiers(t *testing.T) {
	e := newTestCEL(t)

	tests := []struct {
		expr     string
		expected []string
	}{
		{expr: "a && b.c", expected: []string{"a", "b"}},
		{expr: "items.all(i, i.price > min)", expected: []string{"items", "min"}},
		{expr: "f(x, [y], {'k': z})", expected: []string{"x", "y", "z"}},
		{expr: "has(user.name)", expected: []string{"user"}},
		{expr: "1 + 2", expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			parsed, issues := e.env.Parse(tt.expr)
			assert.NoError(t, issues.Err())

			actual, err := freeIdentifiers(parsed)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, actual)
		})
	}
}
