// Package evaluator evaluates test, value and collection expressions used by
// dynamic SQL templates against a chain of variable scopes.
package evaluator

import (
	"errors"
)

// Sentinel errors
var (
	// ErrExpressionEvaluation indicates an expression failed to compile or evaluate.
	ErrExpressionEvaluation = errors.New("expression evaluation failed")
	// ErrNotIterable indicates a collection expression did not produce a slice, array or map.
	ErrNotIterable = errors.New("value is not iterable")
	// ErrNilCollection accompanies ErrNotIterable when the collection is nil or missing.
	ErrNilCollection = errors.New("collection is nil")
)

// Scope resolves root variable names.
type Scope interface {
	Lookup(name string) (any, bool)
}

// MapScope is a Scope backed by a plain map.
type MapScope map[string]any

// Lookup implements Scope.
func (m MapScope) Lookup(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

// Entry is one element of an iterable: position or map key, and value.
type Entry struct {
	Key   any
	Value any
}

// Evaluator evaluates expressions against a Scope. EvaluateIterable fails
// with ErrNotIterable, joined with ErrNilCollection for a nil or missing
// collection.
type Evaluator interface {
	EvaluateBoolean(expr string, scope Scope) (bool, error)
	EvaluateValue(expr string, scope Scope) (any, error)
	EvaluateIterable(expr string, scope Scope) ([]Entry, error)
}
