package evaluator

import (
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/google/cel-go/common/types"
	"github.com/shopspring/decimal"
)

type flag bool

func TestTruthy(t *testing.T) {
	now := time.Now()
	zero := 0
	one := 1

	var (
		nilTime *time.Time
		nilMap  map[string]any
	)

	tests := []struct {
		name     string
		value    any
		expected bool
	}{
		{name: "nil", value: nil, expected: false},
		{name: "bool", value: true, expected: true},
		{name: "named bool", value: flag(true), expected: true},
		{name: "int zero", value: 0, expected: false},
		{name: "uint8", value: uint8(1), expected: true},
		{name: "int64 negative", value: int64(-3), expected: true},
		{name: "float below epsilon", value: 5e-5, expected: false},
		{name: "float above epsilon", value: -2e-4, expected: true},
		{name: "empty string", value: "", expected: false},
		{name: "string", value: "0", expected: true},
		{name: "zero time", value: time.Time{}, expected: false},
		{name: "time", value: now, expected: true},
		{name: "decimal zero", value: decimal.NewFromInt(0), expected: false},
		{name: "decimal", value: decimal.NewFromFloat(1.25), expected: true},
		{name: "empty slice", value: []int{}, expected: false},
		{name: "slice", value: []int{1}, expected: true},
		{name: "nil map", value: nilMap, expected: false},
		{name: "map", value: map[string]string{"k": "v"}, expected: true},
		{name: "pointer to zero", value: &zero, expected: false},
		{name: "pointer", value: &one, expected: true},
		{name: "time pointer", value: &now, expected: true},
		{name: "nil time pointer", value: nilTime, expected: false},
		{name: "struct", value: struct{ A int }{A: 1}, expected: true},
		{name: "cel null", value: types.NullValue, expected: false},
		{name: "cel true", value: types.True, expected: true},
		{name: "cel int zero", value: types.Int(0), expected: false},
		{name: "cel string", value: types.String("a"), expected: true},
		{name: "cel error", value: types.NewErr("boom"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Truthy(tt.value))
		})
	}
}
