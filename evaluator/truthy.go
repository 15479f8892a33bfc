package evaluator

import (
	"math"
	"reflect"
	"time"

	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/shopspring/decimal"
)

// Floats closer to zero than this are false.
const truthyEpsilon = 1e-4

var epsilonDecimal = decimal.NewFromFloat(truthyEpsilon)

// Truthy converts the result of a test expression to a boolean. nil,
// zero numbers, empty strings, zero times and empty collections are false.
// CEL values are converted first; CEL errors and unknowns are false.
func Truthy(value any) bool {
	switch v := value.(type) {
	case nil, types.Null:
		return false
	case ref.Val:
		if types.IsUnknownOrError(v) {
			return false
		}

		return Truthy(fromCEL(v))
	case decimal.Decimal:
		return v.Abs().Cmp(epsilonDecimal) >= 0
	case time.Time:
		return !v.IsZero()
	}

	rv := reflect.ValueOf(value)

	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return math.Abs(rv.Float()) >= truthyEpsilon
	case reflect.String, reflect.Array, reflect.Slice, reflect.Map, reflect.Chan:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil() && Truthy(rv.Elem().Interface())
	default:
		return !rv.IsZero()
	}
}
