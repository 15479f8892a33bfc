package evaluator

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/x19-huhr/mybatis/explang"
)

var timeType = reflect.TypeOf(time.Time{})

// toCEL converts a Go value into a shape the CEL type adapter understands:
// structs become maps keyed by property name, named scalar types become
// their base kind, and nil becomes CEL null.
func toCEL(value any) any {
	switch v := value.(type) {
	case nil:
		return types.NullValue
	case decimal.Decimal:
		return v.InexactFloat64()
	case *decimal.Decimal:
		if v == nil {
			return types.NullValue
		}

		return v.InexactFloat64()
	case uuid.UUID:
		return v.String()
	case time.Time, time.Duration, []byte, string, bool, int64, uint64, float64:
		return v
	case ref.Val:
		return v
	}

	rv := reflect.ValueOf(value)

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return types.NullValue
		}

		return toCEL(rv.Elem().Interface())
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Slice:
		if rv.IsNil() {
			return types.NullValue
		}

		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return rv.Bytes()
		}

		fallthrough
	case reflect.Array:
		list := make([]any, rv.Len())
		for i := range list {
			list[i] = toCEL(rv.Index(i).Interface())
		}

		return list
	case reflect.Map:
		if rv.IsNil() {
			return types.NullValue
		}

		if rv.Type().Key().Kind() == reflect.String {
			m := make(map[string]any, rv.Len())

			iter := rv.MapRange()
			for iter.Next() {
				m[iter.Key().String()] = toCEL(iter.Value().Interface())
			}

			return m
		}

		m := make(map[any]any, rv.Len())

		iter := rv.MapRange()
		for iter.Next() {
			m[toCEL(iter.Key().Interface())] = toCEL(iter.Value().Interface())
		}

		return m
	case reflect.Struct:
		if rv.Type() == timeType {
			return rv.Interface()
		}

		return structToMap(rv)
	default:
		return value
	}
}

func structToMap(rv reflect.Value) map[string]any {
	props := explang.StructProperties(rv.Type())
	m := make(map[string]any, len(props)*2)

	for _, prop := range props {
		field, err := rv.FieldByIndexErr(prop.Index)

		var converted any = types.NullValue
		if err == nil {
			converted = toCEL(field.Interface())
		}

		m[prop.Name] = converted
		if _, exists := m[prop.Field.Name]; !exists {
			m[prop.Field.Name] = converted
		}
	}

	return m
}

// fromCEL converts a CEL result into plain Go values. Null becomes nil,
// lists become []any and maps become map[string]any (or map[any]any when
// a key is not a string).
func fromCEL(val ref.Val) any {
	switch v := val.(type) {
	case nil:
		return nil
	case types.Null:
		return nil
	case traits.Lister:
		var list []any

		it := v.Iterator()
		for it.HasNext() == types.True {
			list = append(list, fromCEL(it.Next()))
		}

		if list == nil {
			list = []any{}
		}

		return list
	case traits.Mapper:
		return mapFromCEL(v)
	}

	native := val.Value()
	if _, ok := native.(structpb.NullValue); ok {
		return nil
	}

	return native
}

func mapFromCEL(m traits.Mapper) any {
	stringKeys := make(map[string]any)
	anyKeys := make(map[any]any)
	allStrings := true

	it := m.Iterator()
	for it.HasNext() == types.True {
		key := it.Next()
		value := fromCEL(m.Get(key))

		if s, ok := key.(types.String); ok {
			stringKeys[string(s)] = value
		} else {
			allStrings = false
		}

		anyKeys[fromCEL(key)] = value
	}

	if allStrings {
		return stringKeys
	}

	return anyKeys
}

// Entries lists the elements of a slice, array or map in a stable order.
// Map entries are sorted by the string form of their keys.
func Entries(value any) ([]Entry, error) {
	rv := reflect.ValueOf(value)
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			rv = reflect.Value{}
			break
		}

		rv = rv.Elem()
	}

	if !rv.IsValid() {
		return nil, fmt.Errorf("%w: %w", ErrNotIterable, ErrNilCollection)
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		entries := make([]Entry, rv.Len())
		for i := range entries {
			entries[i] = Entry{Key: i, Value: rv.Index(i).Interface()}
		}

		return entries, nil
	case reflect.Map:
		entries := make([]Entry, 0, rv.Len())

		iter := rv.MapRange()
		for iter.Next() {
			entries = append(entries, Entry{Key: iter.Key().Interface(), Value: iter.Value().Interface()})
		}

		sort.SliceStable(entries, func(i, j int) bool {
			return fmt.Sprint(entries[i].Key) < fmt.Sprint(entries[j].Key)
		})

		return entries, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotIterable, rv.Type())
	}
}
