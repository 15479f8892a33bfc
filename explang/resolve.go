package explang

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
)

// ErrUnresolvablePath indicates a step that cannot be applied to the value it reached.
var ErrUnresolvablePath = errors.New("explang: unresolvable property path")

// Resolve walks steps starting at root. The first step names a property of
// root. A missing map key or a nil pointer along the way yields nil without
// error. Member access on a scalar or an out-of-range index is an error
// unless the step uses safe navigation.
func Resolve(root any, steps []Step) (any, error) {
	if len(steps) == 0 {
		return root, nil
	}

	current := reflect.ValueOf(root)

	for i, step := range steps {
		var (
			next reflect.Value
			err  error
		)

		switch step.Kind {
		case StepIdentifier:
			next, _, err = member(current, step.Identifier)
		case StepMember:
			next, _, err = member(current, step.Property)
		case StepIndex:
			next, err = index(current, step.Index)
		case StepKey:
			next, _, err = member(current, step.Key)
		}

		if err != nil {
			if step.Safe {
				return nil, nil
			}

			return nil, fmt.Errorf("%w: %s: %w", ErrUnresolvablePath, FormatSteps(steps[:i+1]), err)
		}

		if !next.IsValid() {
			return nil, nil
		}

		current = next
	}

	return interfaceOf(current), nil
}

// ResolvePath parses expr and resolves it against root.
func ResolvePath(root any, expr string) (any, error) {
	steps, err := ParsePath(expr)
	if err != nil {
		return nil, err
	}

	return Resolve(root, steps)
}

// Property reports the value of the named property of root and whether root
// has such a property at all. Map keys and struct properties are supported.
func Property(root any, name string) (any, bool) {
	v, found, err := member(reflect.ValueOf(root), name)
	if err != nil || !found {
		return nil, false
	}

	return interfaceOf(v), true
}

// interfaceOf unwraps v, turning nil pointers and interfaces into an untyped nil.
func interfaceOf(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}

	if (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && v.IsNil() {
		return nil
	}

	return v.Interface()
}

// IsObject reports whether v exposes named properties (maps with string keys or structs).
func IsObject(v any) bool {
	rv := indirect(reflect.ValueOf(v))
	if !rv.IsValid() {
		return false
	}

	switch rv.Kind() {
	case reflect.Map:
		return rv.Type().Key().Kind() == reflect.String
	case reflect.Struct:
		return true
	default:
		return false
	}
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}

		v = v.Elem()
	}

	return v
}

// member returns the named property. The invalid Value stands for nil.
func member(v reflect.Value, name string) (reflect.Value, bool, error) {
	v = indirect(v)
	if !v.IsValid() {
		return reflect.Value{}, false, nil
	}

	switch v.Kind() {
	case reflect.Map:
		keyType := v.Type().Key()
		if keyType.Kind() != reflect.String {
			return reflect.Value{}, false, fmt.Errorf("map key type %s is not a string", keyType)
		}

		found := v.MapIndex(reflect.ValueOf(name).Convert(keyType))
		if !found.IsValid() {
			return reflect.Value{}, false, nil
		}

		return found, true, nil
	case reflect.Struct:
		prop, ok := structField(v.Type(), name)
		if !ok {
			return reflect.Value{}, false, fmt.Errorf("%s has no property %q", v.Type(), name)
		}

		field, err := v.FieldByIndexErr(prop.Index)
		if err != nil {
			// nil embedded pointer
			return reflect.Value{}, true, nil
		}

		return field, true, nil
	default:
		return reflect.Value{}, false, fmt.Errorf("cannot access %q on %s", name, v.Type())
	}
}

func index(v reflect.Value, i int) (reflect.Value, error) {
	v = indirect(v)
	if !v.IsValid() {
		return reflect.Value{}, nil
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if i < 0 || i >= v.Len() {
			return reflect.Value{}, fmt.Errorf("index %d out of range (length %d)", i, v.Len())
		}

		return v.Index(i), nil
	case reflect.Map:
		keyType := v.Type().Key()

		switch keyType.Kind() {
		case reflect.String:
			return v.MapIndex(reflect.ValueOf(strconv.Itoa(i)).Convert(keyType)), nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return v.MapIndex(reflect.ValueOf(i).Convert(keyType)), nil
		default:
			return reflect.Value{}, fmt.Errorf("cannot index %s with an integer", v.Type())
		}
	default:
		return reflect.Value{}, fmt.Errorf("cannot index %s", v.Type())
	}
}
