package explang

import (
	"fmt"
	"reflect"
)

// ValidationError represents a mismatch between a Step and the declared parameter type.
type ValidationError struct {
	StepIndex int
	Step      Step
	Message   string
}

func (e ValidationError) Error() string {
	return e.Message
}

// ValidatorOptions configures ValidateStepsAgainstType behaviour.
type ValidatorOptions struct {
	// AdditionalRoots declares extra root names such as _parameter.
	// A nil type marks the root as known but untyped.
	AdditionalRoots map[string]reflect.Type
}

// ValidateStepsAgainstType checks that the steps of a property path can be
// applied to values of the declared parameter type. Struct properties are
// checked by name; maps and interfaces are opaque and never reported.
// A non-struct root type accepts any root name, since a single scalar
// parameter can be referenced by any name.
func ValidateStepsAgainstType(steps []Step, paramType reflect.Type, opts *ValidatorOptions) []ValidationError {
	if len(steps) == 0 {
		return nil
	}

	var (
		errs    []ValidationError
		current reflect.Type
		path    string
	)

	for idx, step := range steps {
		switch step.Kind {
		case StepIdentifier:
			path = step.Identifier

			if opts != nil {
				if t, ok := opts.AdditionalRoots[step.Identifier]; ok {
					current = t
					continue
				}
			}

			root := deref(paramType)
			if root == nil || root.Kind() != reflect.Struct {
				// scalar, map or unknown parameter: nothing more to check
				return nil
			}

			prop, ok := structField(root, step.Identifier)
			if !ok {
				errs = append(errs, ValidationError{
					StepIndex: idx,
					Step:      step,
					Message:   fmt.Sprintf("unknown property %q on parameter type %s", step.Identifier, root),
				})

				return errs
			}

			current = prop.Field.Type
		case StepMember, StepKey:
			name := step.Property
			if step.Kind == StepKey {
				name = step.Key
			}

			parent := path
			path = FormatSteps(steps[:idx+1])

			t := deref(current)
			if t == nil {
				return errs
			}

			switch t.Kind() {
			case reflect.Map, reflect.Interface:
				return errs
			case reflect.Struct:
				prop, ok := structField(t, name)
				if !ok {
					errs = append(errs, ValidationError{
						StepIndex: idx,
						Step:      step,
						Message:   fmt.Sprintf("unknown property %q on %q (type %s)", name, parent, t),
					})

					return errs
				}

				current = prop.Field.Type
			default:
				if step.Safe {
					return errs
				}

				errs = append(errs, ValidationError{
					StepIndex: idx,
					Step:      step,
					Message:   fmt.Sprintf("cannot access property %q on %q (type %s)", name, parent, t),
				})

				return errs
			}
		case StepIndex:
			parent := path
			path = FormatSteps(steps[:idx+1])

			t := deref(current)
			if t == nil {
				return errs
			}

			switch t.Kind() {
			case reflect.Slice, reflect.Array, reflect.Map:
				current = t.Elem()
			case reflect.Interface:
				return errs
			default:
				if step.Safe {
					return errs
				}

				errs = append(errs, ValidationError{
					StepIndex: idx,
					Step:      step,
					Message:   fmt.Sprintf("parameter %q is not indexable (type %s)", parent, t),
				})

				return errs
			}
		}
	}

	return errs
}

func deref(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return t
}
