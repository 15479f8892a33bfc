package scripting

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/x19-huhr/mybatis"
	"github.com/x19-huhr/mybatis/evaluator"
	"github.com/x19-huhr/mybatis/explang"
	"github.com/x19-huhr/mybatis/tokenizer"
)

// Parameter is one bind parameter in placeholder order.
type Parameter struct {
	// Name is the property path or expression written inside #{}.
	Name    string
	Value   any
	Mapping tokenizer.ParameterExpression
}

// BoundSQL is the result of rendering a template for one parameter object.
type BoundSQL struct {
	SQL        string
	Parameters []Parameter
}

// Args returns the parameter values in placeholder order.
func (b *BoundSQL) Args() []any {
	args := make([]any, len(b.Parameters))
	for i, p := range b.Parameters {
		args[i] = p.Value
	}

	return args
}

// SQLSource is a built template artifact. Implementations are immutable and
// safe for concurrent use.
type SQLSource interface {
	BoundSQL(param any) (*BoundSQL, error)
}

// Render produces the SQL text and bind parameters of src for param.
func Render(src SQLSource, param any) (*BoundSQL, error) {
	return src.BoundSQL(param)
}

// IsDynamic reports whether src re-renders its template on every call.
func IsDynamic(src SQLSource) bool {
	_, ok := src.(*DynamicSource)
	return ok
}

type sourceSettings struct {
	dialect    mybatis.Dialect
	databaseID string
	eval       evaluator.Evaluator
	shrink     bool
}

// StaticSource holds a template without directives or ${} placeholders.
// Its SQL text and parameter mappings are computed once.
type StaticSource struct {
	sourceSettings
	sql      string
	mappings []tokenizer.ParameterExpression
}

func newStaticSource(text string, settings sourceSettings) (*StaticSource, error) {
	if settings.shrink {
		text = tokenizer.ShrinkWhitespace(text)
	}

	sql, mappings, err := parsePlaceholders(text, settings.dialect)
	if err != nil {
		return nil, err
	}

	return &StaticSource{sourceSettings: settings, sql: sql, mappings: mappings}, nil
}

// SQL returns the precomputed SQL text.
func (s *StaticSource) SQL() string {
	return s.sql
}

// BoundSQL resolves the fixed parameter mappings against param.
func (s *StaticSource) BoundSQL(param any) (*BoundSQL, error) {
	ctx := NewDynamicContext(param, s.databaseID, s.eval)

	params, err := ctx.resolveParameters(s.mappings)
	if err != nil {
		return nil, err
	}

	return &BoundSQL{SQL: s.sql, Parameters: params}, nil
}

// DynamicSource re-renders its node tree with a fresh DynamicContext per call.
type DynamicSource struct {
	sourceSettings
	root Node
}

// Root returns the template's node tree.
func (s *DynamicSource) Root() Node {
	return s.root
}

// BoundSQL renders the template for param.
func (s *DynamicSource) BoundSQL(param any) (*BoundSQL, error) {
	ctx := NewDynamicContext(param, s.databaseID, s.eval)

	var out strings.Builder
	if _, err := apply(s.root, ctx, &out); err != nil {
		return nil, err
	}

	text := out.String()
	if s.shrink {
		text = tokenizer.ShrinkWhitespace(text)
	}

	sql, mappings, err := parsePlaceholders(text, s.dialect)
	if err != nil {
		return nil, &RenderError{Err: err}
	}

	params, err := ctx.resolveParameters(mappings)
	if err != nil {
		return nil, err
	}

	return &BoundSQL{SQL: sql, Parameters: params}, nil
}

// parsePlaceholders replaces #{} placeholders with dialect bind markers.
func parsePlaceholders(text string, dialect mybatis.Dialect) (string, []tokenizer.ParameterExpression, error) {
	if !strings.Contains(text, tokenizer.ParamOpen) {
		return text, nil, nil
	}

	var (
		b        strings.Builder
		mappings []tokenizer.ParameterExpression
	)

	for seg := range tokenizer.ParamScanner.Segments(text) {
		if seg.Kind != tokenizer.SegmentToken {
			b.WriteString(seg.Text)
			continue
		}

		mapping, err := tokenizer.ParseParameterExpression(seg.Text)
		if err != nil {
			return "", nil, err
		}

		mappings = append(mappings, mapping)
		b.WriteString(dialect.Placeholder(len(mappings)))
	}

	return b.String(), mappings, nil
}

func (c *DynamicContext) resolveParameters(mappings []tokenizer.ParameterExpression) ([]Parameter, error) {
	if len(mappings) == 0 {
		return nil, nil
	}

	params := make([]Parameter, 0, len(mappings))

	for _, mapping := range mappings {
		var (
			value any
			err   error
		)

		if mapping.Expression != "" {
			value, err = c.eval.EvaluateValue(mapping.Expression, c)
			if err != nil {
				return nil, &RenderError{Node: "#{(" + mapping.Expression + ")}", Err: err}
			}
		} else {
			value, err = c.parameterValue(mapping.Property)
			if err != nil {
				return nil, &RenderError{Node: "#{" + mapping.Property + "}", Err: err}
			}
		}

		params = append(params, Parameter{Name: mapping.Name(), Value: value, Mapping: mapping})
	}

	return params, nil
}

// parameterValue resolves a bind parameter path: accumulated bindings
// first, then the scope chain, then the parameter object itself when it is
// a scalar. A missing map key is nil; a missing struct property is an error.
func (c *DynamicContext) parameterValue(property string) (any, error) {
	steps, err := explang.ParsePath(property)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParameterPath, err)
	}

	root := steps[0].Identifier

	value, ok := c.Binding(root)
	if !ok {
		value, ok = c.Lookup(root)
	}

	if !ok {
		switch {
		case c.param == nil:
			return nil, nil
		case !explang.IsObject(c.param):
			value = c.param
		case isMapValue(c.param):
			return nil, nil
		default:
			return nil, fmt.Errorf("%w: %T has no property %q", ErrParameterPath, c.param, root)
		}
	}

	resolved, err := explang.Resolve(value, steps[1:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParameterPath, err)
	}

	return resolved, nil
}

func isMapValue(v any) bool {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return false
		}

		rv = rv.Elem()
	}

	return rv.Kind() == reflect.Map
}
