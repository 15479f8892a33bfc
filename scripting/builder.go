package scripting

import (
	"fmt"
	"maps"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/x19-huhr/mybatis"
	"github.com/x19-huhr/mybatis/evaluator"
	"github.com/x19-huhr/mybatis/explang"
	"github.com/x19-huhr/mybatis/tokenizer"
	"github.com/x19-huhr/mybatis/xnode"
)

// IncludeResolver returns the fragment element referenced by an <include refid>.
type IncludeResolver func(refid string) (*xnode.Element, bool)

// BuilderOptions configures template building.
type BuilderOptions struct {
	// Variables are substituted into ${} placeholders of text and attributes at build time.
	Variables map[string]string
	// ParameterType, when set, is used to validate #{} paths of static templates.
	ParameterType reflect.Type
	Dialect       mybatis.Dialect
	// DatabaseID is visible to templates as _databaseId.
	DatabaseID       string
	Evaluator        evaluator.Evaluator
	ShrinkWhitespace bool
	IncludeResolver  IncludeResolver
}

var defaultEvaluator = sync.OnceValue(func() evaluator.Evaluator {
	return evaluator.MustNewCEL()
})

type nodeHandler func(st *buildState, el *xnode.Element) (Node, error)

// Builder turns markup trees into SQLSource artifacts. A Builder is safe
// for concurrent use; each Build call keeps its own state.
type Builder struct {
	opts     BuilderOptions
	handlers map[string]nodeHandler
}

// NewBuilder creates a Builder.
func NewBuilder(opts BuilderOptions) *Builder {
	if opts.Evaluator == nil {
		opts.Evaluator = defaultEvaluator()
	}

	b := &Builder{opts: opts}
	b.handlers = map[string]nodeHandler{
		"if":        b.handleIf,
		"when":      b.handleIf,
		"choose":    b.handleChoose,
		"otherwise": b.handleOtherwise,
		"trim":      b.handleTrim,
		"where":     b.handleWhere,
		"set":       b.handleSet,
		"foreach":   b.handleForEach,
		"bind":      b.handleBind,
		"include":   b.handleInclude,
	}

	return b
}

type buildState struct {
	variables map[string]string
	dynamic   bool
	path      []string
	including map[string]bool
}

func (st *buildState) errorf(el *xnode.Element, sentinel error, format string, args ...any) error {
	return &BuildError{
		Element: el.Name,
		Path:    strings.Join(st.path, "/"),
		Err:     fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...),
	}
}

// Build builds the children of root into a template artifact.
func (b *Builder) Build(root *xnode.Element) (SQLSource, error) {
	st := &buildState{
		variables: b.opts.Variables,
		path:      []string{root.Name},
		including: make(map[string]bool),
	}

	body, err := b.parseChildren(st, root)
	if err != nil {
		return nil, err
	}

	settings := sourceSettings{
		dialect:    b.opts.Dialect,
		databaseID: b.opts.DatabaseID,
		eval:       b.opts.Evaluator,
		shrink:     b.opts.ShrinkWhitespace,
	}

	if st.dynamic {
		return &DynamicSource{sourceSettings: settings, root: body}, nil
	}

	var text strings.Builder
	if _, err := apply(body, NewDynamicContext(nil, b.opts.DatabaseID, b.opts.Evaluator), &text); err != nil {
		return nil, &BuildError{Element: root.Name, Path: root.Name, Err: err}
	}

	src, err := newStaticSource(text.String(), settings)
	if err != nil {
		return nil, &BuildError{Element: root.Name, Path: root.Name, Err: err}
	}

	if err := b.validateParameters(st, root, src.mappings); err != nil {
		return nil, err
	}

	return src, nil
}

func (b *Builder) validateParameters(st *buildState, root *xnode.Element, mappings []tokenizer.ParameterExpression) error {
	if b.opts.ParameterType == nil {
		return nil
	}

	opts := &explang.ValidatorOptions{AdditionalRoots: map[string]reflect.Type{
		ParameterObjectKey: nil,
		DatabaseIDKey:      reflect.TypeOf(""),
	}}

	for _, mapping := range mappings {
		if mapping.Property == "" {
			continue
		}

		steps, err := explang.ParsePath(mapping.Property)
		if err != nil {
			return st.errorf(root, ErrParameterPath, "#{%s}: %v", mapping.Property, err)
		}

		if errs := explang.ValidateStepsAgainstType(steps, b.opts.ParameterType, opts); len(errs) > 0 {
			return st.errorf(root, ErrParameterPath, "#{%s}: %s", mapping.Property, errs[0].Message)
		}
	}

	return nil
}

func (b *Builder) parseChildren(st *buildState, el *xnode.Element) (*Mixed, error) {
	mixed := &Mixed{}

	for _, child := range el.Children {
		switch c := child.(type) {
		case *xnode.Text:
			text, dynamic := substituteText(c.Data, st.variables)
			if dynamic {
				st.dynamic = true
				mixed.Children = append(mixed.Children, &DynamicText{Text: text})
			} else {
				mixed.Children = append(mixed.Children, &StaticText{Text: text})
			}
		case *xnode.Element:
			handler, ok := b.handlers[c.Name]
			if !ok {
				st.path = append(st.path, c.Name)
				err := st.errorf(c, ErrUnknownElement, "<%s>", c.Name)
				st.path = st.path[:len(st.path)-1]

				return nil, err
			}

			st.path = append(st.path, c.Name)
			node, err := handler(st, c)
			st.path = st.path[:len(st.path)-1]

			if err != nil {
				return nil, err
			}

			mixed.Children = append(mixed.Children, node)
		}
	}

	return mixed, nil
}

// substituteText applies build-time variables. When ${} placeholders remain
// the text is dynamic and escaped delimiters are kept for render time.
func substituteText(text string, variables map[string]string) (string, bool) {
	if !strings.Contains(text, tokenizer.VariableOpen) {
		return text, false
	}

	var (
		plain, escaped strings.Builder
		dynamic        bool
	)

	for seg := range tokenizer.VariableScanner.Segments(text) {
		switch seg.Kind {
		case tokenizer.SegmentToken:
			value, ok := variables[seg.Text]
			if !ok {
				dynamic = true
				value = tokenizer.VariableOpen + seg.Text + tokenizer.VariableClose
			}

			plain.WriteString(value)
			escaped.WriteString(value)
		case tokenizer.SegmentEscaped:
			plain.WriteString(seg.Text)
			escaped.WriteByte('\\')
			escaped.WriteString(seg.Text)
		default:
			plain.WriteString(seg.Text)
			escaped.WriteString(seg.Text)
		}
	}

	if dynamic {
		return escaped.String(), true
	}

	return plain.String(), false
}

func (b *Builder) attr(st *buildState, el *xnode.Element, name string) (string, bool) {
	value, ok := el.Attr(name)
	if !ok {
		return "", false
	}

	return tokenizer.Substitute(value, st.variables), true
}

func (b *Builder) requiredAttr(st *buildState, el *xnode.Element, name string) (string, error) {
	value, ok := b.attr(st, el, name)
	if !ok || strings.TrimSpace(value) == "" {
		return "", st.errorf(el, ErrMissingAttribute, "<%s> requires %q", el.Name, name)
	}

	return value, nil
}

func (b *Builder) handleIf(st *buildState, el *xnode.Element) (Node, error) {
	test, err := b.requiredAttr(st, el, "test")
	if err != nil {
		return nil, err
	}

	body, err := b.parseChildren(st, el)
	if err != nil {
		return nil, err
	}

	st.dynamic = true

	return &If{Test: test, Body: body}, nil
}

func (b *Builder) handleChoose(st *buildState, el *xnode.Element) (Node, error) {
	choose := &Choose{}
	otherwiseCount := 0

	for _, child := range el.ChildElements() {
		st.path = append(st.path, child.Name)

		switch child.Name {
		case "when":
			node, err := b.handleIf(st, child)
			if err != nil {
				return nil, err
			}

			n := node.(*If)
			choose.Whens = append(choose.Whens, When{Test: n.Test, Body: n.Body})
		case "otherwise":
			otherwiseCount++
			if otherwiseCount > 1 {
				return nil, st.errorf(child, ErrTooManyOtherwise, "<choose> has %d <otherwise> elements", otherwiseCount)
			}

			body, err := b.parseChildren(st, child)
			if err != nil {
				return nil, err
			}

			choose.Otherwise = body
		default:
			return nil, st.errorf(child, ErrUnknownElement, "<%s> inside <choose>", child.Name)
		}

		st.path = st.path[:len(st.path)-1]
	}

	st.dynamic = true

	return choose, nil
}

func (b *Builder) handleOtherwise(st *buildState, el *xnode.Element) (Node, error) {
	return nil, st.errorf(el, ErrUnknownElement, "<otherwise> outside <choose>")
}

func (b *Builder) handleTrim(st *buildState, el *xnode.Element) (Node, error) {
	body, err := b.parseChildren(st, el)
	if err != nil {
		return nil, err
	}

	prefix, _ := b.attr(st, el, "prefix")
	suffix, _ := b.attr(st, el, "suffix")
	prefixOverrides, _ := b.attr(st, el, "prefixOverrides")
	suffixOverrides, _ := b.attr(st, el, "suffixOverrides")

	st.dynamic = true

	return &Trim{
		Body:            body,
		Prefix:          strings.TrimSpace(prefix),
		Suffix:          strings.TrimSpace(suffix),
		PrefixOverrides: splitOverrides(prefixOverrides),
		SuffixOverrides: splitOverrides(suffixOverrides),
	}, nil
}

// splitOverrides splits a pipe separated override list such as "AND |OR ".
func splitOverrides(value string) []string {
	if value == "" {
		return nil
	}

	var result []string

	for _, part := range strings.Split(value, "|") {
		if part != "" {
			result = append(result, part)
		}
	}

	return result
}

func (b *Builder) handleWhere(st *buildState, el *xnode.Element) (Node, error) {
	body, err := b.parseChildren(st, el)
	if err != nil {
		return nil, err
	}

	st.dynamic = true

	return NewWhere(body), nil
}

func (b *Builder) handleSet(st *buildState, el *xnode.Element) (Node, error) {
	body, err := b.parseChildren(st, el)
	if err != nil {
		return nil, err
	}

	st.dynamic = true

	return NewSet(body), nil
}

func (b *Builder) handleForEach(st *buildState, el *xnode.Element) (Node, error) {
	collection, err := b.requiredAttr(st, el, "collection")
	if err != nil {
		return nil, err
	}

	item, err := b.requiredAttr(st, el, "item")
	if err != nil {
		return nil, err
	}

	nullable := false
	if raw, ok := b.attr(st, el, "nullable"); ok {
		nullable, err = strconv.ParseBool(raw)
		if err != nil {
			return nil, st.errorf(el, ErrInvalidAttribute, "nullable=%q is not a boolean", raw)
		}
	}

	body, err := b.parseChildren(st, el)
	if err != nil {
		return nil, err
	}

	index, _ := b.attr(st, el, "index")
	open, _ := b.attr(st, el, "open")
	closeText, _ := b.attr(st, el, "close")
	separator, _ := b.attr(st, el, "separator")

	st.dynamic = true

	return &ForEach{
		Collection: collection,
		Item:       strings.TrimSpace(item),
		Index:      strings.TrimSpace(index),
		Open:       open,
		Close:      closeText,
		Separator:  separator,
		Nullable:   nullable,
		Body:       body,
	}, nil
}

func (b *Builder) handleBind(st *buildState, el *xnode.Element) (Node, error) {
	name, err := b.requiredAttr(st, el, "name")
	if err != nil {
		return nil, err
	}

	value, err := b.requiredAttr(st, el, "value")
	if err != nil {
		return nil, err
	}

	st.dynamic = true

	return &Bind{Name: strings.TrimSpace(name), Expr: value}, nil
}

// handleInclude expands a fragment in place. <property> children add
// variables visible only inside the fragment. The include itself does not
// make a template dynamic; the fragment's content decides.
func (b *Builder) handleInclude(st *buildState, el *xnode.Element) (Node, error) {
	refid, err := b.requiredAttr(st, el, "refid")
	if err != nil {
		return nil, err
	}

	if st.including[refid] {
		return nil, st.errorf(el, ErrCircularInclude, "fragment %q includes itself", refid)
	}

	if b.opts.IncludeResolver == nil {
		return nil, st.errorf(el, ErrIncompleteElement, "cannot resolve fragment %q", refid)
	}

	fragment, ok := b.opts.IncludeResolver(refid)
	if !ok {
		return nil, st.errorf(el, ErrIncompleteElement, "cannot resolve fragment %q", refid)
	}

	variables := st.variables

	properties := el.ChildElements()
	if len(properties) > 0 {
		variables = make(map[string]string, len(st.variables)+len(properties))
		maps.Copy(variables, st.variables)

		for _, prop := range properties {
			if prop.Name != "property" {
				return nil, st.errorf(prop, ErrUnknownElement, "<%s> inside <include>", prop.Name)
			}

			name, err := b.requiredAttr(st, prop, "name")
			if err != nil {
				return nil, err
			}

			value, _ := b.attr(st, prop, "value")
			variables[name] = value
		}
	}

	saved := st.variables
	st.variables = variables
	st.including[refid] = true

	body, err := b.parseChildren(st, fragment)

	delete(st.including, refid)
	st.variables = saved

	if err != nil {
		return nil, err
	}

	return body, nil
}
