package evaluator

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/ext"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/x19-huhr/mybatis/explang"
)

// DefaultProgramCacheSize is the number of compiled expressions kept by NewCEL.
const DefaultProgramCacheSize = 512

// celKeywords are parsed as identifiers by explang but mean literals in CEL.
var celKeywords = map[string]bool{
	"true":  true,
	"false": true,
	"null":  true,
}

type compiled struct {
	program     cel.Program
	identifiers []string
}

// CEL evaluates expressions with google/cel-go. Every free identifier of an
// expression is declared as dyn and bound from the Scope; identifiers the
// scope does not know are bound to null. Plain property paths such as
// user.roles[0] are resolved directly so Go values keep their types.
// CEL is safe for concurrent use.
type CEL struct {
	env      *cel.Env
	programs *lru.Cache[string, *compiled]
}

// CELOption configures a CEL evaluator.
type CELOption func(*celOptions)

type celOptions struct {
	cacheSize int
	envOpts   []cel.EnvOption
}

// WithProgramCacheSize sets how many compiled programs are kept.
func WithProgramCacheSize(size int) CELOption {
	return func(o *celOptions) {
		o.cacheSize = size
	}
}

// WithEnvOptions adds CEL environment options such as extra functions.
func WithEnvOptions(opts ...cel.EnvOption) CELOption {
	return func(o *celOptions) {
		o.envOpts = append(o.envOpts, opts...)
	}
}

// NewCEL creates a CEL evaluator.
func NewCEL(opts ...CELOption) (*CEL, error) {
	options := celOptions{cacheSize: DefaultProgramCacheSize}
	for _, opt := range opts {
		opt(&options)
	}

	if options.cacheSize <= 0 {
		options.cacheSize = DefaultProgramCacheSize
	}

	envOpts := append([]cel.EnvOption{ext.Strings()}, options.envOpts...)

	env, err := cel.NewEnv(envOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	programs, err := lru.New[string, *compiled](options.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create program cache: %w", err)
	}

	return &CEL{env: env, programs: programs}, nil
}

// MustNewCEL is like NewCEL but panics on error.
func MustNewCEL(opts ...CELOption) *CEL {
	e, err := NewCEL(opts...)
	if err != nil {
		panic(err)
	}

	return e
}

// EvaluateBoolean evaluates expr and applies Truthy to the result.
func (e *CEL) EvaluateBoolean(expr string, scope Scope) (bool, error) {
	value, err := e.EvaluateValue(expr, scope)
	if err != nil {
		return false, err
	}

	return Truthy(value), nil
}

// EvaluateValue evaluates expr and returns a plain Go value.
func (e *CEL) EvaluateValue(expr string, scope Scope) (any, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrExpressionEvaluation)
	}

	if steps, err := explang.ParsePath(trimmed); err == nil && !celKeywords[steps[0].Identifier] {
		return resolvePath(steps, scope, trimmed)
	}

	prg, err := e.compile(trimmed)
	if err != nil {
		return nil, err
	}

	activation := make(map[string]any, len(prg.identifiers))

	for _, name := range prg.identifiers {
		value, ok := scope.Lookup(name)
		if !ok {
			activation[name] = types.NullValue
			continue
		}

		activation[name] = toCEL(value)
	}

	result, _, err := prg.program.Eval(activation)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrExpressionEvaluation, expr, err)
	}

	return fromCEL(result), nil
}

// EvaluateIterable evaluates expr and lists its elements.
func (e *CEL) EvaluateIterable(expr string, scope Scope) ([]Entry, error) {
	value, err := e.EvaluateValue(expr, scope)
	if err != nil {
		return nil, err
	}

	entries, err := Entries(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, expr)
	}

	return entries, nil
}

func resolvePath(steps []explang.Step, scope Scope, expr string) (any, error) {
	root, ok := scope.Lookup(steps[0].Identifier)
	if !ok {
		return nil, nil
	}

	value, err := explang.Resolve(root, steps[1:])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrExpressionEvaluation, expr, err)
	}

	return value, nil
}

func (e *CEL) compile(expr string) (*compiled, error) {
	normalized := NormalizeExpression(expr)

	if prg, ok := e.programs.Get(normalized); ok {
		return prg, nil
	}

	parsed, issues := e.env.Parse(normalized)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrExpressionEvaluation, expr, issues.Err())
	}

	identifiers, err := freeIdentifiers(parsed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrExpressionEvaluation, expr, err)
	}

	decls := make([]cel.EnvOption, 0, len(identifiers))
	for _, name := range identifiers {
		decls = append(decls, cel.Variable(name, cel.DynType))
	}

	env, err := e.env.Extend(decls...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrExpressionEvaluation, expr, err)
	}

	checked, issues := env.Compile(normalized)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrExpressionEvaluation, expr, issues.Err())
	}

	program, err := env.Program(checked)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrExpressionEvaluation, expr, err)
	}

	prg := &compiled{program: program, identifiers: identifiers}
	e.programs.Add(normalized, prg)

	return prg, nil
}

var _ Evaluator = (*CEL)(nil)
