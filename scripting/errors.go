package scripting

import (
	"errors"
	"fmt"

	"github.com/x19-huhr/mybatis/evaluator"
	"github.com/x19-huhr/mybatis/tokenizer"
)

// Sentinel errors
var (
	// Build errors
	ErrUnknownElement    = errors.New("unknown element")
	ErrTooManyOtherwise  = errors.New("too many default (otherwise) elements in choose statement")
	ErrMissingAttribute  = errors.New("missing required attribute")
	ErrInvalidAttribute  = errors.New("invalid attribute value")
	ErrParameterPath     = errors.New("invalid parameter property path")
	ErrIncompleteElement = errors.New("incomplete element")
	ErrCircularInclude   = errors.New("circular include")

	// Shared with the tokenizer and evaluator packages
	ErrInvalidParameterExpression = tokenizer.ErrInvalidParameterExpression
	ErrNotIterable                = evaluator.ErrNotIterable
	ErrExpressionEvaluation       = evaluator.ErrExpressionEvaluation
)

// BuildError reports a template that cannot be built.
// Path is the element path from the template root, e.g. "select/where/if".
type BuildError struct {
	Element string
	Path    string
	Err     error
}

func (e *BuildError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("build error: %v", e.Err)
	}

	return fmt.Sprintf("build error in <%s> at %s: %v", e.Element, e.Path, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// RenderError reports a failure while rendering a dynamic template for one call.
type RenderError struct {
	Node string
	Err  error
}

func (e *RenderError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("render error: %v", e.Err)
	}

	return fmt.Sprintf("render error in %s: %v", e.Node, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

func renderErrorf(node string, err error, format string, args ...any) error {
	return &RenderError{Node: node, Err: fmt.Errorf("%w: "+format, append([]any{err}, args...)...)}
}
