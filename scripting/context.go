package scripting

import (
	"github.com/x19-huhr/mybatis/evaluator"
	"github.com/x19-huhr/mybatis/explang"
)

// Built-in names visible in every render.
const (
	ParameterObjectKey = "_parameter"
	DatabaseIDKey      = "_databaseId"
	// scalarValueKey exposes a scalar parameter object in ${} placeholders.
	scalarValueKey = "value"
)

// Binding is one named value accumulated while rendering, such as a foreach
// item or a bind result. Bind parameters are resolved against bindings first.
type Binding struct {
	Name  string
	Value any
}

// DynamicContext is the per-call render state: bindings, scope chain and a
// counter for unique foreach names. It is never shared between calls.
type DynamicContext struct {
	param      any
	databaseID string
	eval       evaluator.Evaluator

	// scopes[0] is the root scope for top-level bind; foreach pushes one
	// scope per iteration above it
	scopes       []map[string]any
	bindings     []Binding
	bindingIndex map[string]int
	unique       int
}

// NewDynamicContext creates a fresh context for one render call.
func NewDynamicContext(param any, databaseID string, eval evaluator.Evaluator) *DynamicContext {
	return &DynamicContext{
		param:        param,
		databaseID:   databaseID,
		eval:         eval,
		scopes:       []map[string]any{{}},
		bindingIndex: make(map[string]int),
	}
}

// Lookup implements evaluator.Scope. Names are searched from the innermost
// scope outwards, then the built-ins, then the parameter object.
func (c *DynamicContext) Lookup(name string) (any, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if v, ok := c.scopes[i][name]; ok {
			return v, true
		}
	}

	switch name {
	case ParameterObjectKey:
		return c.param, true
	case DatabaseIDKey:
		return c.databaseID, true
	}

	if c.param == nil {
		return nil, false
	}

	if explang.IsObject(c.param) {
		return explang.Property(c.param, name)
	}

	if name == scalarValueKey {
		return c.param, true
	}

	return nil, false
}

// Bind sets name in the innermost scope and records it as a binding.
func (c *DynamicContext) Bind(name string, value any) {
	c.scopes[len(c.scopes)-1][name] = value
	c.addBinding(name, value)
}

// Bindings returns the accumulated bindings in the order they were added.
func (c *DynamicContext) Bindings() []Binding {
	return c.bindings
}

// Binding returns the accumulated binding called name.
func (c *DynamicContext) Binding(name string) (any, bool) {
	idx, ok := c.bindingIndex[name]
	if !ok {
		return nil, false
	}

	return c.bindings[idx].Value, true
}

func (c *DynamicContext) addBinding(name string, value any) {
	if idx, ok := c.bindingIndex[name]; ok {
		c.bindings[idx].Value = value
		return
	}

	c.bindingIndex[name] = len(c.bindings)
	c.bindings = append(c.bindings, Binding{Name: name, Value: value})
}

func (c *DynamicContext) pushScope(vars map[string]any) {
	c.scopes = append(c.scopes, vars)
}

func (c *DynamicContext) popScope() {
	c.scopes = c.scopes[:len(c.scopes)-1]
}

func (c *DynamicContext) nextUnique() int {
	n := c.unique
	c.unique++

	return n
}

var _ evaluator.Scope = (*DynamicContext)(nil)
