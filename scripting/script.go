package scripting

import (
	"strings"

	"github.com/x19-huhr/mybatis/xnode"
)

const scriptOpen = "<script>"

// CompileScript builds a template from a string. A string starting with
// <script> is parsed as XML with the usual directives; any other string is
// a single text node, dynamic only when ${} placeholders remain after
// variable substitution.
func CompileScript(script string, opts BuilderOptions) (SQLSource, error) {
	trimmed := strings.TrimSpace(script)

	if strings.HasPrefix(trimmed, scriptOpen) {
		root, err := xnode.ParseString(trimmed)
		if err != nil {
			return nil, &BuildError{Element: "script", Path: "script", Err: err}
		}

		return NewBuilder(opts).Build(root)
	}

	return NewBuilder(opts).Build(xnode.El("script", nil, xnode.T(script)))
}
