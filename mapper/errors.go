package mapper

import (
	"errors"

	"github.com/x19-huhr/mybatis/scripting"
)

// Sentinel errors
var (
	ErrMissingAttribute   = scripting.ErrMissingAttribute
	ErrUnknownElement     = scripting.ErrUnknownElement
	ErrDuplicateStatement = errors.New("duplicate statement")
	ErrDuplicateFragment  = errors.New("duplicate sql fragment")
	ErrNotMapper          = errors.New("document root is not <mapper>")
	ErrInvalidFrontMatter = errors.New("invalid front matter")
	ErrMissingSQLSection  = errors.New("missing SQL section")
	ErrInvalidTestCase    = errors.New("invalid test case")
	ErrUnsupportedFile    = errors.New("unsupported mapper file")
)
