package registry

import "errors"

// Sentinel errors
var (
	ErrStatementNotFound  = errors.New("statement not found")
	ErrAmbiguousStatement = errors.New("ambiguous statement id")
	ErrDuplicateStatement = errors.New("duplicate statement")
)
