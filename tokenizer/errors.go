package tokenizer

import "errors"

// Sentinel errors
var (
	// ErrInvalidParameterExpression indicates a malformed #{} bind placeholder.
	ErrInvalidParameterExpression = errors.New("invalid parameter expression")
)
