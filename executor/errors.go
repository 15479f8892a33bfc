package executor

import "errors"

// Sentinel errors
var (
	ErrDatabaseConnection  = errors.New("database connection failed")
	ErrQueryExecution      = errors.New("query execution failed")
	ErrInvalidOutputFormat = errors.New("invalid output format")
	ErrDangerousQuery      = errors.New("dangerous query detected")
	ErrUnknownDriver       = errors.New("unknown database driver")
)
