package mybatis

import "errors"

// Common errors used throughout the root package
var (
	// ErrConfigValidation is returned when configuration validation fails.
	ErrConfigValidation = errors.New("configuration validation failed")
	// ErrConfigFileNotFound indicates a configuration file could not be located.
	ErrConfigFileNotFound = errors.New("configuration file not found")
	// ErrUnknownDialect indicates an unsupported dialect name.
	ErrUnknownDialect = errors.New("unknown dialect")

	// Variable errors

	// ErrUnsupportedVariableFile indicates a variable file with an unknown extension.
	ErrUnsupportedVariableFile = errors.New("unsupported variable file format")
	// ErrInvalidVariableValue indicates a variable value that is not a scalar.
	ErrInvalidVariableValue = errors.New("variable value must be a scalar")
)
