package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// loadParameters reads a JSON or YAML parameter file and applies key=value
// overrides on top of it.
func loadParameters(paramsFile string, overrides []string) (map[string]any, error) {
	params := make(map[string]any)

	if paramsFile != "" {
		data, err := os.ReadFile(paramsFile)
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrParametersFileNotFound, paramsFile)
		} else if err != nil {
			return nil, fmt.Errorf("failed to read parameters file: %w", err)
		}

		switch ext := strings.ToLower(filepath.Ext(paramsFile)); ext {
		case ".json", ".yaml", ".yml":
			// JSON documents are valid YAML
			if err := yaml.Unmarshal(data, &params); err != nil {
				return nil, fmt.Errorf("failed to parse parameters file %s: %w", paramsFile, err)
			}
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedParamsFormat, ext)
		}

		if params == nil {
			params = make(map[string]any)
		}
	}

	for _, param := range overrides {
		key, value, ok := strings.Cut(param, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: parameter must be in key=value format: %s", ErrInvalidParams, param)
		}

		v, err := parseParamValue(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidParams, key, err)
		}

		params[key] = v
	}

	return params, nil
}

// parseParamValue converts a command line value. Objects and arrays are
// parsed as JSON, then booleans, null and numbers are recognized, and
// anything else stays a string.
func parseParamValue(value string) (any, error) {
	trimmed := strings.TrimSpace(value)

	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") ||
		strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		var v any
		if err := yaml.Unmarshal([]byte(trimmed), &v); err != nil {
			return nil, err
		}

		return v, nil
	}

	switch value {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null":
		return nil, nil
	}

	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return i, nil
	}

	if f, err := strconv.ParseFloat(value, 64); err == nil && strings.Contains(value, ".") {
		return f, nil
	}

	return value, nil
}
