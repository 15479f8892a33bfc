package mybatis

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// LoadVariables merges the configured variable files in order, then the inline
// variables. Later sources win. Nested tables are flattened with dotted keys.
func (c *Config) LoadVariables() (map[string]string, error) {
	result := make(map[string]string)

	for _, path := range c.VariableFiles {
		vars, err := LoadVariableFile(path)
		if err != nil {
			return nil, err
		}

		maps.Copy(result, vars)
	}

	maps.Copy(result, c.Variables)

	return result, nil
}

// LoadVariableFile reads one property file. Supported formats are YAML, TOML and
// dotenv/properties style key=value files.
func LoadVariableFile(path string) (map[string]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read variable file %s: %w", path, err)
		}

		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse variable file %s: %w", path, err)
		}

		return flattenVariables(raw)
	case ".toml":
		var raw map[string]any
		if _, err := toml.DecodeFile(path, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse variable file %s: %w", path, err)
		}

		return flattenVariables(raw)
	case ".env", ".properties":
		vars, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("failed to parse variable file %s: %w", path, err)
		}

		return vars, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVariableFile, path)
	}
}

func flattenVariables(raw map[string]any) (map[string]string, error) {
	result := make(map[string]string, len(raw))
	if err := flattenInto(result, "", raw); err != nil {
		return nil, err
	}

	return result, nil
}

func flattenInto(dst map[string]string, prefix string, raw map[string]any) error {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		name := k
		if prefix != "" {
			name = prefix + "." + k
		}

		switch v := raw[k].(type) {
		case map[string]any:
			if err := flattenInto(dst, name, v); err != nil {
				return err
			}
		case []any:
			return fmt.Errorf("%w: %s", ErrInvalidVariableValue, name)
		case nil:
			dst[name] = ""
		default:
			dst[name] = fmt.Sprint(v)
		}
	}

	return nil
}
