package mybatis

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// Config represents the mapper configuration
type Config struct {
	Dialect          string              `yaml:"dialect"`
	MapperDirs       []string            `yaml:"mapper_dirs"`
	Variables        map[string]string   `yaml:"variables"`
	VariableFiles    []string            `yaml:"variable_files"`
	ShrinkWhitespace bool                `yaml:"shrink_whitespace"`
	CacheSize        int                 `yaml:"cache_size"`
	Databases        map[string]Database `yaml:"databases"`
	Query            QueryConfig         `yaml:"query"`
	Log              LogConfig           `yaml:"log"`
}

// Database represents database connection configuration
type Database struct {
	Driver     string `yaml:"driver"`
	Connection string `yaml:"connection"`
	DatabaseID string `yaml:"database_id"`
}

// QueryConfig represents query execution settings
type QueryConfig struct {
	DefaultFormat         string `yaml:"default_format"`
	DefaultEnvironment    string `yaml:"default_environment"`
	Timeout               int    `yaml:"timeout"` // seconds
	MaxRows               int    `yaml:"max_rows"`
	ExecuteDangerousQuery bool   `yaml:"execute_dangerous_query"`
}

// LogConfig represents logging settings for the registry and CLI
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

const (
	defaultMapperDir   = "./mappers"
	defaultCacheSize   = 256
	defaultFormat      = "table"
	defaultEnvironment = "development"
	defaultTimeout     = 30
	defaultMaxRows     = 1000
)

var (
	outputFormats = []string{"table", "json", "csv", "yaml", "markdown"}
	logFormats    = []string{"text", "json"}
)

// LoadConfig reads configPath after loading a .env file from the working
// directory. A missing file yields the default configuration. Relative
// mapper directories and variable files are resolved against the directory
// holding the configuration file.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)

	switch {
	case errors.Is(err, fs.ErrNotExist):
		config := &Config{}
		config.complete()

		return config, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := ParseConfig(data)
	if err != nil {
		return nil, err
	}

	baseDir := filepath.Dir(configPath)
	resolveAll(config.MapperDirs, baseDir)
	resolveAll(config.VariableFiles, baseDir)

	return config, nil
}

// ParseConfig decodes, validates and completes a YAML configuration document.
// Unknown keys are rejected.
func ParseConfig(data []byte) (*Config, error) {
	var config Config

	if err := yaml.UnmarshalWithOptions(data, &config, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	config.complete()

	return &config, nil
}

// DialectValue returns the parsed dialect; the configuration has been validated already.
func (c *Config) DialectValue() Dialect {
	d, err := ParseDialect(c.Dialect)
	if err != nil {
		return DialectPostgres
	}

	return d
}

func (c *Config) validate() error {
	if c.Dialect != "" {
		if _, err := ParseDialect(c.Dialect); err != nil {
			return fmt.Errorf("%w: invalid dialect '%s': must be one of postgres, mysql, mariadb, sqlite, sqlserver", ErrConfigValidation, c.Dialect)
		}
	}

	for name, db := range c.Databases {
		if db.Driver == "" {
			return fmt.Errorf("%w: database '%s': driver is required", ErrConfigValidation, name)
		}
	}

	for key, value := range map[string]int{
		"cache_size":     c.CacheSize,
		"query.timeout":  c.Query.Timeout,
		"query.max_rows": c.Query.MaxRows,
	} {
		if value < 0 {
			return fmt.Errorf("%w: %s must be non-negative, got %d", ErrConfigValidation, key, value)
		}
	}

	if c.Query.DefaultFormat != "" && !slices.Contains(outputFormats, c.Query.DefaultFormat) {
		return fmt.Errorf("%w: query.default_format '%s' is invalid: must be one of %v", ErrConfigValidation, c.Query.DefaultFormat, outputFormats)
	}

	if c.Log.Format != "" && !slices.Contains(logFormats, c.Log.Format) {
		return fmt.Errorf("%w: log.format '%s' is invalid: must be text or json", ErrConfigValidation, c.Log.Format)
	}

	return nil
}

// complete fills unset fields with defaults and expands environment
// variables in connection settings and paths. Template variables keep their
// ${} tokens.
func (c *Config) complete() {
	c.Dialect = cmp.Or(c.Dialect, string(DialectPostgres))
	c.CacheSize = cmp.Or(c.CacheSize, defaultCacheSize)
	c.Query.DefaultFormat = cmp.Or(c.Query.DefaultFormat, defaultFormat)
	c.Query.DefaultEnvironment = cmp.Or(c.Query.DefaultEnvironment, defaultEnvironment)
	c.Query.Timeout = cmp.Or(c.Query.Timeout, defaultTimeout)
	c.Query.MaxRows = cmp.Or(c.Query.MaxRows, defaultMaxRows)
	c.Log.Level = cmp.Or(c.Log.Level, "info")
	c.Log.Format = cmp.Or(c.Log.Format, "text")

	if len(c.MapperDirs) == 0 {
		c.MapperDirs = []string{defaultMapperDir}
	}

	if c.Variables == nil {
		c.Variables = make(map[string]string)
	}

	if c.Databases == nil {
		c.Databases = make(map[string]Database)
	}

	for name, db := range c.Databases {
		db.Driver = os.ExpandEnv(db.Driver)
		db.Connection = os.ExpandEnv(db.Connection)
		c.Databases[name] = db
	}

	for i := range c.MapperDirs {
		c.MapperDirs[i] = os.ExpandEnv(c.MapperDirs[i])
	}

	for i := range c.VariableFiles {
		c.VariableFiles[i] = os.ExpandEnv(c.VariableFiles[i])
	}
}

func resolveAll(paths []string, baseDir string) {
	for i, p := range paths {
		if !filepath.IsAbs(p) {
			paths[i] = filepath.Join(baseDir, p)
		}
	}
}
