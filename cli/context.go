// Package cli implements the mybatis command line commands.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/x19-huhr/mybatis"
	"github.com/x19-huhr/mybatis/registry"
)

// DefaultConfigFile is used when --config is not given.
const DefaultConfigFile = "mybatis.yaml"

var (
	ErrInvalidParams              = errors.New("invalid parameters")
	ErrParametersFileNotFound     = errors.New("parameters file not found")
	ErrUnsupportedParamsFormat    = errors.New("unsupported parameters file format")
	ErrEnvironmentNotFound        = errors.New("environment not found in config")
	ErrDefaultEnvironmentNotFound = errors.New("default environment not found in config")
	ErrOutputFileCreation         = errors.New("failed to create output file")
	ErrTestsFailed                = errors.New("test cases failed")
)

// Context represents the global context for commands
type Context struct {
	Config  string
	Verbose bool
	Quiet   bool

	// Stdout receives command output. Nil means os.Stdout.
	Stdout io.Writer
}

func (c *Context) stdout() io.Writer {
	if c.Stdout == nil {
		return os.Stdout
	}

	return c.Stdout
}

// LoadConfig loads the configuration file. A missing default file yields
// the default configuration; a missing explicit file is an error.
func (c *Context) LoadConfig() (*mybatis.Config, error) {
	path := c.Config
	if path == "" {
		path = DefaultConfigFile
	}

	if path != DefaultConfigFile {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", mybatis.ErrConfigFileNotFound, path)
		}
	}

	config, err := mybatis.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return config, nil
}

// Logger builds a logrus logger from the log settings. --verbose forces
// debug level and --quiet keeps only errors.
func (c *Context) Logger(config *mybatis.Config) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(config.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	switch {
	case c.Verbose:
		level = logrus.DebugLevel
	case c.Quiet:
		level = logrus.ErrorLevel
	}

	logger.SetLevel(level)

	if config.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}

	return logger, nil
}

// OpenRegistry creates a registry and loads the configured mapper
// directories. databaseID overrides the configured one when not empty.
func (c *Context) OpenRegistry(config *mybatis.Config, logger logrus.FieldLogger, databaseID string, opts ...registry.Option) (*registry.Registry, error) {
	opts = append([]registry.Option{registry.WithLogger(logger)}, opts...)
	if databaseID != "" {
		opts = append(opts, registry.WithDatabaseID(databaseID))
	}

	reg, err := registry.New(config, opts...)
	if err != nil {
		return nil, err
	}

	for _, dir := range config.MapperDirs {
		if err := reg.LoadDir(dir); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

// resolveDatabase picks the named environment, or the default one.
func resolveDatabase(config *mybatis.Config, env string) (string, mybatis.Database, error) {
	if env != "" {
		db, ok := config.Databases[env]
		if !ok {
			return "", mybatis.Database{}, fmt.Errorf("%w: %s", ErrEnvironmentNotFound, env)
		}

		return env, db, nil
	}

	env = config.Query.DefaultEnvironment

	db, ok := config.Databases[env]
	if !ok {
		return "", mybatis.Database{}, fmt.Errorf("%w: %s", ErrDefaultEnvironmentNotFound, env)
	}

	return env, db, nil
}
