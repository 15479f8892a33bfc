package mybatis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestParseConfig(t *testing.T) {
	data := []byte(`
dialect: mysql
mapper_dirs:
  - ./sql
variables:
  schema: app
shrink_whitespace: true
databases:
  development:
    driver: mysql
    connection: "user:pass@tcp(localhost:3306)/app"
query:
  default_format: json
`)

	config, err := ParseConfig(data)
	assert.NoError(t, err)
	assert.Equal(t, "mysql", config.Dialect)
	assert.Equal(t, DialectMySQL, config.DialectValue())
	assert.Equal(t, []string{"./sql"}, config.MapperDirs)
	assert.Equal(t, "app", config.Variables["schema"])
	assert.True(t, config.ShrinkWhitespace)
	assert.Equal(t, "json", config.Query.DefaultFormat)
	assert.Equal(t, 30, config.Query.Timeout)
	assert.Equal(t, 256, config.CacheSize)
	assert.Equal(t, "info", config.Log.Level)
}

func TestParseConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"invalid dialect", "dialect: oracle\n"},
		{"negative timeout", "query:\n  timeout: -1\n"},
		{"negative max rows", "query:\n  max_rows: -5\n"},
		{"invalid format", "query:\n  default_format: xml\n"},
		{"missing driver", "databases:\n  dev:\n    connection: x\n"},
		{"invalid log format", "log:\n  format: xml\n"},
		{"negative cache size", "cache_size: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			assert.Error(t, err)
			assert.IsError(t, err, ErrConfigValidation)
		})
	}
}

func TestParseConfig_UnknownField(t *testing.T) {
	_, err := ParseConfig([]byte("dialekt: mysql\n"))
	assert.Error(t, err)
}

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.NoError(t, err)
	assert.Equal(t, "postgres", config.Dialect)
	assert.Equal(t, []string{"./mappers"}, config.MapperDirs)
	assert.Equal(t, 1000, config.Query.MaxRows)
}

func TestLoadConfig_ExpandsEnvironment(t *testing.T) {
	t.Setenv("MB_TEST_DSN", "file:test.db")

	path := filepath.Join(t.TempDir(), "mybatis.yaml")
	err := os.WriteFile(path, []byte("dialect: sqlite\ndatabases:\n  development:\n    driver: sqlite3\n    connection: ${MB_TEST_DSN}\n"), 0o600)
	assert.NoError(t, err)

	config, err := LoadConfig(path)
	assert.NoError(t, err)
	assert.Equal(t, "file:test.db", config.Databases["development"].Connection)
}

func TestLoadConfig_ResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(dir, "elsewhere")

	path := filepath.Join(dir, "mybatis.yaml")
	err := os.WriteFile(path, []byte("mapper_dirs: [mappers, "+abs+"]\nvariable_files: [vars.env]\n"), 0o600)
	assert.NoError(t, err)

	config, err := LoadConfig(path)
	assert.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "mappers"), abs}, config.MapperDirs)
	assert.Equal(t, []string{filepath.Join(dir, "vars.env")}, config.VariableFiles)
}

func TestDialect_Placeholder(t *testing.T) {
	tests := []struct {
		dialect  Dialect
		n        int
		expected string
	}{
		{DialectPostgres, 1, "$1"},
		{DialectPostgres, 12, "$12"},
		{DialectMySQL, 3, "?"},
		{DialectSQLite, 1, "?"},
		{DialectSQLServer, 2, "@p2"},
	}

	for _, tt := range tests {
		t.Run(string(tt.dialect), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.dialect.Placeholder(tt.n))
		})
	}
}

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect("PostgreSQL")
	assert.NoError(t, err)
	assert.Equal(t, DialectPostgres, d)

	d, err = ParseDialect("sqlite3")
	assert.NoError(t, err)
	assert.Equal(t, DialectSQLite, d)
	assert.Equal(t, "sqlite3", d.DriverName())

	_, err = ParseDialect("db2")
	assert.IsError(t, err, ErrUnknownDialect)
}
