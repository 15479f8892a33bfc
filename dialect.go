package mybatis

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect represents supported database dialects
// This type is shared across all packages
type Dialect string

const (
	DialectPostgres  Dialect = "postgres"
	DialectMySQL     Dialect = "mysql"
	DialectSQLite    Dialect = "sqlite"
	DialectMariaDB   Dialect = "mariadb"
	DialectSQLServer Dialect = "sqlserver"
)

// ParseDialect normalizes dialect aliases such as "postgresql" or "sqlite3".
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	case "mysql":
		return DialectMySQL, nil
	case "mariadb":
		return DialectMariaDB, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "sqlserver", "mssql":
		return DialectSQLServer, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDialect, name)
	}
}

// Placeholder returns the bind marker for the n-th (1-based) parameter.
func (d Dialect) Placeholder(n int) string {
	switch d {
	case DialectPostgres:
		return "$" + strconv.Itoa(n)
	case DialectSQLServer:
		return "@p" + strconv.Itoa(n)
	default:
		return "?"
	}
}

// DriverName returns the database/sql driver name registered for the dialect.
func (d Dialect) DriverName() string {
	switch d {
	case DialectPostgres:
		return "pgx"
	case DialectMySQL, DialectMariaDB:
		return "mysql"
	case DialectSQLite:
		return "sqlite3"
	case DialectSQLServer:
		return "sqlserver"
	default:
		return string(d)
	}
}
