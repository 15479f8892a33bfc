// Package executor runs rendered statements against database/sql
// connections and formats their results.
package executor

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/x19-huhr/mybatis/scripting"
)

// DBExecutor is implemented by *sql.DB, *sql.Tx and *sql.Conn.
type DBExecutor interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var (
	_ DBExecutor = (*sql.DB)(nil)
	_ DBExecutor = (*sql.Tx)(nil)
	_ DBExecutor = (*sql.Conn)(nil)
)

// Options controls statement execution.
type Options struct {
	// Timeout bounds each call when positive.
	Timeout time.Duration
	// MaxRows stops reading a result set after this many rows when positive.
	MaxRows int
	// ExecuteDangerousQuery allows DELETE and UPDATE without WHERE.
	ExecuteDangerousQuery bool
}

// QueryResult is a fully read result set.
type QueryResult struct {
	SQL        string        `json:"sql"`
	Parameters []any         `json:"parameters"`
	Duration   time.Duration `json:"duration"`

	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	Count     int      `json:"count"`
	Truncated bool     `json:"truncated,omitempty"`
}

// ExecResult is the outcome of a statement without a result set.
type ExecResult struct {
	SQL          string        `json:"sql"`
	Parameters   []any         `json:"parameters"`
	Duration     time.Duration `json:"duration"`
	RowsAffected int64         `json:"rows_affected"`
}

// Executor runs rendered statements.
type Executor struct {
	db   DBExecutor
	opts Options
}

// New creates an Executor on db.
func New(db DBExecutor, opts Options) *Executor {
	return &Executor{db: db, opts: opts}
}

var (
	leadingKeyword = regexp.MustCompile(`^\s*(?i:(delete|update))\b`)
	whereKeyword   = regexp.MustCompile(`(?i)\bwhere\b`)
)

// IsDangerousQuery reports DELETE and UPDATE statements without a WHERE clause.
func IsDangerousQuery(query string) bool {
	return leadingKeyword.MatchString(query) && !whereKeyword.MatchString(query)
}

func (e *Executor) check(bound *scripting.BoundSQL) error {
	if IsDangerousQuery(bound.SQL) && !e.opts.ExecuteDangerousQuery {
		return fmt.Errorf("%w: query contains DELETE/UPDATE without WHERE clause. Use --dangerous to execute anyway", ErrDangerousQuery)
	}

	return nil
}

func (e *Executor) context(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.opts.Timeout > 0 {
		return context.WithTimeout(ctx, e.opts.Timeout)
	}

	return ctx, func() {}
}

// Query runs bound and reads its rows.
func (e *Executor) Query(ctx context.Context, bound *scripting.BoundSQL) (*QueryResult, error) {
	if err := e.check(bound); err != nil {
		return nil, err
	}

	ctx, cancel := e.context(ctx)
	defer cancel()

	args := bound.Args()

	startTime := time.Now()

	rows, err := e.db.QueryContext(ctx, bound.SQL, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryExecution, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get column names: %w", err)
	}

	result := &QueryResult{
		SQL:        bound.SQL,
		Parameters: args,
		Columns:    columns,
	}

	values := make([]any, len(columns))
	scanArgs := make([]any, len(columns))

	for i := range values {
		scanArgs[i] = &values[i]
	}

	for rows.Next() {
		if e.opts.MaxRows > 0 && len(result.Rows) >= e.opts.MaxRows {
			result.Truncated = true
			break
		}

		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make([]any, len(columns))
		for i, v := range values {
			row[i] = convertSQLValue(v)
		}

		result.Rows = append(result.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryExecution, err)
	}

	result.Count = len(result.Rows)
	result.Duration = time.Since(startTime)

	return result, nil
}

// Exec runs bound as a statement without a result set.
func (e *Executor) Exec(ctx context.Context, bound *scripting.BoundSQL) (*ExecResult, error) {
	if err := e.check(bound); err != nil {
		return nil, err
	}

	ctx, cancel := e.context(ctx)
	defer cancel()

	args := bound.Args()

	startTime := time.Now()

	res, err := e.db.ExecContext(ctx, bound.SQL, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryExecution, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		affected = -1
	}

	return &ExecResult{
		SQL:          bound.SQL,
		Parameters:   args,
		Duration:     time.Since(startTime),
		RowsAffected: affected,
	}, nil
}

// convertSQLValue turns driver byte slices into strings, or into decoded
// values when they hold a JSON object or array.
func convertSQLValue(v any) any {
	value, ok := v.([]byte)
	if !ok {
		return v
	}

	str := string(value)
	trimmed := strings.TrimSpace(str)

	if len(trimmed) >= 2 && (trimmed[0] == '{' && trimmed[len(trimmed)-1] == '}' || trimmed[0] == '[' && trimmed[len(trimmed)-1] == ']') {
		var decoded any
		if err := json.Unmarshal(value, &decoded); err == nil {
			return decoded
		}
	}

	return str
}
