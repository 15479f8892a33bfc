// Package testrunner runs the test cases recorded in markdown query
// documents against a registry and, optionally, a database.
package testrunner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/x19-huhr/mybatis/executor"
	"github.com/x19-huhr/mybatis/mapper"
	"github.com/x19-huhr/mybatis/registry"
	"github.com/x19-huhr/mybatis/scripting"
)

var (
	ErrSQLMismatch     = errors.New("sql mismatch")
	ErrArgsMismatch    = errors.New("args mismatch")
	ErrUnexpectedError = errors.New("unexpected error type")
	ErrMissingError    = errors.New("expected error did not occur")
)

var (
	passFmt = color.New(color.FgGreen).SprintFunc()
	failFmt = color.New(color.FgRed).SprintFunc()
	skipFmt = color.New(color.FgYellow).SprintFunc()
	nameFmt = color.New(color.Bold).SprintFunc()
)

// TestRunner runs markdown test cases
type TestRunner struct {
	registry   *registry.Registry
	db         *sql.DB
	verbose    bool
	runPattern *regexp.Regexp
	output     io.Writer
}

// TestResult represents the result of a single test case
type TestResult struct {
	Statement string
	TestName  string
	File      string
	Success   bool
	Skipped   bool
	Duration  time.Duration
	SQL       string
	Args      []any
	Error     error
}

// TestSummary represents the overall test execution summary
type TestSummary struct {
	TotalTests    int
	PassedTests   int
	FailedTests   int
	SkippedTests  int
	TotalDuration time.Duration
	Results       []TestResult
}

// NewTestRunner creates a runner over the statements of reg.
func NewTestRunner(reg *registry.Registry) *TestRunner {
	return &TestRunner{
		registry: reg,
		output:   os.Stdout,
	}
}

// SetVerbose enables or disables per case output
func (tr *TestRunner) SetVerbose(verbose bool) {
	tr.verbose = verbose
}

// SetOutput redirects progress and summary output.
func (tr *TestRunner) SetOutput(w io.Writer) {
	tr.output = w
}

// SetDatabase makes the runner execute every case inside a transaction
// that is rolled back afterwards.
func (tr *TestRunner) SetDatabase(db *sql.DB) {
	tr.db = db
}

// SetRunPattern sets the filter matched against "statement/case".
func (tr *TestRunner) SetRunPattern(pattern string) error {
	if pattern == "" {
		tr.runPattern = nil
		return nil
	}

	regex, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid run pattern: %w", err)
	}

	tr.runPattern = regex

	return nil
}

// RunAllTests runs every matching test case. Failures are reported in
// the summary, not as an error.
func (tr *TestRunner) RunAllTests(ctx context.Context) (*TestSummary, error) {
	summary := &TestSummary{}
	startTime := time.Now()

	for _, stmt := range tr.registry.Statements() {
		for _, tc := range stmt.TestCases {
			if tr.runPattern != nil && !tr.runPattern.MatchString(stmt.FullID()+"/"+tc.Name) {
				continue
			}

			if err := ctx.Err(); err != nil {
				return nil, err
			}

			if tr.verbose {
				fmt.Fprintf(tr.output, "=== RUN   %s/%s\n", stmt.FullID(), tc.Name)
			}

			result := tr.runTestCase(ctx, stmt, tc)
			summary.Results = append(summary.Results, result)
			summary.TotalTests++

			switch {
			case result.Skipped:
				summary.SkippedTests++

				if tr.verbose {
					fmt.Fprintf(tr.output, "--- %s: %s/%s (needs a database)\n", skipFmt("SKIP"), stmt.FullID(), tc.Name)
				}
			case result.Success:
				summary.PassedTests++

				if tr.verbose {
					fmt.Fprintf(tr.output, "--- %s: %s/%s (%.3fs)\n", passFmt("PASS"), stmt.FullID(), tc.Name, result.Duration.Seconds())
				}
			default:
				summary.FailedTests++

				if tr.verbose {
					fmt.Fprintf(tr.output, "--- %s: %s/%s (%.3fs)\n", failFmt("FAIL"), stmt.FullID(), tc.Name, result.Duration.Seconds())
					fmt.Fprintf(tr.output, "    Error: %v\n", result.Error)
				}
			}
		}
	}

	summary.TotalDuration = time.Since(startTime)

	return summary, nil
}

func (tr *TestRunner) runTestCase(ctx context.Context, stmt *mapper.Statement, tc mapper.TestCase) TestResult {
	startTime := time.Now()

	result := TestResult{
		Statement: stmt.FullID(),
		TestName:  tc.Name,
		File:      stmt.File,
	}

	result.Error = tr.check(ctx, stmt, tc, &result)
	result.Success = result.Error == nil && !result.Skipped
	result.Duration = time.Since(startTime)

	return result
}

func (tr *TestRunner) check(ctx context.Context, stmt *mapper.Statement, tc mapper.TestCase, result *TestResult) error {
	src, err := tr.registry.Source(stmt)
	if err != nil {
		return err
	}

	bound, err := scripting.RenderContext(ctx, src, stmt.FullID(), tc.Params)
	if err != nil {
		return err
	}

	result.SQL = bound.SQL
	result.Args = bound.Args()

	if tc.ExpectedSQL != "" && normalizeSQL(tc.ExpectedSQL) != normalizeSQL(bound.SQL) {
		return fmt.Errorf("%w:\n  expected: %s\n  actual:   %s", ErrSQLMismatch, normalizeSQL(tc.ExpectedSQL), normalizeSQL(bound.SQL))
	}

	if tc.ExpectedArgs != nil && !equalArgs(tc.ExpectedArgs, result.Args) {
		return fmt.Errorf("%w:\n  expected: %v\n  actual:   %v", ErrArgsMismatch, tc.ExpectedArgs, result.Args)
	}

	if tr.db == nil {
		// expected errors can only be checked against a database
		result.Skipped = tc.ExpectedError != ""

		return nil
	}

	return tr.execute(ctx, stmt, tc, bound)
}

// execute runs bound in a transaction that is always rolled back.
func (tr *TestRunner) execute(ctx context.Context, stmt *mapper.Statement, tc mapper.TestCase, bound *scripting.BoundSQL) error {
	var expected executor.ErrorType

	if tc.ExpectedError != "" {
		var err error

		expected, err = executor.ParseErrorType(tc.ExpectedError)
		if err != nil {
			return err
		}
	}

	tx, err := tr.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", executor.ErrDatabaseConnection, err)
	}
	defer tx.Rollback() //nolint:errcheck

	exec := executor.New(tx, executor.Options{ExecuteDangerousQuery: true})

	if stmt.Kind == mapper.KindSelect {
		_, err = exec.Query(ctx, bound)
	} else {
		_, err = exec.Exec(ctx, bound)
	}

	switch {
	case expected == "" && err != nil:
		return err
	case expected == "":
		return nil
	case err == nil:
		return fmt.Errorf("%w: %s", ErrMissingError, expected)
	case executor.ClassifyError(err) != expected:
		return fmt.Errorf("%w: expected %s, got %w", ErrUnexpectedError, expected, err)
	default:
		return nil
	}
}

func normalizeSQL(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func equalArgs(expected, actual []any) bool {
	return slices.EqualFunc(expected, actual, equalArg)
}

// equalArg compares numbers by value so YAML integers match Go ints.
func equalArg(expected, actual any) bool {
	ef, eok := toFloat(expected)
	af, aok := toFloat(actual)

	if eok && aok {
		return ef == af
	}

	return reflect.DeepEqual(expected, actual)
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

// PrintSummary prints the test execution summary
func (tr *TestRunner) PrintSummary(summary *TestSummary) {
	fmt.Fprintf(tr.output, "\n")
	fmt.Fprintf(tr.output, "=== Test Summary ===\n")
	fmt.Fprintf(tr.output, "Tests: %d total, %d passed, %d failed, %d skipped\n",
		summary.TotalTests, summary.PassedTests, summary.FailedTests, summary.SkippedTests)
	fmt.Fprintf(tr.output, "Duration: %.3fs\n", summary.TotalDuration.Seconds())

	if summary.FailedTests > 0 {
		fmt.Fprintf(tr.output, "\nFailed tests:\n")

		for _, result := range summary.Results {
			if !result.Success {
				fmt.Fprintf(tr.output, "  %s/%s (%s)\n", nameFmt(result.Statement), result.TestName, result.File)

				if result.Error != nil {
					fmt.Fprintf(tr.output, "    Error: %v\n", result.Error)
				}
			}
		}
	}

	if summary.FailedTests == 0 {
		fmt.Fprintf(tr.output, "\n%s\n", passFmt("All tests passed! ✅"))
	} else {
		fmt.Fprintf(tr.output, "\n%s\n", failFmt("Some tests failed! ❌"))
	}
}
