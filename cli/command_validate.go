package cli

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fatih/color"

	"github.com/x19-huhr/mybatis/executor"
	"github.com/x19-huhr/mybatis/testrunner"
)

// ValidateCmd builds every statement and runs the recorded test cases
type ValidateCmd struct {
	RunPattern  string `help:"Run only test cases matching the regular expression (statement/case)" short:"r"`
	DatabaseID  string `long:"database-id" help:"Database id used to select statements and for _databaseId"`
	Execute     bool   `help:"Also execute test cases in rolled back transactions"`
	Environment string `long:"env" help:"Database environment used with --execute"`
	Timeout     string `help:"Test timeout duration" default:"10m"`
}

// Run executes the validate command
func (v *ValidateCmd) Run(ctx *Context) error {
	config, err := ctx.LoadConfig()
	if err != nil {
		return err
	}

	logger, err := ctx.Logger(config)
	if err != nil {
		return err
	}

	timeout, err := time.ParseDuration(v.Timeout)
	if err != nil {
		return fmt.Errorf("invalid timeout duration: %w", err)
	}

	var (
		db         *sql.DB
		databaseID = v.DatabaseID
	)

	if v.Execute {
		env, dbConfig, err := resolveDatabase(config, v.Environment)
		if err != nil {
			return err
		}

		if databaseID == "" {
			databaseID = dbConfig.DatabaseID
		}

		db, err = executor.Open(context.Background(), dbConfig.Driver, dbConfig.Connection, time.Duration(config.Query.Timeout)*time.Second)
		if err != nil {
			return err
		}
		defer db.Close()

		logger.WithField("env", env).Debug("connected to database")
	}

	reg, err := ctx.OpenRegistry(config, logger, databaseID)
	if err != nil {
		return err
	}

	if err := reg.BuildAll(); err != nil {
		if !ctx.Quiet {
			color.Red("Template validation failed")
		}

		return err
	}

	if ctx.Verbose {
		color.Blue("Built %d statements", len(reg.Statements()))
	}

	runner := testrunner.NewTestRunner(reg)
	runner.SetOutput(ctx.stdout())
	runner.SetVerbose(ctx.Verbose)

	if db != nil {
		runner.SetDatabase(db)
	}

	if err := runner.SetRunPattern(v.RunPattern); err != nil {
		return err
	}

	testCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	summary, err := runner.RunAllTests(testCtx)
	if err != nil {
		return fmt.Errorf("test execution failed: %w", err)
	}

	if !ctx.Quiet {
		runner.PrintSummary(summary)
	}

	if summary.FailedTests > 0 {
		return fmt.Errorf("%w: %d of %d", ErrTestsFailed, summary.FailedTests, summary.TotalTests)
	}

	return nil
}
