package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/x19-huhr/mybatis/executor"
	"github.com/x19-huhr/mybatis/mapper"
	"github.com/x19-huhr/mybatis/scripting"
)

// QueryCmd renders a statement and executes it
type QueryCmd struct {
	ID                    string   `arg:"" help:"Statement id (namespace.id, or an id unique across namespaces)"`
	ParamsFile            string   `short:"P" long:"params" help:"Parameters file (JSON/YAML)" type:"path"`
	Param                 []string `short:"p" long:"param" help:"Individual parameter (key=value format)"`
	Environment           string   `long:"env" help:"Environment name from config"`
	Format                string   `long:"format" help:"Output format (table, json, csv, yaml, markdown)"`
	OutputFile            string   `short:"o" long:"output" help:"Output file (defaults to stdout)" type:"path"`
	Timeout               int      `long:"timeout" help:"Query timeout in seconds"`
	MaxRows               int      `long:"max-rows" help:"Maximum number of rows to read"`
	ExecuteDangerousQuery bool     `long:"execute-dangerous-query" help:"Execute DELETE/UPDATE queries without WHERE clause (dangerous!)"`
	DryRun                bool     `long:"dry-run" help:"Show generated SQL without executing"`
}

// Run executes the query command
func (q *QueryCmd) Run(ctx *Context) error {
	config, err := ctx.LoadConfig()
	if err != nil {
		return err
	}

	logger, err := ctx.Logger(config)
	if err != nil {
		return err
	}

	format := q.Format
	if format == "" {
		format = config.Query.DefaultFormat
	}

	outputFormat, err := executor.ParseOutputFormat(format)
	if err != nil {
		return err
	}

	params, err := loadParameters(q.ParamsFile, q.Param)
	if err != nil {
		return err
	}

	env, dbConfig, err := resolveDatabase(config, q.Environment)
	if err != nil && !q.DryRun {
		return err
	}

	reg, err := ctx.OpenRegistry(config, logger, dbConfig.DatabaseID)
	if err != nil {
		return err
	}

	stmt, err := reg.Statement(q.ID)
	if err != nil {
		return err
	}

	renderCtx := scripting.WithLogger(context.Background(), func(_ context.Context, entry scripting.RenderLogEntry) {
		logger.WithFields(logrus.Fields{
			"template": entry.TemplateID,
			"sql":      entry.SQL,
			"args":     entry.Args,
			"duration": entry.Duration,
		}).Debug("query rendered")
	})

	bound, err := reg.Render(renderCtx, stmt.FullID(), params)
	if err != nil {
		return err
	}

	if q.DryRun {
		return writeRendered(ctx.stdout(), "text", stmt.FullID(), bound)
	}

	timeout := q.Timeout
	if timeout == 0 {
		timeout = config.Query.Timeout
	}

	maxRows := q.MaxRows
	if maxRows == 0 {
		maxRows = config.Query.MaxRows
	}

	db, err := executor.Open(context.Background(), dbConfig.Driver, dbConfig.Connection, time.Duration(timeout)*time.Second)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.WithField("env", env).Debug("connected to database")

	exec := executor.New(db, executor.Options{
		Timeout:               time.Duration(timeout) * time.Second,
		MaxRows:               maxRows,
		ExecuteDangerousQuery: q.ExecuteDangerousQuery || config.Query.ExecuteDangerousQuery,
	})

	output := ctx.stdout()

	if q.OutputFile != "" {
		file, err := os.Create(q.OutputFile)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrOutputFileCreation, err)
		}
		defer file.Close()

		output = file
	}

	return q.execute(ctx, exec, stmt, bound, executor.NewFormatter(outputFormat), output)
}

func (q *QueryCmd) execute(ctx *Context, exec *executor.Executor, stmt *mapper.Statement, bound *scripting.BoundSQL, formatter *executor.Formatter, output io.Writer) error {
	if stmt.Kind != mapper.KindSelect {
		result, err := exec.Exec(context.Background(), bound)
		if err != nil {
			return q.reportError(ctx, err)
		}

		return formatter.FormatExec(result, output)
	}

	result, err := exec.Query(context.Background(), bound)
	if err != nil {
		return q.reportError(ctx, err)
	}

	if err := formatter.Format(result, output); err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if result.Truncated && !ctx.Quiet {
		color.Yellow("Result truncated to %d rows", result.Count)
	}

	return nil
}

func (q *QueryCmd) reportError(ctx *Context, err error) error {
	if ctx.Quiet {
		return err
	}

	if errors.Is(err, executor.ErrDangerousQuery) {
		color.Red("This query contains DELETE or UPDATE without a WHERE clause, which could affect all rows in the table.")
		color.Red("To execute this query anyway, use the --execute-dangerous-query flag.")
	} else if kind := executor.ClassifyError(err); kind != "" {
		color.Red("Database error: %s", kind)
	}

	return err
}
