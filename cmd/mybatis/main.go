package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/x19-huhr/mybatis/cli"
)

var version = "v0.1.0"

// CLI represents the command-line interface
var CLI struct {
	Config   string          `help:"Configuration file path" default:"mybatis.yaml"`
	Verbose  bool            `help:"Enable verbose output" short:"v"`
	Quiet    bool            `help:"Suppress output" short:"q"`
	Render   cli.RenderCmd   `cmd:"" help:"Render a statement to SQL and bind parameters"`
	Validate cli.ValidateCmd `cmd:"" help:"Build every statement and run recorded test cases"`
	Query    cli.QueryCmd    `cmd:"" help:"Render a statement and execute it"`
	Watch    cli.WatchCmd    `cmd:"" help:"Rebuild templates when mapper files change"`
	Version  VersionCmd      `cmd:"" help:"Show version information"`
}

// VersionCmd represents the version command
type VersionCmd struct{}

// Run executes the version command
func (cmd *VersionCmd) Run() error {
	fmt.Println("mybatis " + version)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("mybatis"),
		kong.Description("Dynamic SQL templates in MyBatis mapper syntax"),
		kong.UsageOnError(),
	)

	appCtx := &cli.Context{
		Config:  CLI.Config,
		Verbose: CLI.Verbose,
		Quiet:   CLI.Quiet,
	}

	err := ctx.Run(appCtx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
