package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/x19-huhr/mybatis/registry"
)

// WatchCmd keeps validating mapper documents while they are edited
type WatchCmd struct {
	DatabaseID string `long:"database-id" help:"Database id used to select statements and for _databaseId"`
}

// Run executes the watch command until interrupted
func (w *WatchCmd) Run(ctx *Context) error {
	config, err := ctx.LoadConfig()
	if err != nil {
		return err
	}

	logger, err := ctx.Logger(config)
	if err != nil {
		return err
	}

	reg, err := ctx.OpenRegistry(config, logger, w.DatabaseID, registry.WithReloadHook(func(err error) {
		if ctx.Quiet {
			return
		}

		if err != nil {
			color.Red("✗ %v", err)
		} else {
			color.Green("✓ templates reloaded")
		}
	}))
	if err != nil {
		return err
	}

	if err := reg.BuildAll(); err != nil {
		color.Red("✗ %v", err)
	} else if !ctx.Quiet {
		color.Green("✓ %d statements built", len(reg.Statements()))
	}

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !ctx.Quiet {
		color.Blue("Watching %v (Ctrl+C to stop)", reg.Dirs())
	}

	return reg.Watch(signalCtx)
}
