package scripting

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type loggerKeyType struct{}

var loggerKey = loggerKeyType{}

// LoggerFunc receives RenderLogEntry events.
type LoggerFunc func(context.Context, RenderLogEntry)

// LoggerOpt configures optional logger behaviour passed to WithLogger.
type LoggerOpt struct {
	// OmitArgs drops bind parameter values from entries, e.g. for sensitive data.
	OmitArgs bool
	// SlowThreshold only reports renders slower than the threshold when positive.
	SlowThreshold time.Duration
}

type loggerConfig struct {
	sink LoggerFunc
	opt  LoggerOpt
}

// RenderLogEntry describes one render call.
type RenderLogEntry struct {
	ID         string
	TemplateID string
	SQL        string
	Args       []any
	Dynamic    bool
	StartAt    time.Time
	Duration   time.Duration
	Error      string
}

// WithLogger returns a context whose renders through RenderContext are reported to logger.
func WithLogger(ctx context.Context, logger LoggerFunc, opts ...LoggerOpt) context.Context {
	var opt LoggerOpt
	if len(opts) > 0 {
		opt = opts[0]
	}

	if opt.SlowThreshold < 0 {
		opt.SlowThreshold = 0
	}

	return context.WithValue(ctx, loggerKey, &loggerConfig{sink: logger, opt: opt})
}

func loggerFromContext(ctx context.Context) *loggerConfig {
	if ctx == nil {
		return nil
	}

	cfg, _ := ctx.Value(loggerKey).(*loggerConfig)
	if cfg == nil || cfg.sink == nil {
		return nil
	}

	return cfg
}

// RenderContext renders src like Render and reports the call to the logger
// attached to ctx, if any. templateID identifies the template in the entry.
func RenderContext(ctx context.Context, src SQLSource, templateID string, param any) (*BoundSQL, error) {
	cfg := loggerFromContext(ctx)
	if cfg == nil {
		return src.BoundSQL(param)
	}

	startAt := time.Now()
	bound, err := src.BoundSQL(param)
	duration := time.Since(startAt)

	if cfg.opt.SlowThreshold > 0 && duration < cfg.opt.SlowThreshold {
		return bound, err
	}

	entry := RenderLogEntry{
		ID:         uuid.NewString(),
		TemplateID: templateID,
		Dynamic:    IsDynamic(src),
		StartAt:    startAt,
		Duration:   duration,
	}

	if bound != nil {
		entry.SQL = bound.SQL
		if !cfg.opt.OmitArgs {
			entry.Args = bound.Args()
		}
	}

	if err != nil {
		entry.Error = err.Error()
	}

	cfg.sink(ctx, entry)

	return bound, err
}
