package registry

import (
	"io"
	"reflect"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/x19-huhr/mybatis/evaluator"
)

const (
	defaultCacheSize = 256
	defaultDebounce  = 200 * time.Millisecond
)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger for build, render and reload events.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithEvaluator replaces the default CEL evaluator.
func WithEvaluator(eval evaluator.Evaluator) Option {
	return func(r *Registry) {
		r.eval = eval
	}
}

// WithType registers a parameter type alias; see RegisterType.
func WithType(alias string, sample any) Option {
	return func(r *Registry) {
		r.types[alias] = reflect.TypeOf(sample)
	}
}

// WithDatabaseID selects statements declared for the given database id.
func WithDatabaseID(id string) Option {
	return func(r *Registry) {
		r.databaseID = id
	}
}

// WithDebounce sets how long Watch waits for file events to settle.
func WithDebounce(d time.Duration) Option {
	return func(r *Registry) {
		r.debounce = d
	}
}

// WithReloadHook is called after every reload triggered by Watch.
func WithReloadHook(hook func(error)) Option {
	return func(r *Registry) {
		r.onReload = hook
	}
}

func discardLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return logger
}
