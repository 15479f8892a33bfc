// Package registry keeps the statements of mapper documents and the
// template artifacts built from them.
package registry

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/x19-huhr/mybatis"
	"github.com/x19-huhr/mybatis/evaluator"
	"github.com/x19-huhr/mybatis/mapper"
	"github.com/x19-huhr/mybatis/scripting"
)

// Registry builds each statement at most once and hands out the shared
// artifact. It is safe for concurrent use.
type Registry struct {
	dialect    mybatis.Dialect
	variables  map[string]string
	shrink     bool
	databaseID string
	eval       evaluator.Evaluator
	logger     logrus.FieldLogger
	debounce   time.Duration
	onReload   func(error)

	typesMu sync.RWMutex
	types   map[string]reflect.Type

	dirsMu sync.Mutex
	dirs   []string

	generation atomic.Uint64
	catalog    atomic.Pointer[catalog]
	group      singleflight.Group
	compiled   *lru.Cache[string, scripting.SQLSource]
}

// New creates an empty registry configured from cfg. A nil cfg uses the defaults.
func New(cfg *mybatis.Config, opts ...Option) (*Registry, error) {
	if cfg == nil {
		var err error

		cfg, err = mybatis.ParseConfig([]byte("{}"))
		if err != nil {
			return nil, err
		}
	}

	variables, err := cfg.LoadVariables()
	if err != nil {
		return nil, err
	}

	r := &Registry{
		dialect:   cfg.DialectValue(),
		variables: variables,
		shrink:    cfg.ShrinkWhitespace,
		debounce:  defaultDebounce,
		types:     make(map[string]reflect.Type),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = discardLogger()
	}

	if r.eval == nil {
		r.eval, err = evaluator.NewCEL()
		if err != nil {
			return nil, err
		}
	}

	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}

	r.compiled, err = lru.New[string, scripting.SQLSource](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create compile cache: %w", err)
	}

	r.catalog.Store(newCatalog(r.generation.Add(1)))

	return r, nil
}

// RegisterType declares the Go type used to validate statements whose
// parameterType is alias. Statements already built are not rebuilt.
func (r *Registry) RegisterType(alias string, sample any) {
	r.typesMu.Lock()
	defer r.typesMu.Unlock()

	r.types[alias] = reflect.TypeOf(sample)
}

func (r *Registry) parameterType(alias string) reflect.Type {
	if alias == "" {
		return nil
	}

	r.typesMu.RLock()
	defer r.typesMu.RUnlock()

	t, ok := r.types[alias]
	if !ok {
		r.logger.WithField("type", alias).Debug("parameter type not registered, skipping validation")
	}

	return t
}

// AddDocument registers the statements and fragments of doc. Statements
// that could not be built earlier because of a missing fragment are retried.
func (r *Registry) AddDocument(doc *mapper.Document) error {
	cat := r.catalog.Load()
	if err := cat.add(doc); err != nil {
		return err
	}

	r.retryIncomplete(cat)

	return nil
}

// LoadDir loads every mapper document below dir and remembers dir for Reload and Watch.
func (r *Registry) LoadDir(dir string) error {
	if err := r.loadDirInto(r.catalog.Load(), dir); err != nil {
		return err
	}

	r.dirsMu.Lock()
	if !slices.Contains(r.dirs, dir) {
		r.dirs = append(r.dirs, dir)
	}
	r.dirsMu.Unlock()

	r.retryIncomplete(r.catalog.Load())

	return nil
}

func (r *Registry) loadDirInto(cat *catalog, dir string) error {
	docs, err := mapper.LoadDir(dir)
	if err != nil {
		return err
	}

	for _, doc := range docs {
		if err := cat.add(doc); err != nil {
			return err
		}

		r.logger.WithFields(logrus.Fields{
			"file":       doc.File,
			"statements": len(doc.Statements),
		}).Debug("mapper loaded")
	}

	return nil
}

// Dirs returns the directories loaded with LoadDir.
func (r *Registry) Dirs() []string {
	r.dirsMu.Lock()
	defer r.dirsMu.Unlock()

	return slices.Clone(r.dirs)
}

// Statements returns every registered statement ordered by id.
func (r *Registry) Statements() []*mapper.Statement {
	return r.catalog.Load().all()
}

// Statement returns the statement that Get would build for id.
func (r *Registry) Statement(id string) (*mapper.Statement, error) {
	return r.catalog.Load().lookup(id, r.databaseID)
}

// Get returns the artifact for the statement id, building it on first
// use. Concurrent callers share one build; failed builds are not kept.
func (r *Registry) Get(id string) (scripting.SQLSource, error) {
	cat := r.catalog.Load()

	stmt, err := cat.lookup(id, r.databaseID)
	if err != nil {
		return nil, err
	}

	return r.getFrom(cat, stmt)
}

// Source returns the artifact for a statement listed by Statements.
func (r *Registry) Source(stmt *mapper.Statement) (scripting.SQLSource, error) {
	return r.getFrom(r.catalog.Load(), stmt)
}

func (r *Registry) getFrom(cat *catalog, stmt *mapper.Statement) (scripting.SQLSource, error) {
	if src, ok := cat.source(stmt); ok {
		return src, nil
	}

	key := fmt.Sprintf("%d/%s/%s", cat.generation, stmt.FullID(), stmt.DatabaseID)

	v, err, _ := r.group.Do(key, func() (any, error) {
		if src, ok := cat.source(stmt); ok {
			return src, nil
		}

		src, err := r.build(cat, stmt)
		if err != nil {
			return nil, err
		}

		cat.store(stmt, src)

		return src, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(scripting.SQLSource), nil
}

func (r *Registry) builderOptions(cat *catalog, namespace string) scripting.BuilderOptions {
	return scripting.BuilderOptions{
		Variables:        r.variables,
		Dialect:          r.dialect,
		DatabaseID:       r.databaseID,
		Evaluator:        r.eval,
		ShrinkWhitespace: r.shrink,
		IncludeResolver:  cat.resolver(namespace),
	}
}

func (r *Registry) build(cat *catalog, stmt *mapper.Statement) (scripting.SQLSource, error) {
	opts := r.builderOptions(cat, stmt.Namespace)
	opts.ParameterType = r.parameterType(stmt.ParameterType)

	entry := r.logger.WithFields(logrus.Fields{
		"template": stmt.FullID(),
		"file":     stmt.File,
	})

	start := time.Now()

	src, err := scripting.NewBuilder(opts).Build(stmt.Element)
	if err != nil {
		entry.WithError(err).Debug("template build failed")
		return nil, fmt.Errorf("%s (%s): %w", stmt.FullID(), stmt.File, err)
	}

	entry.WithFields(logrus.Fields{
		"dynamic":  scripting.IsDynamic(src),
		"duration": time.Since(start),
	}).Debug("template built")

	return src, nil
}

// BuildAll builds every statement not built yet. Statements that fail
// because an included fragment is missing are kept and retried when more
// documents are added. All failures are returned joined.
func (r *Registry) BuildAll() error {
	return r.buildAll(r.catalog.Load())
}

func (r *Registry) buildAll(cat *catalog) error {
	var errs []error

	for _, stmt := range cat.all() {
		if _, err := r.getFrom(cat, stmt); err != nil {
			if errors.Is(err, scripting.ErrIncompleteElement) {
				cat.markIncomplete(stmt, err)
				continue
			}

			errs = append(errs, err)
		}
	}

	errs = append(errs, cat.incompleteErrors()...)

	return errors.Join(errs...)
}

// retryIncomplete rebuilds incomplete statements until a pass makes no progress.
func (r *Registry) retryIncomplete(cat *catalog) {
	for {
		pending := cat.incompleteStatements()
		if len(pending) == 0 {
			return
		}

		progress := false

		for _, stmt := range pending {
			if _, err := r.getFrom(cat, stmt); err == nil {
				progress = true
			} else if !errors.Is(err, scripting.ErrIncompleteElement) {
				cat.markIncomplete(stmt, err)
			}
		}

		if !progress {
			return
		}
	}
}

// Render builds the statement id if needed and renders it for param.
// A logger attached with scripting.WithLogger receives the render event.
func (r *Registry) Render(ctx context.Context, id string, param any) (*scripting.BoundSQL, error) {
	src, err := r.Get(id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	bound, err := scripting.RenderContext(ctx, src, id, param)

	entry := r.logger.WithFields(logrus.Fields{
		"template": id,
		"dynamic":  scripting.IsDynamic(src),
		"duration": time.Since(start),
	})

	if err != nil {
		entry.WithError(err).Debug("template render failed")
		return nil, err
	}

	entry.WithField("params", len(bound.Parameters)).Debug("template rendered")

	return bound, nil
}

// Compile builds an ad-hoc script. Artifacts are cached by script text
// until the next Reload. Includes resolve against absolute fragment ids.
func (r *Registry) Compile(script string) (scripting.SQLSource, error) {
	if src, ok := r.compiled.Get(script); ok {
		return src, nil
	}

	src, err := scripting.CompileScript(script, r.builderOptions(r.catalog.Load(), ""))
	if err != nil {
		return nil, err
	}

	r.compiled.Add(script, src)

	return src, nil
}

// Reload reads the loaded directories again and builds every statement.
// The new set replaces the current one only when everything builds.
func (r *Registry) Reload() error {
	start := time.Now()
	cat := newCatalog(r.generation.Add(1))

	for _, dir := range r.Dirs() {
		if err := r.loadDirInto(cat, dir); err != nil {
			return err
		}
	}

	if err := r.buildAll(cat); err != nil {
		return err
	}

	r.catalog.Store(cat)
	r.compiled.Purge()

	r.logger.WithFields(logrus.Fields{
		"statements": len(cat.all()),
		"duration":   time.Since(start),
	}).Info("templates reloaded")

	return nil
}
