// Package formcompiler turns declarative form metadata into a compiled
// validator and a field visibility evaluator.
//
// Typical use:
//
//	fc, err := formcompiler.New(formcompiler.WithDefaultLocale("zh-CN"))
//	if err != nil {
//		return err
//	}
//	res := fc.Validate(values, meta)
//	if !res.Success {
//		// res.Errors carries one localized error per field
//	}
//
// Compiled schemas are cached by metadata content, so repeated validation of
// the same form only compiles it once.
package formcompiler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/goliatone/go-formcompiler/pkg/cache"
	"github.com/goliatone/go-formcompiler/pkg/condition"
	"github.com/goliatone/go-formcompiler/pkg/locale"
	"github.com/goliatone/go-formcompiler/pkg/metadata"
	"github.com/goliatone/go-formcompiler/pkg/store"
	"github.com/goliatone/go-formcompiler/pkg/validation"
)

// Aliases exported from the root package for convenience.
type (
	FormMetadata    = metadata.FormMetadata
	FormField       = metadata.FormField
	FieldOption     = metadata.Option
	Condition       = metadata.Condition
	Rules           = metadata.Rules
	ValidationError = validation.ValidationError
	CompileResult   = validation.CompileResult
	ValidateResult  = validation.ValidateResult
	CallOption      = validation.CallOption
	Operator        = condition.Operator
)

// Per call options.
var (
	WithLocale     = validation.WithLocale
	WithExtras     = validation.WithExtras
	WithVisibility = validation.WithVisibility
)

// Option customises a Compiler.
type Option func(*config)

type config struct {
	locale    string
	cacheSize int
	cache     *cache.Cache
	noCache   bool
	logger    *zap.Logger
	store     store.Store
	resolver  locale.Resolver
	operators []condition.Option
	sanitize  bool
}

// WithDefaultLocale sets the locale used when calls do not pass WithLocale.
func WithDefaultLocale(loc string) Option {
	return func(c *config) { c.locale = loc }
}

// WithCacheSize bounds the schema cache.
func WithCacheSize(entries int) Option {
	return func(c *config) { c.cacheSize = entries }
}

// WithSchemaCache injects a caller owned cache.
func WithSchemaCache(sc *cache.Cache) Option {
	return func(c *config) { c.cache = sc }
}

// WithoutCache compiles on every call.
func WithoutCache() Option {
	return func(c *config) { c.noCache = true }
}

// WithLogger routes diagnostics to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithStore enables CompileStored and ValidateStored.
func WithStore(s store.Store) Option {
	return func(c *config) { c.store = s }
}

// WithResolver replaces the built-in message catalog.
func WithResolver(r locale.Resolver) Option {
	return func(c *config) { c.resolver = r }
}

// WithOperator registers a custom condition operator.
func WithOperator(name string, op Operator) Option {
	return func(c *config) { c.operators = append(c.operators, condition.WithOperator(name, op)) }
}

// WithSanitize strips markup from labels and messages before compiling.
func WithSanitize(enabled bool) Option {
	return func(c *config) { c.sanitize = enabled }
}

// Compiler wires the validation runner, schema cache, message catalog and
// optional metadata store. It is safe for concurrent use.
type Compiler struct {
	runner   *validation.Runner
	cache    *cache.Cache
	store    store.Store
	logger   *zap.Logger
	sanitize bool
}

// New builds a Compiler. Without options it caches up to
// cache.DefaultMaxEntries schemas and reports messages in en-US.
func New(options ...Option) (*Compiler, error) {
	cfg := config{cacheSize: cache.DefaultMaxEntries}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	sc := cfg.cache
	if sc == nil && !cfg.noCache {
		var err error
		sc, err = cache.New(cfg.cacheSize, cache.WithLogger(cfg.logger))
		if err != nil {
			return nil, fmt.Errorf("formcompiler: %w", err)
		}
	}
	if cfg.noCache {
		sc = nil
	}

	runnerOpts := []validation.Option{
		validation.WithDefaultLocale(cfg.locale),
		validation.WithEvaluator(condition.New(cfg.operators...)),
		validation.WithLogger(cfg.logger),
		validation.WithResolver(cfg.resolver),
	}
	if sc != nil {
		runnerOpts = append(runnerOpts, validation.WithCache(sc))
	}

	return &Compiler{
		runner:   validation.New(runnerOpts...),
		cache:    sc,
		store:    cfg.store,
		logger:   cfg.logger,
		sanitize: cfg.sanitize,
	}, nil
}

// MustNew is New for static configuration; it panics on error.
func MustNew(options ...Option) *Compiler {
	c, err := New(options...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Compiler) prepare(meta FormMetadata) FormMetadata {
	if c.sanitize {
		return metadata.Sanitize(meta)
	}
	return meta
}

// Compile builds (or fetches from cache) the schema for meta.
func (c *Compiler) Compile(meta FormMetadata, options ...CallOption) CompileResult {
	return c.runner.Compile(c.prepare(meta), options...)
}

// Validate compiles meta and validates data against it.
func (c *Compiler) Validate(data map[string]any, meta FormMetadata, options ...CallOption) ValidateResult {
	return c.runner.Validate(data, c.prepare(meta), options...)
}

// ComputeVisibility reports, per field id, whether the field is shown for
// values (keyed by field name). It does not check the condition graph;
// compile the form to surface condition problems.
func (c *Compiler) ComputeVisibility(fields []FormField, values map[string]any) map[string]bool {
	return c.runner.Evaluator().ComputeVisibility(fields, values)
}

// SetErrorLocale switches the default message locale of this Compiler.
func (c *Compiler) SetErrorLocale(loc string) {
	c.runner.SetDefaultLocale(loc)
	c.logger.Debug("error locale changed", zap.String("locale", c.runner.DefaultLocale()))
}

// ErrorLocale returns the negotiated default locale.
func (c *Compiler) ErrorLocale() string {
	return c.runner.DefaultLocale()
}

// Runner exposes the underlying validation runner.
func (c *Compiler) Runner() *validation.Runner { return c.runner }

// CacheStats returns schema cache counters; zero when caching is disabled.
func (c *Compiler) CacheStats() cache.Stats {
	if c.cache == nil {
		return cache.Stats{}
	}
	return c.cache.Stats()
}

// ErrNoStore is returned by the stored variants when no store is configured.
var ErrNoStore = errors.New("formcompiler: no store configured")

// CompileStored loads the form id from the configured store and compiles it.
func (c *Compiler) CompileStored(ctx context.Context, id string, options ...CallOption) (CompileResult, error) {
	meta, err := c.load(ctx, id)
	if err != nil {
		return CompileResult{}, err
	}
	return c.Compile(meta, options...), nil
}

// ValidateStored loads the form id from the configured store and validates
// data against it.
func (c *Compiler) ValidateStored(ctx context.Context, id string, data map[string]any, options ...CallOption) (ValidateResult, error) {
	meta, err := c.load(ctx, id)
	if err != nil {
		return ValidateResult{}, err
	}
	return c.Validate(data, meta, options...), nil
}

func (c *Compiler) load(ctx context.Context, id string) (FormMetadata, error) {
	if c.store == nil {
		return FormMetadata{}, ErrNoStore
	}
	meta, err := c.store.Get(ctx, id)
	if err != nil {
		return FormMetadata{}, fmt.Errorf("formcompiler: load %s: %w", id, err)
	}
	return meta, nil
}
