// Package validation compiles form metadata and validates submitted data
// against it, producing localized, per-field errors.
//
// The locale is explicit: a Runner has a default locale and each call may
// override it with WithLocale. Changing the default through SetDefaultLocale
// only affects that Runner.
package validation

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-formcompiler/pkg/cache"
	"github.com/goliatone/go-formcompiler/pkg/condition"
	"github.com/goliatone/go-formcompiler/pkg/locale"
	"github.com/goliatone/go-formcompiler/pkg/metadata"
	"github.com/goliatone/go-formcompiler/pkg/schema"
)

// Error types.
const (
	TypeValidation        = string(schema.KindValidation)
	TypeCircularReference = string(schema.KindCircularReference)
)

// ValidationError is a single compile or validation failure attributed to a
// field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Type    string `json:"type"`
}

// CompileResult is the outcome of Compile. Schema is nil unless Success.
type CompileResult struct {
	Success bool              `json:"success"`
	Schema  *schema.Schema    `json:"-"`
	Errors  []ValidationError `json:"errors,omitempty"`
	// Cached reports that Schema was served from the cache.
	Cached bool `json:"-"`
}

// ValidateResult is the outcome of Validate. Data holds the normalised values
// when Success; optional fields left empty are absent from Data.
type ValidateResult struct {
	Success bool              `json:"success"`
	Data    map[string]any    `json:"data,omitempty"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

// Option customises a Runner.
type Option func(*Runner)

// WithDefaultLocale sets the locale used when a call does not pass one.
func WithDefaultLocale(loc string) Option {
	return func(r *Runner) {
		if loc = strings.TrimSpace(loc); loc != "" {
			r.defaultLocale = loc
		}
	}
}

// WithResolver replaces the message catalog.
func WithResolver(resolver locale.Resolver) Option {
	return func(r *Runner) {
		if resolver != nil {
			r.resolver = resolver
		}
	}
}

// WithCache memoises compiled schemas. A cache must not be shared by runners
// configured with different evaluators, since entries are keyed by metadata
// content only.
func WithCache(c *cache.Cache) Option {
	return func(r *Runner) {
		r.cache = c
	}
}

// WithEvaluator supplies the condition evaluator used at compile time.
func WithEvaluator(ev *condition.Evaluator) Option {
	return func(r *Runner) {
		if ev != nil {
			r.evaluator = ev
		}
	}
}

// WithLogger routes runner diagnostics to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// CallOption customises a single Compile or Validate call.
type CallOption func(*callConfig)

type callConfig struct {
	locale     string
	extras     map[string]any
	visibility map[string]bool
}

// WithLocale selects the message locale for one call.
func WithLocale(loc string) CallOption {
	return func(c *callConfig) {
		c.locale = strings.TrimSpace(loc)
	}
}

// WithExtras exposes caller context to expression conditions under the
// `extras.` prefix.
func WithExtras(extras map[string]any) CallOption {
	return func(c *callConfig) {
		c.extras = extras
	}
}

// WithVisibility validates against a precomputed visibility map (keyed by
// field id) instead of evaluating conditions against the submitted data.
func WithVisibility(visibility map[string]bool) CallOption {
	return func(c *callConfig) {
		c.visibility = visibility
	}
}

// Runner compiles and validates forms. It is safe for concurrent use.
type Runner struct {
	mu            sync.RWMutex
	defaultLocale string

	resolver  locale.Resolver
	cache     *cache.Cache
	evaluator *condition.Evaluator
	logger    *zap.Logger
}

// New returns a Runner. Without options it uses the built-in catalog,
// en-US messages, the built-in operators and no cache.
func New(options ...Option) *Runner {
	r := &Runner{
		defaultLocale: locale.DefaultLocale,
		logger:        zap.NewNop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	if r.resolver == nil {
		r.resolver = locale.MustNew()
	}
	if r.evaluator == nil {
		r.evaluator = condition.New()
	}
	return r
}

// SetDefaultLocale switches the locale used by later calls that do not pass
// WithLocale.
func (r *Runner) SetDefaultLocale(loc string) {
	loc = strings.TrimSpace(loc)
	if loc == "" {
		return
	}
	r.mu.Lock()
	r.defaultLocale = loc
	r.mu.Unlock()
}

// DefaultLocale returns the negotiated default locale.
func (r *Runner) DefaultLocale() string {
	r.mu.RLock()
	loc := r.defaultLocale
	r.mu.RUnlock()
	return r.resolver.Negotiate(loc)
}

// Evaluator returns the condition evaluator used at compile time.
func (r *Runner) Evaluator() *condition.Evaluator { return r.evaluator }

func (r *Runner) callConfig(options []CallOption) callConfig {
	var cfg callConfig
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.locale == "" {
		r.mu.RLock()
		cfg.locale = r.defaultLocale
		r.mu.RUnlock()
	}
	cfg.locale = r.resolver.Negotiate(cfg.locale)
	return cfg
}

// Compile builds the schema for meta, consulting the cache when configured.
func (r *Runner) Compile(meta metadata.FormMetadata, options ...CallOption) CompileResult {
	cfg := r.callConfig(options)
	return r.compile(meta, cfg)
}

func (r *Runner) compile(meta metadata.FormMetadata, cfg callConfig) CompileResult {
	var (
		s        *schema.Schema
		problems []schema.Problem
		cached   bool
	)
	if r.cache != nil {
		s, problems, cached = r.cache.Compile(meta, r.build)
	} else {
		s, problems = r.build(meta)
	}

	if s == nil || len(problems) > 0 {
		errs := r.problemErrors(problems, cfg.locale)
		r.logger.Debug("form compile failed",
			zap.String("form", meta.ID),
			zap.Int("errors", len(errs)),
			zap.String("locale", cfg.locale),
		)
		return CompileResult{Errors: errs}
	}
	return CompileResult{Success: true, Schema: s, Cached: cached}
}

func (r *Runner) build(meta metadata.FormMetadata) (*schema.Schema, []schema.Problem) {
	return schema.Build(meta, schema.WithEvaluator(r.evaluator))
}

// Validate compiles meta and validates data against it. When compilation
// fails the compile errors are returned and data is not inspected.
func (r *Runner) Validate(data map[string]any, meta metadata.FormMetadata, options ...CallOption) ValidateResult {
	cfg := r.callConfig(options)
	compiled := r.compile(meta, cfg)
	if !compiled.Success {
		return ValidateResult{Errors: compiled.Errors}
	}
	return r.validate(compiled.Schema, data, cfg)
}

// ValidateSchema validates data against an already compiled schema.
func (r *Runner) ValidateSchema(s *schema.Schema, data map[string]any, options ...CallOption) ValidateResult {
	return r.validate(s, data, r.callConfig(options))
}

func (r *Runner) validate(s *schema.Schema, data map[string]any, cfg callConfig) ValidateResult {
	visibility := cfg.visibility
	if visibility == nil {
		visibility = s.Visibility(data, cfg.extras)
	}

	out, issues := s.Apply(data, visibility)
	if len(issues) == 0 {
		return ValidateResult{Success: true, Data: out}
	}

	errs := make([]ValidationError, 0, len(issues))
	for _, issue := range issues {
		errs = append(errs, ValidationError{
			Field:   issue.Field,
			Message: r.issueMessage(issue, cfg.locale),
			Code:    issue.Code,
			Type:    TypeValidation,
		})
	}
	r.logger.Debug("form validation failed",
		zap.String("form", s.ID()),
		zap.Int("errors", len(errs)),
		zap.String("locale", cfg.locale),
	)
	return ValidateResult{Errors: errs}
}

// IssueMessage renders the localized message for a single field issue, for
// callers that validate one field at a time.
func (r *Runner) IssueMessage(issue schema.FieldIssue, options ...CallOption) string {
	return r.issueMessage(issue, r.callConfig(options).locale)
}

func (r *Runner) issueMessage(issue schema.FieldIssue, loc string) string {
	if issue.Message != "" {
		return issue.Message
	}
	key := issue.Code
	if issue.Variant != "" {
		key += "." + issue.Variant
	}
	params := make(map[string]any, len(issue.Params)+2)
	for k, v := range issue.Params {
		params[k] = v
	}
	params["field"] = issue.Field
	params["label"] = issue.Label
	return r.resolver.Message(loc, key, params)
}

func (r *Runner) problemErrors(problems []schema.Problem, loc string) []ValidationError {
	errs := make([]ValidationError, 0, len(problems))
	for _, p := range problems {
		errs = append(errs, ValidationError{
			Field:   p.Field,
			Message: r.resolver.Message(loc, p.Code, p.Params),
			Code:    p.Code,
			Type:    string(p.Kind),
		})
	}
	return errs
}

// ErrorsByField groups messages by field, trimming blanks and dropping
// repeated messages while keeping their order.
func ErrorsByField(errs []ValidationError) map[string][]string {
	out := make(map[string][]string)
	seen := make(map[string]map[string]struct{})
	for _, e := range errs {
		msg := strings.TrimSpace(e.Message)
		if msg == "" {
			continue
		}
		if seen[e.Field] == nil {
			seen[e.Field] = make(map[string]struct{})
		}
		if _, dup := seen[e.Field][msg]; dup {
			continue
		}
		seen[e.Field][msg] = struct{}{}
		out[e.Field] = append(out[e.Field], msg)
	}
	return out
}
