// Package locale resolves localized messages for validation and compile
// errors.
//
// Messages are pongo2 templates keyed by error code. A key may carry a variant
// suffix (for example "too_small.string"); lookups fall back to the bare code
// when the variant has no entry. Requested locales are negotiated against the
// registered bundles, so "zh" or "zh-Hans" resolve to the zh-CN bundle.
package locale

import (
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Built-in locales.
const (
	EnglishUS         = "en-US"
	ChineseSimplified = "zh-CN"
	DefaultLocale     = EnglishUS
)

//go:embed messages/*.yaml
var builtinBundles embed.FS

var (
	// ErrMissingMessage reports a key with no entry in the negotiated or
	// default bundle.
	ErrMissingMessage = errors.New("locale: missing message")
	// ErrInvalidLocale reports a locale tag that cannot be parsed.
	ErrInvalidLocale = errors.New("locale: invalid locale")
)

// Resolver produces user facing messages.
type Resolver interface {
	Message(locale, key string, params map[string]any) string
	Negotiate(locale string) string
}

// MissingHandler decides the string returned when a message cannot be
// rendered. err is ErrMissingMessage or the template execution error.
type MissingHandler func(locale, key string, params map[string]any, err error) string

// Option customises a Catalog.
type Option func(*Catalog)

// WithDefaultLocale sets the locale used when negotiation finds no match.
// Unknown locales are ignored.
func WithDefaultLocale(locale string) Option {
	return func(c *Catalog) {
		tag, err := language.Parse(strings.TrimSpace(locale))
		if err != nil {
			return
		}
		c.fallback = tag.String()
	}
}

// WithOnMissing installs a handler for unresolved keys.
func WithOnMissing(handler MissingHandler) Option {
	return func(c *Catalog) {
		if handler != nil {
			c.onMissing = handler
		}
	}
}

// WithMessages registers an extra bundle, or overrides keys of an existing
// one. Bundles that fail to compile are reported by New.
func WithMessages(locale string, messages map[string]string) Option {
	return func(c *Catalog) {
		c.pending = append(c.pending, pendingBundle{locale: locale, messages: messages})
	}
}

type pendingBundle struct {
	locale   string
	messages map[string]string
}

// Catalog is a Resolver backed by compiled templates. It is safe for
// concurrent use.
type Catalog struct {
	mu        sync.RWMutex
	bundles   map[string]map[string]*pongo2.Template
	tags      []language.Tag
	matcher   language.Matcher
	fallback  string
	onMissing MissingHandler
	pending   []pendingBundle
}

// New returns a catalog loaded with the built-in en-US and zh-CN bundles plus
// any bundles supplied through options.
func New(options ...Option) (*Catalog, error) {
	c := &Catalog{
		bundles:   make(map[string]map[string]*pongo2.Template),
		fallback:  DefaultLocale,
		onMissing: ReturnKey,
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}

	if err := c.loadBuiltin(); err != nil {
		return nil, err
	}
	for _, bundle := range c.pending {
		if err := c.Register(bundle.locale, bundle.messages); err != nil {
			return nil, err
		}
	}
	c.pending = nil
	return c, nil
}

// MustNew is New for static configuration; it panics on error.
func MustNew(options ...Option) *Catalog {
	c, err := New(options...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) loadBuiltin() error {
	entries, err := builtinBundles.ReadDir("messages")
	if err != nil {
		return fmt.Errorf("locale: read builtin bundles: %w", err)
	}
	for _, entry := range entries {
		raw, err := builtinBundles.ReadFile(path.Join("messages", entry.Name()))
		if err != nil {
			return fmt.Errorf("locale: read %s: %w", entry.Name(), err)
		}
		var messages map[string]string
		if err := yaml.Unmarshal(raw, &messages); err != nil {
			return fmt.Errorf("locale: decode %s: %w", entry.Name(), err)
		}
		name := strings.TrimSuffix(entry.Name(), path.Ext(entry.Name()))
		if err := c.Register(name, messages); err != nil {
			return err
		}
	}
	return nil
}

// Register compiles messages into the bundle for locale, merging with any
// existing entries.
func (c *Catalog) Register(locale string, messages map[string]string) error {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLocale, locale)
	}

	compiled := make(map[string]*pongo2.Template, len(messages))
	for key, source := range messages {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		tpl, err := pongo2.FromString("{% autoescape off %}" + source + "{% endautoescape %}")
		if err != nil {
			return fmt.Errorf("locale: compile %s %q: %w", tag, key, err)
		}
		compiled[key] = tpl
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	name := tag.String()
	bundle, ok := c.bundles[name]
	if !ok {
		bundle = make(map[string]*pongo2.Template, len(compiled))
		c.bundles[name] = bundle
		c.tags = append(c.tags, tag)
		c.matcher = language.NewMatcher(c.tags)
	}
	for key, tpl := range compiled {
		bundle[key] = tpl
	}
	return nil
}

// Locales lists the registered locales, sorted.
func (c *Catalog) Locales() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.bundles))
	for name := range c.bundles {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Negotiate maps a requested locale onto a registered bundle. Empty,
// malformed or unsupported locales resolve to the default locale.
func (c *Catalog) Negotiate(locale string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.negotiate(locale)
}

func (c *Catalog) negotiate(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" || c.matcher == nil {
		return c.fallback
	}
	if _, ok := c.bundles[locale]; ok {
		return locale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return c.fallback
	}
	_, index, confidence := c.matcher.Match(tag)
	if confidence == language.No || index < 0 || index >= len(c.tags) {
		return c.fallback
	}
	return c.tags[index].String()
}

// Message renders key for locale. Keys with a variant suffix fall back to
// their bare code, and keys missing from the negotiated bundle fall back to
// the default locale before reaching the missing handler.
func (c *Catalog) Message(locale, key string, params map[string]any) string {
	msg, err := c.Translate(locale, key, params)
	if err != nil {
		return c.onMissing(locale, key, params, err)
	}
	return msg
}

// Translate is Message without the missing handler.
func (c *Catalog) Translate(locale, key string, params map[string]any) (string, error) {
	key = strings.TrimSpace(key)
	c.mu.RLock()
	resolved := c.negotiate(locale)
	tpl := c.lookup(resolved, key)
	if tpl == nil && resolved != c.fallback {
		tpl = c.lookup(c.fallback, key)
	}
	c.mu.RUnlock()

	if tpl == nil {
		return "", fmt.Errorf("%w: %s/%s", ErrMissingMessage, resolved, key)
	}
	ctx := make(pongo2.Context, len(params))
	for k, v := range params {
		ctx[k] = v
	}
	out, err := tpl.Execute(ctx)
	if err != nil {
		return "", fmt.Errorf("locale: render %s/%s: %w", resolved, key, err)
	}
	return out, nil
}

func (c *Catalog) lookup(locale, key string) *pongo2.Template {
	bundle := c.bundles[locale]
	if bundle == nil {
		return nil
	}
	for candidate := key; candidate != ""; {
		if tpl, ok := bundle[candidate]; ok {
			return tpl
		}
		i := strings.LastIndex(candidate, ".")
		if i < 0 {
			break
		}
		candidate = candidate[:i]
	}
	return nil
}

// ReturnKey is the default MissingHandler.
func ReturnKey(_ string, key string, _ map[string]any, _ error) string {
	return key
}
