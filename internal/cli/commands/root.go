// Package commands implements the formc command line.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	formcompiler "github.com/goliatone/go-formcompiler"
	"github.com/goliatone/go-formcompiler/internal/config"
	"github.com/goliatone/go-formcompiler/internal/logging"
	"github.com/goliatone/go-formcompiler/internal/prompt"
	"github.com/goliatone/go-formcompiler/pkg/store"
)

var (
	// Version information, set at build time.
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// ErrFailed is returned when a command already reported its failure (invalid
// data, lint errors) and only the exit status remains.
var ErrFailed = errors.New("formc: failed")

// Option customises the root command, mainly for tests.
type Option func(*app)

// WithStore replaces the configured metadata store.
func WithStore(s store.Store) Option {
	return func(a *app) { a.store = s }
}

// WithDriver replaces the terminal prompt driver used by fill.
func WithDriver(d prompt.Driver) Option {
	return func(a *app) { a.driver = d }
}

type app struct {
	configPath string
	locale     string
	logLevel   string

	cfg      *config.Config
	logger   *zap.Logger
	compiler *formcompiler.Compiler
	store    store.Store
	driver   prompt.Driver
	closers  []io.Closer
}

// NewRootCommand builds the formc command tree.
func NewRootCommand(options ...Option) *cobra.Command {
	a := &app{}
	for _, opt := range options {
		if opt != nil {
			opt(a)
		}
	}

	root := &cobra.Command{
		Use:   "formc",
		Short: "Compile and validate declarative form metadata",
		Long: color.CyanString(`formc compiles form metadata documents (JSON or YAML) into validators,
checks submitted data against them and reports localized, per-field errors.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ./formc.yaml)")
	flags.StringVar(&a.locale, "locale", "", "message locale, overrides the configured one")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newVersionCommand(),
		newLintCommand(a),
		newLintExtensionsCommand(a),
		newValidateCommand(a),
		newVisibilityCommand(a),
		newFillCommand(a),
		newImportCommand(a),
		newStoreCommand(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.locale != "" {
		cfg.Locale = a.locale
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg

	a.logger, err = logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}

	opts := []formcompiler.Option{
		formcompiler.WithDefaultLocale(cfg.Locale),
		formcompiler.WithLogger(a.logger),
		formcompiler.WithSanitize(cfg.Sanitize),
	}
	if cfg.Cache.Enabled {
		opts = append(opts, formcompiler.WithCacheSize(cfg.Cache.Size))
	} else {
		opts = append(opts, formcompiler.WithoutCache())
	}
	opts = append(opts, formcompiler.WithStore(lazyStore{a}))

	a.compiler, err = formcompiler.New(opts...)
	return err
}

// openStore connects the configured backend on first use so commands that
// never touch the store do not need redis.
func (a *app) openStore(ctx context.Context) (store.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	switch a.cfg.Store.Driver {
	case config.DriverRedis:
		r, err := store.NewRedis(ctx, store.RedisConfig{
			Addr:     a.cfg.Store.Redis.Addr,
			Password: a.cfg.Store.Redis.Password,
			DB:       a.cfg.Store.Redis.DB,
			Prefix:   a.cfg.Store.Redis.Prefix,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, r)
		a.store = r
	default:
		a.logger.Warn("memory store does not persist between runs; configure store.driver redis")
		a.store = store.NewMemory()
	}
	a.logger.Debug("store opened", zap.String("driver", a.cfg.Store.Driver))
	return a.store, nil
}

func (a *app) close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	a.closers = nil
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return errors.Join(errs...)
}

// lazyStore defers connecting until the compiler asks for a stored form.
type lazyStore struct{ a *app }

func (l lazyStore) backend(ctx context.Context) (store.Store, error) { return l.a.openStore(ctx) }

func (l lazyStore) Get(ctx context.Context, id string) (formcompiler.FormMetadata, error) {
	s, err := l.backend(ctx)
	if err != nil {
		return formcompiler.FormMetadata{}, err
	}
	return s.Get(ctx, id)
}

func (l lazyStore) Put(ctx context.Context, form formcompiler.FormMetadata) error {
	s, err := l.backend(ctx)
	if err != nil {
		return err
	}
	return s.Put(ctx, form)
}

func (l lazyStore) Delete(ctx context.Context, id string) error {
	s, err := l.backend(ctx)
	if err != nil {
		return err
	}
	return s.Delete(ctx, id)
}

func (l lazyStore) List(ctx context.Context) ([]string, error) {
	s, err := l.backend(ctx)
	if err != nil {
		return nil, err
	}
	return s.List(ctx)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			title := color.New(color.FgCyan, color.Bold)
			rows := [][2]string{
				{"formc version: ", Version},
				{"Git commit: ", GitCommit},
				{"Build date: ", BuildDate},
				{"Go version: ", runtime.Version()},
			}
			for _, row := range rows {
				title.Fprint(out, row[0])
				fmt.Fprintln(out, row[1])
			}
		},
	}
}

// Execute runs the root command and prints any error in red.
func Execute() error {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		if !errors.Is(err, ErrFailed) {
			color.New(color.FgRed, color.Bold).Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
		}
		return err
	}
	return nil
}
