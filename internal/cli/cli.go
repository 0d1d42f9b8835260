package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/recompose/pkg/ai"
	"github.com/matzehuels/recompose/pkg/buildinfo"
	"github.com/matzehuels/recompose/pkg/cache"
	"github.com/matzehuels/recompose/pkg/config"
	"github.com/matzehuels/recompose/pkg/history"
	"github.com/matzehuels/recompose/pkg/observability"
	"github.com/matzehuels/recompose/pkg/pipeline"
	"github.com/matzehuels/recompose/pkg/project"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "recompose"

	// cliProducer is the producer id CLI commands register their mappings
	// under.
	cliProducer = "cli"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config config.Config

	// ConfigPath is the --config flag; empty selects config.DefaultPath.
	ConfigPath string
}

// New creates a new CLI instance with a default logger and built-in
// settings. The config file is read in the root command's pre-run.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level. Debug level also routes the
// engine's observability hooks to the logger.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
	if level <= log.DebugLevel {
		observability.NewLogHooks(c.Logger).Register()
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Recompose projects layered designs onto new layouts",
		Long: `Recompose extracts template containers from layered design documents,
projects design groups from one layout onto another and assembles the result
into a new layered document. Layouts that cannot be bridged geometrically can
be extended with generated imagery.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.ConfigPath)
			if err != nil {
				return err
			}
			c.Config = cfg
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", "", "config file (default "+config.DefaultPath()+")")

	root.AddCommand(c.containersCommand())
	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.transformCommand())
	root.AddCommand(c.assembleCommand())
	root.AddCommand(c.projectCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// runnerOptions selects the optional parts of a runner.
type runnerOptions struct {
	NoCache  bool
	Refresh  bool
	Generate bool // attach the Gemini generator and the history ledger
}

// session is a runner plus the resources it owns.
type session struct {
	*pipeline.Runner
	history *history.Ledger
}

// Close releases the runner, its cache and the history ledger.
func (s *session) Close() error {
	err := s.Runner.Close()
	if s.history != nil {
		if herr := s.history.Close(); err == nil {
			err = herr
		}
	}
	return err
}

// newRunner creates a pipeline runner configured from c.Config.
func (c *CLI) newRunner(ctx context.Context, ro runnerOptions) (*session, error) {
	cfg := c.Config
	store, err := c.newCache(ctx, ro.NoCache)
	if err != nil {
		return nil, err
	}
	var keyer cache.Keyer
	if cfg.Cache.Scope != "" {
		keyer = cache.NewScopedKeyer(nil, cfg.Cache.Scope+":")
	}

	r := pipeline.NewRunner(pipeline.Options{
		Containers: cfg.ContainerOptions(),
		Debounce:   cfg.Reconcile.Debounce.Duration,
		Timeout:    cfg.AI.Timeout.Duration,
		TextModel:  cfg.AI.TextModel,
		ImageModel: cfg.AI.ImageModel,
		Refresh:    ro.Refresh,
		CacheTTL:   cfg.Cache.TTL.Duration,
	}, store, keyer, c.Logger)
	s := &session{Runner: r}

	if !ro.Generate {
		return s, nil
	}

	opts := cfg.AIOptions()
	opts.Logger = c.Logger
	gen, err := ai.NewGeminiClient(ctx, opts)
	if err != nil {
		r.Close()
		return nil, err
	}
	r.Generator = gen

	ledger, err := history.Open(c.historyPath())
	if err != nil {
		c.Logger.Warn("generation history disabled", "err", err)
		return s, nil
	}
	r.History = ledger
	s.history = ledger
	return s, nil
}

// newCache selects the cache backend: Redis when an address is configured,
// the file cache otherwise.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	cfg := c.Config.Cache
	if noCache || cfg.Disabled {
		return cache.NewNullCache(), nil
	}
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.RedisAddr, "", cfg.RedisDB, appName+":")
		if err != nil {
			c.Logger.Warn("redis unavailable, caching disabled", "addr", cfg.RedisAddr, "err", err)
			return cache.NewNullCache(), nil
		}
		return rc, nil
	}
	dir, err := c.cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// newProjectStore opens the configured project store. An empty file store
// directory selects the store's own default.
func (c *CLI) newProjectStore(ctx context.Context) (project.Store, error) {
	cfg := c.Config.Store
	if cfg.Kind == config.StoreMongo {
		return project.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB)
	}
	return project.NewFileStore(cfg.Dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the configured cache directory, falling back to the XDG
// default.
func (c *CLI) cacheDir() (string, error) {
	if c.Config.Cache.Dir != "" {
		return c.Config.Cache.Dir, nil
	}
	return cacheDir()
}

// historyPath returns the configured ledger path, falling back to the data
// directory.
func (c *CLI) historyPath() string {
	if c.Config.History.Path != "" {
		return c.Config.History.Path
	}
	dir, err := dataDir()
	if err != nil {
		return ":memory:"
	}
	return filepath.Join(dir, "history.db")
}

// cacheDir returns the cache directory using XDG standard (~/.cache/recompose/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// dataDir returns the data directory using XDG standard (~/.local/share/recompose/).
func dataDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName), nil
}
