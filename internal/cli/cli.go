package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/dep2j/pkg/buildinfo"
	"github.com/matzehuels/dep2j/pkg/cache"
	"github.com/matzehuels/dep2j/pkg/config"
	"github.com/matzehuels/dep2j/pkg/observability"
	"github.com/matzehuels/dep2j/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "dep2j"
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

	// Stdin is read when no input files are given. Stdout receives the
	// converted document; status lines go to the logger's writer.
	Stdin  io.Reader
	Stdout io.Writer

	configPath string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger writing to w.
func New(w io.Writer, level log.Level) *CLI {
	setUIWriter(w)
	return &CLI{
		Logger: newLogger(w, level),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
// The root command itself converts dependency files to JSON.
func (c *CLI) RootCommand() *cobra.Command {
	root := c.convertCommand()
	root.Version = buildinfo.Version
	root.SilenceUsage = true
	root.SilenceErrors = true
	root.SetVersionTemplate(buildinfo.Template())

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ./"+config.DefaultFile+")")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		hooks := observability.NewLogHooks(c.Logger)
		observability.SetServerHooks(hooks)
		// Pipeline failures already reach the user as the command's error.
		if c.Logger.GetLevel() <= log.DebugLevel {
			observability.SetPipelineHooks(hooks)
			observability.SetCacheHooks(hooks)
		}
		return c.loadConfig()
	}

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the config file and environment once per process.
func (c *CLI) loadConfig() error {
	if c.cfg != nil {
		return nil
	}
	cfg, err := config.Load(config.LoadOptions{Path: c.configPath})
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.Logger.Debug("loaded config", "jobs", cfg.Jobs, "cache", cfg.Cache.Enabled, "redis", cfg.Cache.RedisAddr != "")
	return nil
}

// settings returns the loaded configuration, or the defaults before loading.
func (c *CLI) settings() *config.Config {
	if c.cfg == nil {
		return config.Default()
	}
	return c.cfg
}

// =============================================================================
// Runner Factory
// =============================================================================

// cacheFlags are the cache-related flags shared by convert and render.
type cacheFlags struct {
	enabled bool
	redis   string
	refresh bool
}

func (f *cacheFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.enabled, "cache", false, "cache parse results on disk")
	cmd.Flags().StringVar(&f.redis, "redis", "", "cache parse results in Redis at `addr`")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "ignore cached parse results")
}

// resolve fills unset flags from the configuration.
func (f *cacheFlags) resolve(cmd *cobra.Command, cfg *config.Config) {
	if !cmd.Flags().Changed("cache") {
		f.enabled = cfg.Cache.Enabled
	}
	if !cmd.Flags().Changed("redis") {
		f.redis = cfg.Cache.RedisAddr
	}
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, f cacheFlags) (*pipeline.Runner, error) {
	cfg := c.settings()
	ch, err := c.newCache(ctx, f, cfg)
	if err != nil {
		return nil, err
	}
	r := pipeline.NewRunner(ch, cacheKeyer(f.redis, cfg), c.Logger)
	r.TTL = cfg.Cache.TTL.Duration
	return r, nil
}

// cacheKeyer prefixes keys with the configured redis_prefix when a shared
// Redis backend is in use. Local caches keep the bare keys.
func cacheKeyer(redisAddr string, cfg *config.Config) cache.Keyer {
	if redisAddr == "" {
		return nil
	}
	return cache.NewScopedKeyer(nil, cfg.Cache.RedisPrefix)
}

func (c *CLI) newCache(ctx context.Context, f cacheFlags, cfg *config.Config) (cache.Cache, error) {
	if f.redis != "" {
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     f.redis,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
	}
	if !f.enabled {
		return cache.NewNullCache(), nil
	}
	dir, err := c.cacheDir()
	if err != nil {
		c.Logger.Warn("parse cache disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the configured cache directory, falling back to
// defaultCacheDir.
func (c *CLI) cacheDir() (string, error) {
	if dir := c.settings().Cache.Dir; dir != "" {
		return dir, nil
	}
	return defaultCacheDir()
}

// defaultCacheDir returns the cache directory using XDG standard (~/.cache/dep2j/).
func defaultCacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
