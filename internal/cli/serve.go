package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dep2j/internal/server"
	"github.com/matzehuels/dep2j/pkg/cache"
	"github.com/matzehuels/dep2j/pkg/config"
	"github.com/matzehuels/dep2j/pkg/pipeline"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr    string
	maxBody int64
	jobs    int
	redis   string
}

func (o *serveOpts) resolve(cmd *cobra.Command, cfg *config.Config) {
	if !cmd.Flags().Changed("addr") {
		o.addr = cfg.Server.Addr
	}
	if !cmd.Flags().Changed("max-body") {
		o.maxBody = cfg.Server.MaxBodyBytes
	}
	if !cmd.Flags().Changed("jobs") {
		o.jobs = cfg.Jobs
	}
	if !cmd.Flags().Changed("redis") {
		o.redis = cfg.Cache.RedisAddr
	}
}

// serveCommand creates the serve command, which runs the HTTP service.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve conversions over HTTP",
		Long: `Serve runs an HTTP service with the same conversion as the root command.

  POST /v1/convert   body is one dependency file (named by ?name=), or
                     multipart/form-data with one file part per source
  GET  /healthz      liveness and version

Parse results are cached in memory, or in Redis with --redis.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.resolve(cmd, c.settings())
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", config.DefaultAddr, "listen `address`")
	cmd.Flags().Int64Var(&opts.maxBody, "max-body", config.DefaultMaxBodyBytes, "maximum request body in `bytes`")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", 0, "parse up to `n` sources of a request in parallel")
	cmd.Flags().StringVar(&opts.redis, "redis", "", "cache parse results in Redis at `addr`")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	logger := loggerFromContext(ctx)
	cfg := c.settings()

	ch, err := c.serverCache(ctx, opts, cfg)
	if err != nil {
		return err
	}
	runner := pipeline.NewRunner(ch, cacheKeyer(opts.redis, cfg), logger)
	runner.TTL = cfg.Cache.TTL.Duration
	defer runner.Close()

	srv := server.New(opts.addr, server.Options{
		Runner:       runner,
		Logger:       logger,
		MaxBodyBytes: opts.maxBody,
		Jobs:         opts.jobs,
	})
	printInfo("Serving on %s", StyleNumber.Render(srv.Addr()))
	return srv.Run(ctx)
}

func (c *CLI) serverCache(ctx context.Context, opts serveOpts, cfg *config.Config) (cache.Cache, error) {
	if opts.redis != "" {
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     opts.redis,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
	}
	if cfg.Cache.MemoryItems == 0 {
		return cache.NewNullCache(), nil
	}
	return cache.NewMemoryCache(cfg.Cache.MemoryItems)
}
