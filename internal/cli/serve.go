package cli

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/hrhrng/clash-sub002/pkg/cache"
	"github.com/hrhrng/clash-sub002/pkg/config"
	"github.com/hrhrng/clash-sub002/pkg/engine"
	"github.com/hrhrng/clash-sub002/pkg/observability"
	"github.com/hrhrng/clash-sub002/pkg/persist"
	"github.com/hrhrng/clash-sub002/pkg/pipeline"
	"github.com/hrhrng/clash-sub002/pkg/server"
)

func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve layout operations over HTTP",
		Long: `Serve layout operations over HTTP.

The cache backend (none, file, redis), the persistence store (none, memory,
file, mongo) and metrics are taken from the config file. Environment variables
CLASHLAYOUT_ADDR, CLASHLAYOUT_REDIS_ADDR and CLASHLAYOUT_MONGO_URI override it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return c.runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, cfg *config.Config) error {
	var metrics http.Handler
	if cfg.Server.Metrics {
		prom := observability.NewPrometheusHooks(appName)
		prom.Register()
		metrics = prom.Handler()
	}

	cc, err := c.serverCache(ctx, cfg.Server)
	if err != nil {
		return err
	}
	defer cc.Close()

	store, err := persist.Open(ctx, cfg.Persist)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	var batcher *persist.Batcher
	if store != nil {
		defer store.Close()
		batcher = persist.NewBatcher(store, persist.Options{
			Debounce: cfg.Persist.Debounce.Std(),
			Logger:   c.Logger,
		})
		if err := batcher.Start(ctx); err != nil {
			return err
		}
	}

	eng := engine.New(cfg.Layout, engine.WithLogger(c.Logger))
	var keyer cache.Keyer
	if cfg.Server.KeyPrefix != "" {
		keyer = cache.NewScopedKeyer(nil, cfg.Server.KeyPrefix)
	}
	runner := pipeline.NewRunner(eng, cc, keyer, c.Logger)
	if ttl := cfg.Server.CacheTTL.Std(); ttl > 0 {
		runner.LayoutTTL = ttl
	}
	srv := server.New(runner, server.Options{
		Batcher:      batcher,
		Metrics:      metrics,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Logger:       c.Logger,
	})

	printSuccess("Serving layout API")
	printKeyValue("address", cfg.Server.Addr)
	printKeyValue("cache", cfg.Server.Cache)
	printKeyValue("store", cfg.Persist.Store)
	printKeyValue("metrics", fmt.Sprint(cfg.Server.Metrics))
	printNewline()

	err = srv.ListenAndServe(ctx, cfg.Server.Addr)
	if batcher != nil {
		if stopErr := batcher.Stop(context.WithoutCancel(ctx)); stopErr != nil {
			c.Logger.Debug("batcher stop", "error", stopErr)
		}
	}
	return err
}

// serverCache opens the configured cache backend, instrumented for metrics.
func (c *CLI) serverCache(ctx context.Context, cfg config.Server) (cache.Cache, error) {
	switch cfg.Cache {
	case config.CacheFile:
		fc, err := cache.NewFileCache(cfg.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("open file cache: %w", err)
		}
		return cache.Instrument(fc), nil
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{Addr: cfg.RedisAddr})
		if err != nil {
			return nil, fmt.Errorf("open redis cache: %w", err)
		}
		return cache.Instrument(rc), nil
	default:
		return cache.NewNullCache(), nil
	}
}
