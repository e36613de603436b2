// Package cli implements the clashlayout command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/hrhrng/clash-sub002/pkg/buildinfo"
	"github.com/hrhrng/clash-sub002/pkg/cache"
	"github.com/hrhrng/clash-sub002/pkg/config"
	"github.com/hrhrng/clash-sub002/pkg/engine"
	"github.com/hrhrng/clash-sub002/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "clashlayout"

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

	configPath string
	config     *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "clashlayout arranges nodes on an infinite canvas",
		Long: `clashlayout is the spatial layout engine of a node-based canvas.

It keeps nodes from overlapping, grows groups around their content, places new
nodes after their producers and tidies scopes into grids. Every command reads a
canvas document, runs one layout operation and writes the patched document.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (.toml, .yaml or .json)")

	// Register all subcommands
	root.AddCommand(c.relayoutCommand())
	root.AddCommand(c.tidyCommand())
	root.AddCommand(c.maintainCommand())
	root.AddCommand(c.moveCommand())
	root.AddCommand(c.resizeCommand())
	root.AddCommand(c.insertCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Config
// =============================================================================

// loadConfig reads the --config file once. Without a file the defaults and
// environment overrides apply.
func (c *CLI) loadConfig() (*config.Config, error) {
	if c.config != nil {
		return c.config, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	raiseVerbosity(c.Logger, cfg.Log.Level)
	c.config = cfg
	return cfg, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, cache.Cache, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	cc, err := c.newCache(noCache)
	if err != nil {
		return nil, nil, err
	}
	eng := engine.New(cfg.Layout, engine.WithLogger(c.Logger))
	return pipeline.NewRunner(eng, cc, nil, c.Logger), cc, nil
}

// newCache opens the local file cache. A cache that cannot be opened only
// costs speed, so it degrades to no caching.
func (c *CLI) newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := c.cacheDir()
	if err != nil {
		c.Logger.Debug("cache disabled", "error", err)
		return cache.NewNullCache(), nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		c.Logger.Debug("cache disabled", "error", err)
		return cache.NewNullCache(), nil
	}
	return cache.Instrument(fc), nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the configured cache directory, or the user cache
// directory (~/.cache/clashlayout/ on Linux).
func (c *CLI) cacheDir() (string, error) {
	if cfg, err := c.loadConfig(); err == nil && cfg.Server.CacheDir != "" {
		return cfg.Server.CacheDir, nil
	}
	return cache.DefaultDir()
}

// outputPath returns the explicit output, the input itself for in-place
// writes, or <input>.<suffix>.json.
func outputPath(input, output, suffix string, inPlace bool) string {
	switch {
	case output != "":
		return output
	case inPlace:
		return input
	default:
		return strings.TrimSuffix(input, filepath.Ext(input)) + "." + suffix + ".json"
	}
}

// =============================================================================
// Context
// =============================================================================

// interrupted reports a cancelled command without printing an error.
func interrupted(ctx context.Context) bool {
	if ctx.Err() != nil {
		fmt.Fprintln(os.Stderr)
		return true
	}
	return false
}
