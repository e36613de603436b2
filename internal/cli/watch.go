package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/hrhrng/clash-sub002/pkg/document"
	"github.com/hrhrng/clash-sub002/pkg/engine"
	"github.com/hrhrng/clash-sub002/pkg/pipeline"
)

const watchSettle = 200 * time.Millisecond

func (c *CLI) watchCommand() *cobra.Command {
	var op string
	var scope string

	cmd := &cobra.Command{
		Use:   "watch [doc.json]",
		Short: "Keep a document laid out while it is edited",
		Long: `Keep a document laid out while it is edited.

Every time the file is saved, the operation runs (maintain by default) and the
result is written back in place when it changes anything. Since the
operations are idempotent, the write-back settles after one round.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := pipeline.Options{Op: engine.Op(op), Scope: scope, Logger: c.Logger}
			if pipeline.NeedsTrigger(opts.Op) {
				return fmt.Errorf("watch runs scope operations only (maintain, relayout, tidy), got %q", op)
			}
			if err := opts.Validate(); err != nil {
				return err
			}
			return c.runWatch(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&op, "op", string(engine.OpMaintain), "operation: maintain, relayout, tidy")
	cmd.Flags().StringVarP(&scope, "scope", "s", "", "scope for relayout and tidy (default: root)")

	return cmd
}

func (c *CLI) runWatch(ctx context.Context, path string, opts pipeline.Options) error {
	runner, cc, err := c.newRunner(false)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer cc.Close()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	// Editors often replace the file, so watch the directory.
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	printInfo("Watching %s (%s)", path, opts.Op)
	c.watchOnce(ctx, runner, path, opts)

	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			printNewline()
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			settle = time.After(watchSettle)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			c.Logger.Warn("watch error", "error", err)
		case <-settle:
			settle = nil
			c.watchOnce(ctx, runner, path, opts)
		}
	}
}

// watchOnce runs one round. Errors are reported and watching continues, since
// a half-saved file is common.
func (c *CLI) watchOnce(ctx context.Context, runner *pipeline.Runner, path string, opts pipeline.Options) {
	doc, err := document.ReadFile(path)
	if err != nil {
		printWarning("%v", err)
		return
	}
	res, err := runner.Execute(ctx, doc, opts)
	if err != nil {
		printWarning("%v", err)
		return
	}
	if res.PatchSet.NoOp {
		c.Logger.Debug("layout settled", "path", path)
		return
	}
	if err := document.WriteFile(path, res.Document); err != nil {
		printError("write %s: %v", path, err)
		return
	}
	printSuccess("%s %s", time.Now().Format("15:04:05"), opts.Op)
	printStats(res.Stats.NodeCount, res.Stats.PatchCount, res.CacheHit)
	printOutcome(res.PatchSet)
}
