package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hrhrng/clash-sub002/pkg/canvas"
	"github.com/hrhrng/clash-sub002/pkg/document"
	"github.com/hrhrng/clash-sub002/pkg/engine"
	"github.com/hrhrng/clash-sub002/pkg/errors"
	"github.com/hrhrng/clash-sub002/pkg/pipeline"
)

// outputFlags are shared by every command that writes a document.
type outputFlags struct {
	output  string
	inPlace bool
	patches string
	noCache bool
}

func (f *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "", `output file, "-" for stdout (default: <input>.<op>.json)`)
	cmd.Flags().BoolVarP(&f.inPlace, "in-place", "i", false, "overwrite the input document")
	cmd.Flags().StringVar(&f.patches, "patches", "", "also write the patch set to this file")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
}

// =============================================================================
// Scope Operations
// =============================================================================

func (c *CLI) relayoutCommand() *cobra.Command {
	var flags outputFlags
	var opts pipeline.Options

	cmd := &cobra.Command{
		Use:   "relayout [doc.json]",
		Short: "Arrange a scope into columns following its edges",
		Long: `Arrange a scope into columns following its edges.

Nodes are placed in the column after their furthest producer and stacked top
to bottom inside each column. Cycles are broken, and nodes without incoming
edges start the first column. With --all every group is arranged, innermost
first, and groups grow to fit.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Op = engine.OpRelayout
			return c.runOperation(cmd.Context(), args[0], opts, flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&opts.Scope, "scope", "s", "", "group to arrange (default: root)")
	cmd.Flags().BoolVarP(&opts.All, "all", "a", false, "arrange every scope")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "ignore cached results")

	return cmd
}

func (c *CLI) tidyCommand() *cobra.Command {
	var flags outputFlags
	var opts pipeline.Options

	cmd := &cobra.Command{
		Use:   "tidy [doc.json]",
		Short: "Snap a scope's members into a grid",
		Long: `Snap a scope's members into a grid.

Members are bucketed into rows and columns by their current positions, so the
grid keeps the arrangement the user already had. Row heights and column widths
follow the largest member.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Op = engine.OpTidy
			return c.runOperation(cmd.Context(), args[0], opts, flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&opts.Scope, "scope", "s", "", "group to tidy (default: root)")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "ignore cached results")

	return cmd
}

func (c *CLI) maintainCommand() *cobra.Command {
	var flags outputFlags

	cmd := &cobra.Command{
		Use:   "maintain [doc.json]",
		Short: "Grow every group to fit its content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runOperation(cmd.Context(), args[0], pipeline.Options{Op: engine.OpMaintain}, flags)
		},
	}

	flags.register(cmd)
	return cmd
}

// =============================================================================
// Gesture Operations
// =============================================================================

func (c *CLI) moveCommand() *cobra.Command {
	var flags outputFlags
	var x, y float64

	cmd := &cobra.Command{
		Use:   "move [doc.json] [node-id]",
		Short: "Move a node and let the canvas react",
		Long: `Move a node and let the canvas react.

The node is set to --x/--y (relative to its parent) and then treated as if the
user had dropped it there: it may change group, groups grow around it, and it
steps aside if it lands on a sibling. Without --x/--y the node's stored
position is used.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			edit := func(n *document.Node) {
				if cmd.Flags().Changed("x") {
					n.Position.X = x
				}
				if cmd.Flags().Changed("y") {
					n.Position.Y = y
				}
			}
			return c.runGesture(cmd.Context(), args[0], args[1], engine.OpMoved, edit, flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().Float64Var(&x, "x", 0, "new x position")
	cmd.Flags().Float64Var(&y, "y", 0, "new y position")

	return cmd
}

func (c *CLI) resizeCommand() *cobra.Command {
	var flags outputFlags
	var width, height float64

	cmd := &cobra.Command{
		Use:   "resize [doc.json] [node-id]",
		Short: "Resize a node and push its neighbors away",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			edit := func(n *document.Node) {
				if width > 0 {
					n.Width = width
				}
				if height > 0 {
					n.Height = height
				}
			}
			return c.runGesture(cmd.Context(), args[0], args[1], engine.OpResized, edit, flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().Float64Var(&width, "width", 0, "new width")
	cmd.Flags().Float64Var(&height, "height", 0, "new height")

	return cmd
}

func (c *CLI) insertCommand() *cobra.Command {
	var flags outputFlags
	var kind, after string

	cmd := &cobra.Command{
		Use:   "insert [doc.json] [node-id]",
		Short: "Place a node that has no position yet",
		Long: `Place a node that has no position yet.

If the node is not in the document it is created with --type, and --after
connects it to a producer. A node at the sentinel position (-1, -1) is placed
in the column after its producers; any other node keeps its position and only
resolves its group and collisions.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, id := args[0], args[1]
			doc, err := document.ReadFile(input)
			if err != nil {
				return fmt.Errorf("load document %s: %w", input, err)
			}
			if doc.Index(id) < 0 {
				doc.Nodes = append(doc.Nodes, document.Node{
					ID:       id,
					Type:     kind,
					Position: canvas.SentinelPosition,
				})
			}
			if after != "" {
				doc.Edges = append(doc.Edges, document.Edge{
					ID:     after + "->" + id,
					Source: after,
					Target: id,
				})
			}
			return c.execute(cmd.Context(), input, doc, pipeline.Options{Op: engine.OpAdded, Trigger: id}, flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&kind, "type", "t", string(canvas.KindText), "type of a created node")
	cmd.Flags().StringVar(&after, "after", "", "producer to connect the node to")

	return cmd
}

// =============================================================================
// Execution
// =============================================================================

// runGesture applies edit to the trigger node before running op.
func (c *CLI) runGesture(ctx context.Context, input, id string, op engine.Op, edit func(*document.Node), flags outputFlags) error {
	doc, err := document.ReadFile(input)
	if err != nil {
		return fmt.Errorf("load document %s: %w", input, err)
	}
	i := doc.Index(id)
	if i < 0 {
		return errors.New(errors.ErrCodeNodeNotFound, "node %q not found in %s", id, input)
	}
	edit(&doc.Nodes[i])
	return c.execute(ctx, input, doc, pipeline.Options{Op: op, Trigger: id}, flags)
}

// runOperation loads the input and runs a scope operation on it.
func (c *CLI) runOperation(ctx context.Context, input string, opts pipeline.Options, flags outputFlags) error {
	doc, err := document.ReadFile(input)
	if err != nil {
		return fmt.Errorf("load document %s: %w", input, err)
	}
	return c.execute(ctx, input, doc, opts, flags)
}

func (c *CLI) execute(ctx context.Context, input string, doc *document.Document, opts pipeline.Options, flags outputFlags) error {
	runner, cc, err := c.newRunner(flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer cc.Close()

	opts.Logger = c.Logger
	prog := newProgress(c.Logger)

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Running %s...", opts.Op))
	spinner.Start()
	res, err := runner.Execute(ctx, doc, opts)
	if err != nil {
		spinner.StopWithError(fmt.Sprintf("%s failed", opts.Op))
		return err
	}
	spinner.Stop()

	if interrupted(ctx) {
		return ctx.Err()
	}
	prog.done(fmt.Sprintf("%s of %d nodes", opts.Op, res.Stats.NodeCount))

	out := outputPath(input, flags.output, string(opts.Op), flags.inPlace)
	if out == "-" {
		return document.Write(os.Stdout, res.Document)
	}
	if err := document.WriteFile(out, res.Document); err != nil {
		return fmt.Errorf("write output %s: %w", out, err)
	}
	if flags.patches != "" {
		if err := document.WritePatchSetFile(flags.patches, res.PatchSet); err != nil {
			return fmt.Errorf("write patches %s: %w", flags.patches, err)
		}
	}

	printSuccess("%s complete", opts.Op)
	printFile(out)
	if flags.patches != "" {
		printFile(flags.patches)
	}
	printStats(res.Stats.NodeCount, res.Stats.PatchCount, res.CacheHit)
	printOutcome(res.PatchSet)
	if flags.patches != "" {
		printNewline()
		printNextStep("Inspect", appName+" inspect "+flags.patches)
	}
	return nil
}
