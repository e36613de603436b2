package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hrhrng/clash-sub002/pkg/document"
	"github.com/hrhrng/clash-sub002/pkg/render"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output  string        // output file path, "-" for stdout
	format  render.Format // dot, svg or png
	labels  bool          // add kind and size to labels
	noCache bool
}

func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{format: render.FormatSVG}
	var format string

	cmd := &cobra.Command{
		Use:   "render [doc.json]",
		Short: "Draw a document's boxes for debugging",
		Long: `Draw a document's boxes for debugging.

Every node is drawn at its absolute canvas position with its canvas size.
Groups are dashed boxes below their content and edges are straight arrows.
The dot format needs no Graphviz; svg and png are rendered with neato.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.format = render.Format(strings.ToLower(format))
			return c.runRender(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", `output file, "-" for stdout (default: <input>.<format>)`)
	cmd.Flags().StringVarP(&format, "format", "f", string(render.FormatSVG), "output format: dot, svg, png")
	cmd.Flags().BoolVarP(&opts.labels, "labels", "l", false, "show node kind and size")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, opts renderOpts) error {
	if !render.ValidFormats[opts.format] {
		return fmt.Errorf("invalid format: %q (must be one of: dot, svg, png)", opts.format)
	}
	doc, err := document.ReadFile(input)
	if err != nil {
		return fmt.Errorf("load document %s: %w", input, err)
	}

	runner, cc, err := c.newRunner(opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer cc.Close()

	spinner := newSpinnerWithContext(ctx, "Rendering...")
	spinner.Start()
	out, cached, err := runner.RenderWithCacheInfo(ctx, doc, opts.format, render.Options{Labels: opts.labels})
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()
	if interrupted(ctx) {
		return ctx.Err()
	}

	path := opts.output
	if path == "" {
		path = strings.TrimSuffix(input, ".json") + "." + string(opts.format)
	}
	if path == "-" {
		_, err := os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", path, err)
	}

	printSuccess("Rendered %d nodes", len(doc.Nodes))
	printFile(path)
	printStats(len(doc.Nodes), 0, cached)
	return nil
}
