package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depotview/pkg/config"
	"github.com/matzehuels/depotview/pkg/errors"
	"github.com/matzehuels/depotview/pkg/provider"
	"github.com/matzehuels/depotview/pkg/scene"
	"github.com/matzehuels/depotview/pkg/sink"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string   // output file path (or base path for multiple outputs)
	formats  []string // output formats: "json", "svg"
	indent   bool     // indent JSON output
	boxIDs   bool     // print location IDs on the floor plan
	popups   bool     // hover popups in the floor plan
	selected string   // location highlighted in the floor plan
	scale    float64  // SVG pixels per world unit
	filter   provider.Filter
}

// renderCommand fetches one depot and exports its scene.
func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr string
	opts := renderOpts{popups: true, scale: sink.DefaultScale}

	cmd := &cobra.Command{
		Use:   "render [depot]",
		Short: "Export a depot scene as JSON or an SVG floor plan",
		Long: `Fetch the locations of a depot, build its scene and write it out.

The JSON export carries every box with its position, size and color plus
the corridor labels and the records that were skipped. The SVG export is a
top-down floor plan with hover popups.`,
		Example: `  depotview render 7 --path layouts/ -f json,svg -o out/depot7
  depotview render --base-url https://warehouse.example.com/api 7 -f svg
  depotview render 7 --category food --weight heavy -f svg -o out/food`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			depot, err := depotArg(args, cfg)
			if err != nil {
				return err
			}
			opts.formats = parseFormats(formatsStr)
			if err := validateFormats(opts.formats); err != nil {
				return err
			}
			if opts.output == "" {
				opts.output = depot
			}
			return c.runRender(cmd.Context(), cfg, depot, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output path (default: the depot id)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output formats: json, svg (comma-separated)")
	cmd.Flags().BoolVar(&opts.indent, "indent", false, "indent JSON output")
	cmd.Flags().BoolVar(&opts.boxIDs, "ids", false, "print location ids on the floor plan")
	cmd.Flags().BoolVar(&opts.popups, "popups", opts.popups, "hover popups in the floor plan")
	cmd.Flags().StringVar(&opts.selected, "select", "", "highlight a location on the floor plan")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "floor plan pixels per world unit")
	cmd.Flags().StringSliceVar(&opts.filter.Filters, "filter", nil, "placement filters (http provider)")
	cmd.Flags().StringSliceVar(&opts.filter.Categories, "category", nil, "product categories to show (http provider)")
	cmd.Flags().StringSliceVar(&opts.filter.Weights, "weight", nil, "product weight classes to show (http provider)")

	return cmd
}

func validateFormats(formats []string) error {
	for _, f := range formats {
		switch f {
		case FormatJSON, FormatSVG:
		default:
			return errors.New(errors.ErrCodeInvalidInput, "unknown format %q (want json or svg)", f)
		}
	}
	return nil
}

func (c *CLI) runRender(ctx context.Context, cfg config.Config, depot string, opts renderOpts) error {
	logger := loggerFromContext(ctx)

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close(context.Background())

	src, err := provider.Filtered(b.Provider, opts.filter)
	if err != nil {
		return err
	}
	if !opts.filter.IsZero() {
		logger.Debug("filtered layout", "depot", depot, "filter", opts.filter.Normalize())
	}

	store := scene.NewStore(cfg.Grid)
	r, err := provider.NewRefresher(src, store, depot,
		provider.WithGrid(cfg.Grid), provider.WithLogger(logger))
	if err != nil {
		return err
	}

	spin := newSpinnerWithContext(ctx, fmt.Sprintf("Fetching depot %s...", depot))
	spin.Start()
	prog := newProgress(logger, "depot", depot)
	g, err := r.Refresh(ctx)
	spin.Stop()
	if err != nil {
		printError("Depot %s: %s", depot, errors.UserMessage(err))
		return err
	}
	prog.done("Built scene")
	printSceneStats(g, r.FillRate())

	paths := outputPaths(opts.output, opts.formats)
	for _, f := range opts.formats {
		data, err := renderFormat(g, f, depot, r.FillRate(), cfg, opts)
		if err != nil {
			return err
		}
		if dir := filepath.Dir(paths[f]); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", dir)
			}
		}
		if err := os.WriteFile(paths[f], data, 0o644); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", paths[f])
		}
		printFile(paths[f])
	}
	return nil
}

func renderFormat(g *scene.Graph, format, depot string, fill float64, cfg config.Config, opts renderOpts) ([]byte, error) {
	switch format {
	case FormatJSON:
		cam := cfg.Camera.Build(cfg.Viewport.Width / cfg.Viewport.Height)
		jopts := []sink.JSONOption{sink.WithDepot(depot), sink.WithFillRate(fill), sink.WithCamera(*cam)}
		if opts.indent {
			jopts = append(jopts, sink.WithIndent())
		}
		return sink.RenderJSON(g, jopts...)
	case FormatSVG:
		sopts := []sink.SVGOption{sink.WithScale(opts.scale)}
		if opts.popups {
			sopts = append(sopts, sink.WithPopups())
		}
		if opts.boxIDs {
			sopts = append(sopts, sink.WithBoxIDs())
		}
		if opts.selected != "" {
			sopts = append(sopts, sink.WithSelected(opts.selected))
		}
		return sink.RenderSVG(g, sopts...), nil
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "unknown format %q", format)
}

// outputPaths maps each format to its file. A single format keeps an
// output path that already has an extension.
func outputPaths(output string, formats []string) map[string]string {
	paths := make(map[string]string, len(formats))
	if len(formats) == 1 && filepath.Ext(output) != "" {
		paths[formats[0]] = output
		return paths
	}
	base := strings.TrimSuffix(output, filepath.Ext(output))
	for _, f := range formats {
		paths[f] = base + "." + f
	}
	return paths
}
