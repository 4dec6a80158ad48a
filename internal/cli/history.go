package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depotview/pkg/config"
	"github.com/matzehuels/depotview/pkg/errors"
	"github.com/matzehuels/depotview/pkg/provider"
)

// categoriesCommand lists the product categories of a depot, the values
// render --category accepts.
func (c *CLI) categoriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "categories [depot]",
		Short: "List the product categories of a depot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			depot, err := depotArg(args, cfg)
			if err != nil {
				return err
			}
			cats, err := fetchCategories(cmd.Context(), cfg, depot)
			if err != nil {
				printError("Depot %s: %s", depot, errors.UserMessage(err))
				return err
			}
			if len(cats) == 0 {
				printInfo("No categories in depot %s", depot)
				return nil
			}
			for _, cat := range cats {
				fmt.Fprintln(stdout, StyleValue.Render(cat))
			}
			printNextStep("Show one category", fmt.Sprintf("depotview render %s --category %s -f svg", depot, cats[0]))
			return nil
		},
	}
}

// historyOpts holds the flags of the history command.
type historyOpts struct {
	from string
	to   string
}

// historyCommand prints the recorded changes of one location.
func (c *CLI) historyCommand() *cobra.Command {
	var opts historyOpts
	cmd := &cobra.Command{
		Use:   "history <location> [depot]",
		Short: "Show the stock changes of a location",
		Example: `  depotview history A-01 7 --from 2024-03-01
  depotview history B-04 --from 2024-01-01 --to 2024-02-01`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			depot, err := depotArg(args[1:], cfg)
			if err != nil {
				return err
			}
			from, to, err := opts.bounds()
			if err != nil {
				return err
			}
			entries, err := fetchHistory(cmd.Context(), cfg, depot, args[0], from, to)
			if err != nil {
				printError("%s in depot %s: %s", args[0], depot, errors.UserMessage(err))
				return err
			}
			if len(entries) == 0 {
				printInfo("No changes recorded for %s", args[0])
				return nil
			}
			for _, e := range entries {
				fmt.Fprintln(stdout, historyLine(e))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.from, "from", "", "first day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.to, "to", "", "last day (YYYY-MM-DD)")
	return cmd
}

func (o historyOpts) bounds() (from, to time.Time, err error) {
	parse := func(flag, v string) (time.Time, error) {
		if v == "" {
			return time.Time{}, nil
		}
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return time.Time{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "--%s %q is not a date", flag, v)
		}
		return t, nil
	}
	if from, err = parse("from", o.from); err != nil {
		return
	}
	to, err = parse("to", o.to)
	return
}

func fetchCategories(ctx context.Context, cfg config.Config, depot string) ([]string, error) {
	b, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer b.Close(context.Background())
	return provider.Categories(ctx, b.Provider, depot)
}

func fetchHistory(ctx context.Context, cfg config.Config, depot, location string, from, to time.Time) ([]provider.HistoryEntry, error) {
	b, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer b.Close(context.Background())
	return provider.LocationHistory(ctx, b.Provider, depot, location, from, to)
}

// historyLine renders an entry as sorted key=value pairs.
func historyLine(e provider.HistoryEntry) string {
	var fields map[string]any
	if err := json.Unmarshal(e, &fields); err != nil || len(fields) == 0 {
		return StyleValue.Render(string(e))
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	var out string
	for i, k := range keys {
		if i > 0 {
			out += "  "
		}
		out += StyleDim.Render(k+"=") + StyleValue.Render(fmt.Sprint(fields[k]))
	}
	return out
}
