package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/depotview/pkg/errors"
	"github.com/matzehuels/depotview/pkg/provider"
)

// stockWorkers bounds concurrent stock requests of depots --stock.
const stockWorkers = 4

// depotsCommand lists the depots known to the provider.
func (c *CLI) depotsCommand() *cobra.Command {
	var withStock bool

	cmd := &cobra.Command{
		Use:   "depots",
		Short: "List the depots the provider knows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			b, err := openBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer b.Close(context.Background())

			depots, err := b.Depots(ctx)
			if err != nil {
				return err
			}
			if len(depots) == 0 {
				printInfo("No depots")
				return nil
			}

			var stock []stockResult
			if withStock {
				stock = fetchStock(ctx, b, depots)
			}
			for i, d := range depots {
				name := d.Name
				if name == "" {
					name = StyleDim.Render("-")
				}
				if stock == nil {
					printKeyValue(d.ID, name)
					continue
				}
				if err := stock[i].err; err != nil {
					printKeyValue(d.ID, name+"  "+StyleWarning.Render(errors.UserMessage(err)))
					continue
				}
				info := stock[i].info
				printKeyValue(d.ID, fmt.Sprintf("%s  %s stock, %s full", name,
					StyleNumber.Render(fmt.Sprintf("%g", info.Stock)),
					StyleNumber.Render(fmt.Sprintf("%.0f%%", info.FillRate*100))))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withStock, "stock", false, "show current stock and fill rate")
	return cmd
}

type stockResult struct {
	info provider.StockInfo
	err  error
}

// fetchStock asks for the stock of every depot. A failed depot keeps its
// error and does not stop the others.
func fetchStock(ctx context.Context, p provider.Provider, depots []provider.Depot) []stockResult {
	out := make([]stockResult, len(depots))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(stockWorkers)
	for i, d := range depots {
		g.Go(func() error {
			out[i].info, out[i].err = p.Stock(ctx, d.ID)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
