package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depotview/pkg/config"
	"github.com/matzehuels/depotview/pkg/errors"
	"github.com/matzehuels/depotview/pkg/provider/file"
)

// importCommand loads a record file into the MongoDB store.
func (c *CLI) importCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "import <depot> <file>",
		Short:   "Replace a depot's locations in MongoDB with a record file",
		Example: `  depotview import 7 layouts/7.yaml --mongo-uri mongodb://localhost:27017`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Provider.Kind != config.ProviderMongo {
				return errors.Config("import writes to MongoDB: use --mongo-uri or provider kind mongo")
			}
			depot := args[0]
			if err := errors.ValidateDepotID(depot); err != nil {
				return err
			}

			spin := newSpinnerWithContext(cmd.Context(), "Reading "+args[1]+"...")
			spin.Start()
			l, err := file.ReadFile(args[1])
			if err != nil {
				spin.StopWithError(errors.UserMessage(err))
				return err
			}
			l.Depot = depot

			ctx := cmd.Context()
			cfg.Cache.Backend = config.CacheNone
			b, err := openBackend(ctx, cfg)
			if err != nil {
				spin.Stop()
				return err
			}
			defer b.Close(context.Background())

			spin.SetMessage(fmt.Sprintf("Writing %d locations...", len(l.Records)))
			if err := b.mongo.Import(ctx, l); err != nil {
				spin.StopWithError(errors.UserMessage(err))
				return err
			}
			spin.StopWithSuccess(fmt.Sprintf("Imported %d locations into depot %s", len(l.Records), depot))
			return nil
		},
	}
	return cmd
}
