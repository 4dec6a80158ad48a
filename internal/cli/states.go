package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depotview/pkg/errors"
	"github.com/matzehuels/depotview/pkg/interact"
	"github.com/matzehuels/depotview/pkg/sink"
)

// statesCommand prints the interaction state machine.
func (c *CLI) statesCommand() *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "states",
		Short: "Print the interaction state machine as DOT or SVG",
		Example: `  depotview states | dot -Tpng > states.png
  depotview states -f svg -o states.svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dot := sink.StatesDOT(interact.Transitions())
			var data []byte
			switch format {
			case FormatDOT, "":
				data = []byte(dot)
			case FormatSVG:
				svg, err := sink.RenderStatesSVG(cmd.Context(), dot)
				if err != nil {
					return err
				}
				data = svg
			default:
				return errors.New(errors.ErrCodeInvalidInput, "unknown format %q (want dot or svg)", format)
			}

			if output == "" || output == "-" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), string(data))
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", output)
			}
			printSuccess("Wrote %d transitions", len(interact.Transitions()))
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", FormatDOT, "output format: dot or svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}
