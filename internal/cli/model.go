package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/triage-risk-service/internal/model"
	"github.com/triage-risk-service/internal/reference"
)

func newModelCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Risk model utilities",
	}

	var out string
	bootstrap := &cobra.Command{
		Use:   "bootstrap",
		Short: "Write the baseline linear model derived from the weight table",
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := reference.LoadWithWeights(a.cfg.Reference.TablesPath, a.cfg.Reference.WeightsPath)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("creating %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			return model.Bootstrap(tables).Save(w)
		},
	}
	bootstrap.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")

	cmd.AddCommand(bootstrap)
	return cmd
}
