package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/triage-risk-service/internal/domain"
	"github.com/triage-risk-service/internal/setup"
)

func newScoreCommand(a *app) *cobra.Command {
	var (
		symptoms []string
		age      int
		req      domain.PredictionRequest
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Run the risk pipeline once and print the result as JSON",
		Example: `  triagectl score --symptom fever --symptom cough --age 67
  triagectl score --symptom severe_chest_pain,shortness_of_breath`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The cache is pointless for a single offline call.
			cfg := *a.cfg
			cfg.Cache.Enabled = false

			rt, err := setup.NewRuntime(cmd.Context(), &cfg, a.logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			req.Symptoms = symptoms
			if cmd.Flags().Changed("age") {
				req.Age = &age
			}

			result, err := rt.Triage.Assess(cmd.Context(), &req)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringSliceVarP(&symptoms, "symptom", "s", nil, "symptom identifier (repeatable or comma separated)")
	cmd.Flags().IntVar(&age, "age", 0, "patient age in years")
	cmd.Flags().StringVar(&req.Gender, "gender", "", "patient gender (reported only)")
	cmd.Flags().StringVar(&req.Duration, "duration", "", "symptom duration (reported only)")
	cmd.Flags().StringVar(&req.Severity, "severity", "", "user-reported severity (reported only)")
	return cmd
}
