package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/triage-risk-service/internal/database"
	"github.com/triage-risk-service/internal/repository"
	"github.com/triage-risk-service/internal/service"
	"github.com/triage-risk-service/internal/setup"
)

func newTrainingCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "training",
		Short: "Move duration-model training samples in and out of the store",
	}
	cmd.AddCommand(
		newTrainingExportCommand(a),
		newTrainingImportCommand(a),
		newTrainingPullCommand(a),
	)
	return cmd
}

func newTrainingExportCommand(a *app) *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every stored sample as JSON or CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "csv" {
				return fmt.Errorf("unsupported format %q (want json or csv)", format)
			}

			store, err := setup.OpenTrainingStore(a.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("creating %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}

			if format == "csv" {
				err = store.ExportCSV(cmd.Context(), w)
			} else {
				err = store.ExportJSON(cmd.Context(), w)
			}
			if err != nil {
				return err
			}
			if out != "" && out != "-" {
				a.logger.WithField("path", out).Info("Training samples exported")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "export format: json or csv")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newTrainingImportCommand(a *app) *cobra.Command {
	var in string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a JSON export, skipping samples already stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(in)
			if err != nil {
				return fmt.Errorf("opening %s: %w", in, err)
			}
			defer f.Close()

			store, err := setup.OpenTrainingStore(a.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			imported, skipped, err := store.ImportJSON(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported=%d skipped=%d\n", imported, skipped)
			return nil
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "", "JSON export to import")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func newTrainingPullCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Copy completed interactions from PostgreSQL into the training store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, err := database.NewConnection(ctx, a.cfg.Database, a.logger)
			if err != nil {
				return err
			}
			defer db.Close()

			samples, err := repository.NewInteractionRepository(db.Pool, a.logger).FetchTrainingData(ctx, limit)
			if err != nil {
				return err
			}
			if len(samples) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no completed interactions found")
				return nil
			}

			store, err := setup.OpenTrainingStore(a.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			intake := service.NewTrainingService(store, a.cfg.Training.RetrainThreshold, a.cfg.Training.RetrainCommand, a.logger)
			result, err := intake.Ingest(ctx, samples, repository.SourceInteractions)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.Message)
			if result.TrainingSuggestion != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n  %s\n", result.TrainingSuggestion, result.Command)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum interactions to fetch (0 for all)")
	return cmd
}
