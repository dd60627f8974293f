// Package cli implements triagectl, the operator tool for offline scoring,
// schema migrations, training data movement and model bootstrapping.
package cli

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/triage-risk-service/internal/config"
	"github.com/triage-risk-service/internal/domain"
	"github.com/triage-risk-service/internal/logging"
)

// app carries per-invocation state shared by subcommands.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *domain.Config
	logger  *logrus.Logger
	closer  io.Closer
}

// NewRootCommand builds the triagectl command tree on a fresh viper instance.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "triagectl",
		Short:         "Operate the triage risk service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.closer != nil {
				return a.closer.Close()
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default searches ./config.yaml, ./config/, /etc/triage-service/)")
	flags.String("log-level", "", "log level (overrides logging.level)")
	flags.String("training-driver", "", "training store driver: sqlite or postgres")
	flags.String("training-sqlite-path", "", "sqlite training store path")
	flags.String("model-source", "", "risk model source: none, file, bootstrap or remote")

	bind := map[string]string{
		"logging.level":        "log-level",
		"training.driver":      "training-driver",
		"training.sqlite_path": "training-sqlite-path",
		"model.source":         "model-source",
	}
	for key, flag := range bind {
		// Lookup cannot fail for flags registered above.
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(
		newScoreCommand(a),
		newMigrateCommand(a),
		newTrainingCommand(a),
		newModelCommand(a),
	)
	return root
}

func (a *app) init() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	}
	manager, err := config.NewManagerWithViper(a.v)
	if err != nil {
		return err
	}
	cfg := manager.GetConfig()

	// Logs go to stderr so command output stays machine readable.
	logCfg := cfg.Logging
	if logCfg.Output == "" || logCfg.Output == "stdout" {
		logCfg.Output = "stderr"
	}
	logger, closer, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("configuring logging: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	a.closer = closer
	return nil
}
