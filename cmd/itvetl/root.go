package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"itvetl/internal/config"
	"itvetl/internal/logger"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "itvetl",
		Short:         "Reconcile regional ITV station directories into one store",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ./itvetl.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level")

	root.AddCommand(
		newLoadCmd(opts),
		newServeCmd(opts),
		newValidateConfigCmd(opts),
	)
	return root
}

// loadConfig reads the configuration and applies flag overrides.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	return cfg, nil
}

// checkConfig logs warnings and returns the first error-level issue.
func checkConfig(log logger.Logger, cfg *config.Config) error {
	for _, iss := range config.Validate(cfg) {
		switch iss.Severity {
		case config.SeverityError:
			return fmt.Errorf("invalid configuration: %w", iss)
		case config.SeverityWarning:
			log.Warn("config warning", logger.String("path", iss.Path), logger.String("message", iss.Message))
		}
	}
	return nil
}

func newLogger(cfg *config.Config) (logger.Logger, error) {
	return logger.New(logger.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
}
