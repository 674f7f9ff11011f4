package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/wekeepgrowing/medvoa-backend/internal/app"
	"github.com/wekeepgrowing/medvoa-backend/internal/config"
	"github.com/wekeepgrowing/medvoa-backend/pkg/logger"
	"go.uber.org/zap"
)

// options are the persistent flags shared by every subcommand
type options struct {
	configPath string
	verbose    bool
}

func newRootCommand(version string) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "medvoactl",
		Short: "Operator tool for the MedVoa entitlement service",
		Long: `medvoactl manages the entitlement service datastore and inspects
subscription state, entitlement tables and usage counters.

Configuration is read the same way the server reads it: configs/<APP_ENV>/entitlement.yaml,
overridden by ENTITLEMENT_* environment variables and an optional .env file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a config file (default: configs/<APP_ENV>/entitlement.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")

	// Add subcommands
	rootCmd.AddCommand(
		newMigrateCommand(opts),
		newSubscriptionCommand(opts),
		newEntitlementsCommand(),
		newUsageCommand(opts),
	)

	return rootCmd
}

func (o *options) loadConfig() (*config.Config, error) {
	if o.configPath != "" {
		return config.LoadConfigFile(o.configPath)
	}
	return config.LoadConfig()
}

func (o *options) logger() (*zap.Logger, error) {
	level := "warn"
	if o.verbose {
		level = "debug"
	}
	return logger.NewZapLogger(logger.Config{
		Level:   level,
		Format:  "console",
		Output:  "stderr",
		Service: "medvoactl",
	})
}

// buildApp loads configuration and connects every dependency
func (o *options) buildApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := o.logger()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return app.Build(cmd.Context(), cfg, log)
}
