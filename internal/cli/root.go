package cli

import (
	"context"
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"breeze-gateway/internal/app"
	"breeze-gateway/internal/config"
	"breeze-gateway/internal/logging"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// NewRootCommand creates the breezegen command tree
func NewRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "breezegen",
		Short: "Generate Breeze metadata from GORM models",
		Long: `breezegen renders the Breeze metadata document of the compiled-in model services,
writes it to a file or stdout, and publishes it to the configured targets.
It does not need a database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: ./configs/config.yaml or ./config.yaml)")

	loader := func(ctx context.Context) (*app.App, error) {
		cfg, err := config.LoadFile(configPath)
		if err != nil {
			return nil, err
		}
		return app.New(ctx, cfg, logging.Must(cfg.Logging.Level, "console"), app.Options{SkipDatabase: true})
	}

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newMetadataCommand(loader))
	rootCmd.AddCommand(newPublishCommand(loader))
	rootCmd.AddCommand(newServicesCommand(loader))

	return rootCmd
}

// appLoader builds the application from the --config flag
type appLoader func(ctx context.Context) (*app.App, error)

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			titleColor := color.New(color.FgCyan, color.Bold)

			titleColor.Fprint(out, "breezegen version: ")
			fmt.Fprintln(out, Version)
			titleColor.Fprint(out, "Git commit: ")
			fmt.Fprintln(out, GitCommit)
			titleColor.Fprint(out, "Build date: ")
			fmt.Fprintln(out, BuildDate)
			titleColor.Fprint(out, "Go version: ")
			fmt.Fprintln(out, runtime.Version())
		},
	}
}
