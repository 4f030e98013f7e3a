package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newMetadataCommand(load appLoader) *cobra.Command {
	var (
		serviceName string
		outFile     string
		pretty      bool
	)

	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Render the metadata document of a service",
		Example: `  breezegen metadata --service NorthBreeze --pretty
  breezegen metadata -s NorthBreeze -o metadata.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			doc, err := a.Metadata.Metadata(cmd.Context(), serviceName)
			if err != nil {
				return err
			}

			body := doc.Body
			if pretty {
				var buf bytes.Buffer
				if err := json.Indent(&buf, body, "", "  "); err != nil {
					return fmt.Errorf("failed to format metadata: %w", err)
				}
				body = buf.Bytes()
			}

			if outFile == "" {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), string(body))
				return err
			}

			if err := os.WriteFile(outFile, append(body, '\n'), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", outFile, err)
			}
			color.New(color.FgGreen).Fprintf(cmd.ErrOrStderr(), "✓ wrote %s (%d types, version %s)\n", outFile, doc.TypeCount, doc.Version)
			return nil
		},
	}

	cmd.Flags().StringVarP(&serviceName, "service", "s", "", "Breeze service name")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the JSON document")
	_ = cmd.MarkFlagRequired("service")

	return cmd
}

func newPublishCommand(load appLoader) *cobra.Command {
	var serviceName string

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish the metadata document of a service to the configured targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			names := []string{serviceName}
			if serviceName == "" {
				names = a.Catalog.Names()
			}

			var errs []error
			for _, name := range names {
				if err := a.Metadata.Publish(cmd.Context(), name); err != nil {
					color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "✗ %s: %v\n", name, err)
					errs = append(errs, err)
					continue
				}
				color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ published %s\n", name)
			}
			return errors.Join(errs...)
		},
	}

	cmd.Flags().StringVarP(&serviceName, "service", "s", "", "Breeze service name (default: all services)")
	return cmd
}

func newServicesCommand(load appLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List the registered Breeze services",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			nameColor := color.New(color.FgCyan, color.Bold)
			for _, info := range a.Metadata.Services() {
				nameColor.Fprint(cmd.OutOrStdout(), info.Name)
				fmt.Fprintf(cmd.OutOrStdout(), "  %d models\n", info.ModelCount)
			}
			return nil
		},
	}
}
