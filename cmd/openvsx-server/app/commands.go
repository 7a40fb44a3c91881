// Package app provides the entry point for the Open VSX gallery server application.
package app

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/BuckysMyHero/openvsx/internal/versions"
)

// NewRootCmd assembles the openvsx-server command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "openvsx-server",
		DisableAutoGenTag: true,
		Short:             "Open VSX gallery server",
		Long: `Open VSX gallery server hosts VS Code compatible extensions and serves them
through the Visual Studio Marketplace gallery API.`,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				slog.Error("Error displaying help", "error", err)
			}
		},
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		slog.Error("Error binding debug flag", "error", err)
	}

	rootCmd.AddCommand(serveCmd, newVersionCmd(), migrateCmd, loadCmd)
	return rootCmd
}

// bindViperFlags binds each named flag on the set to the viper key of the
// same name.
func bindViperFlags(flags *pflag.FlagSet, names ...string) error {
	for _, name := range names {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind %s flag: %w", name, err)
		}
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run:   runVersion,
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}

func runVersion(cmd *cobra.Command, _ []string) {
	info := versions.GetVersionInfo()
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		slog.Error("Error retrieving format flag", "error", err)
		return
	}

	if format == "json" {
		output, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			slog.Error("Error formatting version info as JSON", "error", err)
			return
		}
		fmt.Println(string(output))
		return
	}

	slog.Info("openvsx-server version",
		"version", info.Version,
		"commit", info.Commit,
		"built", info.BuildDate,
		"go", info.GoVersion,
		"platform", info.Platform)
}
