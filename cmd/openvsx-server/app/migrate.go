package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/BuckysMyHero/openvsx/internal/config"
	"github.com/BuckysMyHero/openvsx/internal/db/auth"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration tool",
	Long:  `Database migration tool for managing schema versions. Use with 'up' or 'down' subcommands.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Usage()
	},
}

func init() {
	migrateCmd.PersistentFlags().BoolP("yes", "y", false, "Answer yes to all questions")
	migrateCmd.PersistentFlags().UintP("num-steps", "n", 0, "Number of steps to migrate (0 = all)")
	migrateCmd.PersistentFlags().String("config", "", "Path to configuration file (YAML format, required)")
	migrateCmd.PersistentFlags().Bool("password-prompt", false,
		"Read the migration user's password from the terminal instead of the configured sources")

	if err := migrateCmd.MarkPersistentFlagRequired("config"); err != nil {
		panic(err)
	}

	// Add subcommands
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
}

// loadDatabaseConfig loads the configuration named by --config and verifies
// it carries a database section.
func loadDatabaseConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}

	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Database == nil {
		return nil, fmt.Errorf("database configuration is required")
	}

	return cfg, nil
}

// migrationConnString resolves the connection string the migrate subcommands
// run against. With --password-prompt the password is read interactively,
// otherwise the configured sources are used, which includes minting a fresh
// token when dynamic authentication is enabled.
func migrationConnString(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (string, error) {
	prompt, err := cmd.Flags().GetBool("password-prompt")
	if err != nil {
		return "", fmt.Errorf("failed to get password-prompt flag: %w", err)
	}

	if prompt {
		password, err := readPassword(cmd)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return cfg.Database.BuildConnectionStringWithAuth(cfg.Database.GetMigrationUser(), password), nil
	}

	connString, err := auth.MigrationConnectionString(ctx, cfg.Database)
	if err != nil {
		return "", fmt.Errorf("failed to get migration connection string: %w", err)
	}
	return connString, nil
}

// readPassword reads a password without echo when attached to a terminal,
// and from standard input otherwise.
func readPassword(cmd *cobra.Command) (string, error) {
	var reader io.Reader
	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprint(cmd.OutOrStdout(), "Password: ")
		passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return "", err
		}
		fmt.Fprintln(cmd.OutOrStdout())
		reader = bytes.NewReader(passwordBytes)
	} else {
		reader = cmd.InOrStdin()
	}

	passwordBytes, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}

	password := strings.TrimSpace(string(passwordBytes))
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	return password, nil
}

// confirm prompts on standard input and reports whether the user answered yes.
func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s (yes/no): ", prompt)
	var response string
	if _, err := fmt.Fscanln(cmd.InOrStdin(), &response); err != nil {
		return false
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "yes" || response == "y"
}
