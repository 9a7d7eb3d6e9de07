// Package cli implements the stackctl command line tool.
//
// stackctl operates on the same SQLite database and Docker daemon as the
// stackd server, without requiring the server to run. Pure commands
// (validate, render, plan) need neither; lifecycle commands (up, down,
// destroy) and inspection commands (ps, doctor, events) open the store
// and, where containers are involved, the Docker client directly.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build information, injected from the main package.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Global options, bound to persistent flags on the root command.
var (
	dbPath     string
	dockerHost string
	configDir  string
	jsonOutput bool
	verbose    bool
)

// envOr returns the environment value for key, or fallback when unset.
// The CLI honors the same STACKD_* variables as the server so that both
// resolve the same database and config directory on a configured host.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewRootCommand creates the root command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stackctl",
		Short: "Deploy and inspect compose stacks",
		Long: `stackctl deploys the built-in stack variants straight against a local
Docker daemon and records them in the stackd database. It works with or
without a running stackd server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (built %s)", Version, BuildTime),
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db",
		envOr("STACKD_DATABASE_DSN", "./data/stackd.db"), "Path to the stackd database")
	rootCmd.PersistentFlags().StringVar(&dockerHost, "docker-host",
		envOr("STACKD_DOCKER_HOST", ""), "Docker daemon address (default: environment or local socket)")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir",
		envOr("STACKD_STACKS_CONFIG_DIR", "./data/configs"), "Base directory for rendered stack config files")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(
		newValidateCmd(),
		newRenderCmd(),
		newPlanCmd(),
		newUpCmd(),
		newDownCmd(),
		newDestroyCmd(),
		newPsCmd(),
		newDoctorCmd(),
		newEventsCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

// newVersionCmd reports the build version, matching the -version flag of
// the server binary.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stackctl %s (built %s)\n", Version, BuildTime)
		},
	}
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
