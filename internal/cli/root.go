package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Grazulex/servermark/internal/logger"
	"github.com/spf13/cobra"
)

var (
	jsonOutput bool
	verbose    bool
	version    = "dev"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "servermark",
	Short: "Local PHP site manager for Caddy and Nginx",
	Long: `servermark keeps a registry of local PHP projects and serves each one
under <name>.<tld> on Caddy or Nginx.

Every change is written to the registry first and then applied with a
single privileged script, so you are asked for your password at most once
per command. If applying fails, 'servermark sync' rebuilds the web server
configuration from the registry.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	// Initialize logger based on verbose flag (parsed by cobra)
	cobra.OnInitialize(func() {
		logger.Init(verbose)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printHint(err)
		stop()
		os.Exit(1)
	}
}

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging for debugging")
}
