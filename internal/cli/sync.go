package cli

import (
	"github.com/Grazulex/servermark/internal/output"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Rebuild the web server config from the registry",
	Long: `Regenerate every site config, hosts entry and certificate from the
registry and reload the web server. Safe to run any number of times.

Examples:
  servermark sync`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	sites, err := a.svc.ListSites()
	if err != nil {
		return err
	}
	if !jsonOutput {
		output.Info("Applying %d site(s)...", len(sites))
	}
	if err := a.svc.SyncAll(commandContext(cmd)); err != nil {
		return err
	}
	return outputResult(CommandResult{Success: true, Action: "sync"}, "Web server configuration is in sync")
}
