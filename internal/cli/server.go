package cli

import (
	"github.com/Grazulex/servermark/internal/driver"
	"github.com/Grazulex/servermark/internal/output"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Show or change the active web server",
	Long: `Show which web server serves the sites.

Examples:
  servermark server
  servermark server switch nginx`,
	Args: cobra.NoArgs,
	RunE: runServer,
}

var serverSwitchCmd = &cobra.Command{
	Use:   "switch <caddy|nginx>",
	Short: "Move every site to another web server",
	Long: `Stop the current web server, remove its site configs and serve every
registered site from the other one.

Examples:
  servermark server switch nginx`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(driver.Caddy), string(driver.Nginx)},
	RunE:      runServerSwitch,
}

func init() {
	serverCmd.AddCommand(serverSwitchCmd)
	rootCmd.AddCommand(serverCmd)
}

type serverResult struct {
	Success bool           `json:"success"`
	Backend driver.Backend `json:"backend"`
	Service string         `json:"service,omitempty"`
	Config  string         `json:"config,omitempty"`
}

func runServer(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	backend, err := a.svc.ActiveBackend()
	if err != nil {
		return err
	}
	result := serverResult{Success: true, Backend: backend}
	if drv, err := a.drivers.Get(backend); err == nil {
		result.Service = drv.Service()
		result.Config = drv.Paths().Available
	}

	if jsonOutput {
		return output.JSON(result)
	}
	fields := [][2]string{{"Web server", string(result.Backend)}}
	if result.Config != "" {
		fields = append(fields, [2]string{"Service", result.Service}, [2]string{"Sites dir", result.Config})
	}
	output.Fields(fields)
	return nil
}

func runServerSwitch(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	target, err := driver.ParseBackend(args[0])
	if err != nil {
		return err
	}
	if !jsonOutput {
		output.Info("Switching to %s...", target)
	}
	if err := a.svc.SwitchBackend(commandContext(cmd), string(target)); err != nil {
		return err
	}
	return outputResult(serverResult{Success: true, Backend: target}, "Sites are now served by %s", target)
}
