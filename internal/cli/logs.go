package cli

import (
	"fmt"
	"os"

	"github.com/Grazulex/servermark/internal/config"
	"github.com/Grazulex/servermark/internal/driver"
	"github.com/Grazulex/servermark/internal/logs"
	"github.com/Grazulex/servermark/internal/output"
	"github.com/spf13/cobra"
)

var (
	logsAccess bool
	logsError  bool
	logsFollow bool
	logsLines  int
	logsServer string
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View web server logs",
	Long: `View the logs of the active web server.

Caddy writes a single log. For Nginx both logs are shown by default;
use --access or --error to show only one.

Examples:
  servermark logs              # Last 20 lines
  servermark logs --error      # Nginx error log only
  servermark logs -f           # Follow logs in real-time
  servermark logs -n 50        # Show last 50 lines
  servermark logs --server caddy`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVar(&logsAccess, "access", false, "Show access log only")
	logsCmd.Flags().BoolVar(&logsError, "error", false, "Show error log only")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output (like tail -f)")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 20, "Number of lines to show")
	logsCmd.Flags().StringVar(&logsServer, "server", "", "Web server whose logs to show (default: active)")

	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	if logsLines < 0 {
		return fmt.Errorf("--lines cannot be negative")
	}

	a, err := loadApp()
	if err != nil {
		return err
	}

	backend, err := a.svc.ActiveBackend()
	if err != nil {
		return err
	}
	if logsServer != "" {
		if backend, err = driver.ParseBackend(logsServer); err != nil {
			return err
		}
	}

	var files []string
	for _, path := range logPaths(a.cfg.Paths, backend) {
		if _, err := os.Stat(path); err != nil {
			output.Warn("Log not found: %s", path)
			continue
		}
		files = append(files, path)
	}
	if len(files) == 0 {
		return fmt.Errorf("no log files found for %s", backend)
	}

	if len(files) == 1 {
		output.Info("Showing logs from: %s", files[0])
	} else {
		output.Info("Showing logs from:")
		for _, f := range files {
			output.Print("  - %s", f)
		}
	}
	output.Print("")

	return logs.Show(commandContext(cmd), logs.Options{
		Paths:  files,
		Lines:  logsLines,
		Follow: logsFollow,
	}, cmd.OutOrStdout())
}

// logPaths picks the configured log files for backend.
func logPaths(p config.Paths, backend driver.Backend) []string {
	if backend == driver.Caddy {
		if p.CaddyLog == "" {
			return nil
		}
		return []string{p.CaddyLog}
	}

	showAccess, showError := true, true
	if logsAccess && !logsError {
		showError = false
	} else if logsError && !logsAccess {
		showAccess = false
	}

	var paths []string
	if showAccess && p.NginxAccessLog != "" {
		paths = append(paths, p.NginxAccessLog)
	}
	if showError && p.NginxErrorLog != "" {
		paths = append(paths, p.NginxErrorLog)
	}
	return paths
}
