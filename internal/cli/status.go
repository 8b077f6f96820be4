package cli

import (
	"fmt"
	"strings"

	"github.com/Grazulex/servermark/internal/output"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show web server processes and memory usage",
	Long: `Show whether Caddy and Nginx are running, their memory use and the
host's memory usage.

Examples:
  servermark status
  servermark status --json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	active, err := a.svc.ActiveBackend()
	if err != nil {
		return err
	}
	report, err := newStatusCollector().Snapshot(active)
	if err != nil {
		return err
	}

	if jsonOutput {
		return output.JSON(report)
	}

	headers := []string{"SERVER", "SELECTED", "UNIT", "PROCESSES", "MEMORY"}
	rows := make([][]string, 0, len(report.Servers))
	for _, s := range report.Servers {
		rows = append(rows, []string{
			string(s.Backend),
			yesNo(s.Active),
			s.Unit,
			fmt.Sprintf("%d", len(s.PIDs)),
			formatBytes(s.RSS),
		})
	}
	output.Table(headers, rows)

	if m := report.Memory; m != nil {
		output.Print("")
		output.Print("Memory: %s / %s (%.1f%%)", formatBytes(m.Used), formatBytes(m.Total), m.UsedPercent)
	}
	for _, s := range report.Servers {
		if s.Active && !s.Running() {
			output.Warn("%s is selected but not running; try 'servermark sync'", s.Backend)
		}
	}
	return nil
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), strings.ToUpper("kmgtpe")[exp])
}
