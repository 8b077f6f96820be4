package cli

import (
	"github.com/Grazulex/servermark/internal/output"
	"github.com/Grazulex/servermark/internal/php"
	"github.com/spf13/cobra"
)

var phpCmd = &cobra.Command{
	Use:   "php <site> <version>",
	Short: "Change the PHP version of a site",
	Long: `Point a site at a different PHP-FPM pool.

Examples:
  servermark php blog 8.2`,
	Args: cobra.ExactArgs(2),
	RunE: runPHP,
}

func init() {
	rootCmd.AddCommand(phpCmd)
}

func runPHP(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	s, err := a.svc.Find(args[0])
	if err != nil {
		return err
	}

	version := args[1]
	if installed, err := php.FPMVersions(phpRunDir); err == nil && len(installed) > 0 && !contains(installed, version) && !jsonOutput {
		output.Warn("No PHP-FPM socket for %s found in %s (installed: %v)", version, phpRunDir, installed)
	}

	s, err = a.svc.UpdateSitePHP(commandContext(cmd), s.ID, version)
	if err != nil {
		return err
	}
	return outputResult(newSuccessResult("php", s), "Site %s now uses PHP %s", s.Name, s.PHPVersion)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
