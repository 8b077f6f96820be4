package cli

import (
	"github.com/Grazulex/servermark/internal/config"
	"github.com/Grazulex/servermark/internal/output"
	"github.com/Grazulex/servermark/internal/site"
	"github.com/spf13/cobra"
)

var (
	configTLD        string
	configSitesPath  string
	configElevation  string
	configDefaultPHP string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change registry settings",
	Long: `Show or change the domain suffix and the default projects directory.

Changing the tld renames every site's domain, moves hosts entries and
certificates and rewrites APP_URL in Laravel projects.

Examples:
  servermark config
  servermark config --tld localhost
  servermark config --sites-path ~/code
  servermark config --elevation sudo --default-php 8.2`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	bindConfigFlags(configCmd)
	rootCmd.AddCommand(configCmd)
}

func bindConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configTLD, "tld", "", "Domain suffix for all sites")
	cmd.Flags().StringVar(&configSitesPath, "sites-path", "", "Default projects directory")
	cmd.Flags().StringVar(&configElevation, "elevation", "", "Privilege helper: auto, pkexec, sudo or none")
	cmd.Flags().StringVar(&configDefaultPHP, "default-php", "", "PHP version used when none is detected")
}

type configResult struct {
	TLD        string `json:"tld"`
	SitesPath  string `json:"sites_path"`
	Elevation  string `json:"elevation"`
	DefaultPHP string `json:"default_php"`
	ConfigDir  string `json:"config_dir"`
}

func runConfig(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	var tld, sitesPath *string
	if cmd.Flags().Changed("tld") {
		tld = &configTLD
	}
	if cmd.Flags().Changed("sites-path") {
		sitesPath = &configSitesPath
	}

	cfgChanged, err := applyConfigFlags(cmd, a.cfg)
	if err != nil {
		return err
	}
	if cfgChanged {
		if err := deps.ConfigLoader.Save(a.cfg); err != nil {
			return err
		}
	}

	settings, err := a.svc.Settings()
	if err != nil {
		return err
	}
	changed := cfgChanged || tld != nil || sitesPath != nil
	if tld != nil || sitesPath != nil {
		if settings, err = a.svc.UpdateSettings(commandContext(cmd), tld, sitesPath); err != nil {
			return err
		}
	}

	dir, _ := deps.ConfigLoader.StateDir()
	result := configResult{
		TLD:        settings.TLD,
		SitesPath:  settings.SitesPath,
		Elevation:  a.cfg.Elevation,
		DefaultPHP: a.cfg.DefaultPHP,
		ConfigDir:  dir,
	}

	if jsonOutput {
		return output.JSON(result)
	}
	if changed {
		output.Success("Settings updated")
	}
	output.Fields([][2]string{
		{"TLD", result.TLD},
		{"Sites path", result.SitesPath},
		{"Elevation", result.Elevation},
		{"Default PHP", result.DefaultPHP},
		{"Config dir", result.ConfigDir},
	})
	return nil
}

// applyConfigFlags copies the settings-file flags into cfg.
func applyConfigFlags(cmd *cobra.Command, cfg *config.Config) (bool, error) {
	changed := false
	if cmd.Flags().Changed("elevation") {
		cfg.Elevation = configElevation
		changed = true
	}
	if cmd.Flags().Changed("default-php") {
		if err := site.ValidatePHPVersion(configDefaultPHP); err != nil {
			return false, err
		}
		cfg.DefaultPHP = configDefaultPHP
		changed = true
	}
	if !changed {
		return false, nil
	}
	return true, cfg.Validate()
}
