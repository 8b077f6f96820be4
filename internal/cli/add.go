package cli

import (
	"github.com/Grazulex/servermark/internal/errors"
	"github.com/Grazulex/servermark/internal/output"
	"github.com/Grazulex/servermark/internal/reconcile"
	"github.com/Grazulex/servermark/internal/site"
	"github.com/spf13/cobra"
)

var (
	addName   string
	addPHP    string
	addType   string
	addProxy  string
	addSecure bool
)

var addCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Register a project directory as a site",
	Long: `Register a project directory and serve it under <name>.<tld>.

The name defaults to the directory name, the type is detected from the
project files and the PHP version defaults to the active php binary.

Examples:
  servermark add ~/code/blog
  servermark add ~/code/shop --name store --php 8.2 --secure
  servermark add ~/code/spa --type static`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addName, "name", "", "Site name (default: directory name)")
	addCmd.Flags().StringVar(&addPHP, "php", "", "PHP version, e.g. 8.3 (default: active php)")
	addCmd.Flags().StringVarP(&addType, "type", "t", "", "Site type: laravel, symfony, wordpress, static, proxy (default: detected)")
	addCmd.Flags().StringVar(&addProxy, "proxy", "", "Upstream URL for proxy sites")
	addCmd.Flags().BoolVar(&addSecure, "secure", false, "Serve over HTTPS with a self-signed certificate")

	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	typ := site.Type(addType)
	if addType != "" {
		if typ, err = site.ParseType(addType); err != nil {
			return errors.Validation(err.Error())
		}
	}
	if addProxy != "" && addType == "" {
		typ = site.TypeProxy
	}

	if !jsonOutput {
		output.Info("Registering %s...", args[0])
	}
	s, err := a.svc.AddSite(commandContext(cmd), reconcile.AddRequest{
		Path:        args[0],
		Name:        addName,
		PHPVersion:  addPHP,
		Type:        typ,
		ProxyTarget: addProxy,
		Secured:     addSecure,
	})
	if err != nil {
		return err
	}

	if s.Type == site.TypeProxy && !jsonOutput {
		output.Warn("Proxy sites are registered but no web server config is generated for them yet")
	}
	return outputResult(newSuccessResult("add", s), "Site %s is available at %s", s.Name, s.URL())
}
