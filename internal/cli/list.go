package cli

import (
	"sort"

	"github.com/Grazulex/servermark/internal/output"
	"github.com/Grazulex/servermark/internal/site"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all sites",
	Long: `List all registered sites.

The CONFIG column shows whether the active web server has a config file
for the site on disk. "missing" usually means the last apply failed; run
'servermark sync' to repair it.

Examples:
  servermark list
  servermark ls
  servermark list --json`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

type siteListItem struct {
	site.Site
	URL    string `json:"url"`
	Config string `json:"config"`
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	sites, err := a.svc.ListSites()
	if err != nil {
		return err
	}

	// Fragments the active web server has on disk
	installed := map[string]bool{}
	if backend, err := a.svc.ActiveBackend(); err == nil {
		if drv, err := a.drivers.Get(backend); err == nil {
			names, err := drv.List()
			if err != nil {
				output.Warn("Could not read %s config: %v", backend, err)
			}
			for _, name := range names {
				installed[name] = true
			}
		}
	}

	items := make([]siteListItem, 0, len(sites))
	for _, s := range sites {
		state := "missing"
		switch {
		case s.Type == site.TypeProxy:
			state = "skipped"
		case installed[site.Slug(s.Name)]:
			state = "ok"
		}
		items = append(items, siteListItem{Site: s, URL: s.URL(), Config: state})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})

	if jsonOutput {
		return output.JSON(items)
	}

	if len(items) == 0 {
		output.Info("No sites registered. Add one with 'servermark add <path>'")
		return nil
	}

	headers := []string{"NAME", "URL", "TYPE", "PHP", "SECURE", "CONFIG", "PATH"}
	rows := make([][]string, 0, len(items))

	for _, item := range items {
		target := item.Path
		if item.ProxyTarget != "" {
			target = item.ProxyTarget
		}
		rows = append(rows, []string{
			item.Name,
			item.URL,
			string(item.Type),
			item.PHPVersion,
			yesNo(item.Secured),
			item.Config,
			target,
		})
	}

	output.Table(headers, rows)
	return nil
}
