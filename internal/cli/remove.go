package cli

import (
	"github.com/Grazulex/servermark/internal/output"
	"github.com/spf13/cobra"
)

var (
	forceRemove bool
)

var removeCmd = &cobra.Command{
	Use:     "remove <site>",
	Aliases: []string{"rm", "delete"},
	Short:   "Remove a site",
	Long: `Remove a site from the registry and delete its web server config,
hosts entry and certificate. The project directory is left untouched.

A site can be named by id, name or domain.

Examples:
  servermark remove blog
  servermark rm blog.test --force`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().BoolVarP(&forceRemove, "force", "f", false, "Force removal without confirmation")

	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	s, err := a.svc.Find(args[0])
	if err != nil {
		return err
	}

	if !forceRemove && !jsonOutput {
		if !confirm("Remove site %s (%s)?", s.Name, s.Domain) {
			output.Info("Cancelled")
			return nil
		}
	}

	if err := a.svc.RemoveSite(commandContext(cmd), s.ID); err != nil {
		return err
	}
	return outputResult(newSuccessResult("remove", s), "Site %s removed", s.Name)
}
