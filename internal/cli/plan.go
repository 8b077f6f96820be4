package cli

import (
	"strings"

	"github.com/Grazulex/servermark/internal/output"
	"github.com/Grazulex/servermark/internal/script"
	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan <operation> [site|server]",
	Short: "Print the script an operation would run",
	Long: `Print the privileged script an operation would run without running it
or changing the registry.

Operations: ` + strings.Join(opNames(), ", ") + `

Examples:
  servermark plan sync_all
  servermark plan update_site blog
  servermark plan switch_server nginx`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func opNames() []string {
	ops := script.Ops()
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = string(op)
	}
	return names
}

func runPlan(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	arg := ""
	if len(args) == 2 {
		arg = args[1]
	}
	plan, err := a.svc.Plan(args[0], arg)
	if err != nil {
		return err
	}

	if jsonOutput {
		return output.JSON(plan)
	}
	for _, name := range plan.Skipped {
		output.Warn("No %s config is generated for proxy site %s", plan.Active, name)
	}
	output.Script(plan.Script)
	return nil
}
