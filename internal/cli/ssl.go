package cli

import (
	"github.com/Grazulex/servermark/internal/output"
	"github.com/spf13/cobra"
)

var secureCmd = &cobra.Command{
	Use:   "secure <site>",
	Short: "Serve a site over HTTPS",
	Long: `Serve a site over HTTPS using a locally generated self-signed
certificate. Plain HTTP requests are redirected to HTTPS.

Examples:
  servermark secure blog`,
	Args: cobra.ExactArgs(1),
	RunE: runSecure,
}

var unsecureCmd = &cobra.Command{
	Use:   "unsecure <site>",
	Short: "Serve a site over plain HTTP",
	Long: `Serve a site over plain HTTP again. The certificate stays on disk
until the site is removed.

Examples:
  servermark unsecure blog`,
	Args: cobra.ExactArgs(1),
	RunE: runUnsecure,
}

func init() {
	rootCmd.AddCommand(secureCmd)
	rootCmd.AddCommand(unsecureCmd)
}

func runSecure(cmd *cobra.Command, args []string) error {
	return setSecured(cmd, args[0], true)
}

func runUnsecure(cmd *cobra.Command, args []string) error {
	return setSecured(cmd, args[0], false)
}

func setSecured(cmd *cobra.Command, ref string, secured bool) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	s, err := a.svc.Find(ref)
	if err != nil {
		return err
	}
	if s.Secured == secured && !jsonOutput {
		output.Info("Site %s is already served over %s, applying anyway", s.Name, s.Scheme())
	}

	action := "unsecure"
	if secured {
		s, err = a.svc.SecureSite(commandContext(cmd), s.ID)
		action = "secure"
	} else {
		s, err = a.svc.UnsecureSite(commandContext(cmd), s.ID)
	}
	if err != nil {
		return err
	}
	return outputResult(newSuccessResult(action, s), "Site %s is available at %s", s.Name, s.URL())
}
