package cli

import (
	"time"

	"github.com/Grazulex/servermark/internal/output"
	"github.com/Grazulex/servermark/internal/site"
	"github.com/Grazulex/servermark/internal/ssl"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <site>",
	Short: "Show details of a site",
	Long: `Show detailed information about a site.

Examples:
  servermark show blog
  servermark show blog.test --json`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

// showDetail represents the detailed site information for output
type showDetail struct {
	site.Site
	URL          string     `json:"url"`
	DocumentRoot string     `json:"document_root"`
	PHPSocket    string     `json:"php_socket,omitempty"`
	Backend      string     `json:"backend"`
	ConfigFile   string     `json:"config_file"`
	SSLCert      string     `json:"ssl_cert,omitempty"`
	SSLKey       string     `json:"ssl_key,omitempty"`
	SSLExpires   *time.Time `json:"ssl_expires,omitempty"`
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	s, err := a.svc.Find(args[0])
	if err != nil {
		return err
	}

	detail := showDetail{
		Site:         *s,
		URL:          s.URL(),
		DocumentRoot: s.DocumentRoot(),
	}
	if s.Type != site.TypeProxy && s.Type != site.TypeStatic {
		detail.PHPSocket = s.PHPSocket()
	}

	backend, err := a.svc.ActiveBackend()
	if err != nil {
		return err
	}
	detail.Backend = string(backend)
	if drv, err := a.drivers.Get(backend); err == nil {
		detail.ConfigFile = drv.FragmentPath(s.Name)
	}

	if s.Secured {
		cert := ssl.Paths(a.cfg.Paths.SSL, s.Domain)
		detail.SSLCert = cert.CertPath
		detail.SSLKey = cert.KeyPath
		if info, err := ssl.Inspect(cert.CertPath); err == nil {
			detail.SSLExpires = &info.NotAfter
		}
	}

	if jsonOutput {
		return output.JSON(detail)
	}

	output.Print("")
	output.Print("Name:       %s", detail.Name)
	output.Print("URL:        %s", detail.URL)
	output.Print("Type:       %s", detail.Type)
	output.Print("Path:       %s", detail.Path)
	output.Print("Root:       %s", detail.DocumentRoot)
	if detail.ProxyTarget != "" {
		output.Print("Proxy:      %s", detail.ProxyTarget)
	}
	if detail.PHPSocket != "" {
		output.Print("PHP:        %s (%s)", detail.PHPVersion, detail.PHPSocket)
	}
	if detail.Framework != nil {
		output.Print("Framework:  %s %s", detail.Framework.Name, detail.Framework.Constraint)
	}

	if detail.Secured {
		output.Print("SSL:        enabled")
		output.Print("  Cert:     %s", detail.SSLCert)
		output.Print("  Key:      %s", detail.SSLKey)
		if detail.SSLExpires != nil {
			output.Print("  Expires:  %s", detail.SSLExpires.Format("2006-01-02"))
		} else {
			output.Print("  Expires:  not generated yet")
		}
	} else {
		output.Print("SSL:        disabled")
	}

	output.Print("Server:     %s", detail.Backend)
	if detail.ConfigFile != "" {
		output.Print("Config:     %s", detail.ConfigFile)
	}
	output.Print("ID:         %s", detail.ID)
	output.Print("")

	return nil
}
