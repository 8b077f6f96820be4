package driver

import (
	"path/filepath"
	"strings"

	"github.com/Grazulex/servermark/internal/shell"
	"github.com/Grazulex/servermark/internal/site"
)

// CaddyDriver writes one <slug>.conf per site into a directory the main
// Caddyfile imports.
type CaddyDriver struct {
	paths Paths
}

// NewCaddy creates a Caddy driver for the given sites directory and Caddyfile.
func NewCaddy(sitesDir, caddyfile string) *CaddyDriver {
	return &CaddyDriver{
		paths: Paths{
			Available: sitesDir,
			Enabled:   sitesDir,
			Main:      caddyfile,
		},
	}
}

// Backend returns Caddy.
func (c *CaddyDriver) Backend() Backend { return Caddy }

// Service returns the systemd unit name.
func (c *CaddyDriver) Service() string { return "caddy" }

// Paths returns the config paths.
func (c *CaddyDriver) Paths() Paths { return c.paths }

// FragmentPath returns <sites>/<slug>.conf.
func (c *CaddyDriver) FragmentPath(name string) string {
	return filepath.Join(c.paths.Available, site.Slug(name)+".conf")
}

func (c *CaddyDriver) importLine() string {
	return "import " + filepath.Join(c.paths.Available, "*.conf")
}

// EnsureDirs creates the sites directory and makes sure the Caddyfile imports it.
func (c *CaddyDriver) EnsureDirs(sc *shell.Script) {
	sc.Linef("mkdir -p %s", shell.Quote(c.paths.Available))
	sc.Linef("chmod 755 %s", shell.Quote(c.paths.Available))
	sc.Linef("mkdir -p %s", shell.Quote(filepath.Dir(c.paths.Main)))
	sc.Linef("touch %s", shell.Quote(c.paths.Main))
	sc.Linef("grep -qxF %s %s || echo %s >> %s",
		shell.Quote(c.importLine()), shell.Quote(c.paths.Main),
		shell.Quote(c.importLine()), shell.Quote(c.paths.Main))
}

// Install writes the fragment.
func (c *CaddyDriver) Install(sc *shell.Script, name, content string) {
	sc.Heredoc(c.FragmentPath(name), content)
}

// Uninstall removes the fragment.
func (c *CaddyDriver) Uninstall(sc *shell.Script, name string) {
	sc.Linef("rm -f %s", shell.Quote(c.FragmentPath(name)))
}

// Clear removes every *.conf in the sites directory.
func (c *CaddyDriver) Clear(sc *shell.Script) {
	sc.Linef("rm -f %s/*.conf", shell.Quote(c.paths.Available))
}

func (c *CaddyDriver) validate(sc *shell.Script) {
	sc.Linef("caddy validate --config %s --adapter caddyfile", shell.Quote(c.paths.Main))
}

// Reload validates, then reloads or restarts caddy.
func (c *CaddyDriver) Reload(sc *shell.Script) {
	c.validate(sc)
	reloadOrRestart(sc, c.Service())
}

// Start validates, enables and restarts caddy.
func (c *CaddyDriver) Start(sc *shell.Script) {
	c.validate(sc)
	startUnit(sc, c.Service())
}

// Stop stops and disables caddy.
func (c *CaddyDriver) Stop(sc *shell.Script) {
	stopUnit(sc, c.Service())
}

// List returns site slugs with a fragment on disk.
func (c *CaddyDriver) List() ([]string, error) {
	return listDir(c.paths.Available, func(file string) (string, bool) {
		if !strings.HasSuffix(file, ".conf") {
			return "", false
		}
		return strings.TrimSuffix(file, ".conf"), true
	})
}
