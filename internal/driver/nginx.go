package driver

import (
	"path/filepath"
	"strings"

	"github.com/Grazulex/servermark/internal/shell"
	"github.com/Grazulex/servermark/internal/site"
)

// fragmentPrefix marks files servermark owns inside shared nginx directories.
const fragmentPrefix = "servermark-"

// NginxDriver writes fragments to sites-available and links them into
// sites-enabled. On conf.d layouts (available == enabled) it writes a
// .conf file directly and skips the link.
type NginxDriver struct {
	paths Paths
}

// NewNginx creates an Nginx driver with the given directories.
func NewNginx(available, enabled string) *NginxDriver {
	if enabled == "" {
		enabled = available
	}
	return &NginxDriver{
		paths: Paths{
			Available: available,
			Enabled:   enabled,
		},
	}
}

// Backend returns Nginx.
func (n *NginxDriver) Backend() Backend { return Nginx }

// Service returns the systemd unit name.
func (n *NginxDriver) Service() string { return "nginx" }

// Paths returns the config paths.
func (n *NginxDriver) Paths() Paths { return n.paths }

func (n *NginxDriver) symlinked() bool {
	return n.paths.Enabled != n.paths.Available
}

func (n *NginxDriver) fileName(name string) string {
	if n.symlinked() {
		return fragmentPrefix + site.Slug(name)
	}
	return fragmentPrefix + site.Slug(name) + ".conf"
}

// FragmentPath returns the sites-available file for name.
func (n *NginxDriver) FragmentPath(name string) string {
	return filepath.Join(n.paths.Available, n.fileName(name))
}

func (n *NginxDriver) linkPath(name string) string {
	return filepath.Join(n.paths.Enabled, n.fileName(name))
}

// EnsureDirs creates both directories.
func (n *NginxDriver) EnsureDirs(sc *shell.Script) {
	sc.Linef("mkdir -p %s", shell.Quote(n.paths.Available))
	if n.symlinked() {
		sc.Linef("mkdir -p %s", shell.Quote(n.paths.Enabled))
	}
}

// Install writes the fragment and links it into sites-enabled.
func (n *NginxDriver) Install(sc *shell.Script, name, content string) {
	sc.Heredoc(n.FragmentPath(name), content)
	if n.symlinked() {
		sc.Linef("ln -sfn %s %s", shell.Quote(n.FragmentPath(name)), shell.Quote(n.linkPath(name)))
	}
}

// Uninstall removes the link and the fragment.
func (n *NginxDriver) Uninstall(sc *shell.Script, name string) {
	if n.symlinked() {
		sc.Linef("rm -f %s", shell.Quote(n.linkPath(name)))
	}
	sc.Linef("rm -f %s", shell.Quote(n.FragmentPath(name)))
}

// Clear removes every servermark-owned fragment and link.
func (n *NginxDriver) Clear(sc *shell.Script) {
	if n.symlinked() {
		sc.Linef("rm -f %s/%s*", shell.Quote(n.paths.Enabled), fragmentPrefix)
	}
	sc.Linef("rm -f %s/%s*", shell.Quote(n.paths.Available), fragmentPrefix)
}

// Reload tests the config, then reloads or restarts nginx.
func (n *NginxDriver) Reload(sc *shell.Script) {
	sc.Line("nginx -t")
	reloadOrRestart(sc, n.Service())
}

// Start tests the config, enables and restarts nginx.
func (n *NginxDriver) Start(sc *shell.Script) {
	sc.Line("nginx -t")
	startUnit(sc, n.Service())
}

// Stop stops and disables nginx.
func (n *NginxDriver) Stop(sc *shell.Script) {
	stopUnit(sc, n.Service())
}

// List returns site slugs with a servermark fragment on disk.
func (n *NginxDriver) List() ([]string, error) {
	return listDir(n.paths.Available, func(file string) (string, bool) {
		if !strings.HasPrefix(file, fragmentPrefix) {
			return "", false
		}
		return strings.TrimSuffix(strings.TrimPrefix(file, fragmentPrefix), ".conf"), true
	})
}
