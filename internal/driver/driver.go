package driver

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Grazulex/servermark/internal/config"
	"github.com/Grazulex/servermark/internal/errors"
	"github.com/Grazulex/servermark/internal/shell"
)

// Backend identifies a supported web server.
type Backend string

// Supported backends.
const (
	Caddy Backend = "caddy"
	Nginx Backend = "nginx"
)

// Backends returns every supported backend in a stable order.
func Backends() []Backend {
	return []Backend{Caddy, Nginx}
}

// ParseBackend validates a backend name.
func ParseBackend(name string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(name))); b {
	case Caddy, Nginx:
		return b, nil
	}
	return "", errors.Validationf("unknown web server %q (available: caddy, nginx)", name)
}

// Other returns the backend that is not b.
func (b Backend) Other() Backend {
	if b == Caddy {
		return Nginx
	}
	return Caddy
}

// Driver emits the backend-specific steps of a reconciliation script.
//
// Drivers never touch the filesystem or services themselves when emitting;
// every mutation is a line appended to the script so the whole operation
// runs under one privilege elevation. List is the only read, used for
// unprivileged diagnostics.
type Driver interface {
	// Backend returns which web server this driver speaks for.
	Backend() Backend

	// Service returns the systemd unit name.
	Service() string

	// Paths returns the driver's config locations.
	Paths() Paths

	// FragmentPath is where the named site's fragment lives.
	FragmentPath(name string) string

	// EnsureDirs creates the fragment directories and wires them into the
	// main server config.
	EnsureDirs(sc *shell.Script)

	// Install writes the site's fragment (and enables it where needed).
	Install(sc *shell.Script, name, content string)

	// Uninstall deletes the named site's fragment. Missing files are fine.
	Uninstall(sc *shell.Script, name string)

	// Clear deletes every fragment servermark generated for this backend.
	Clear(sc *shell.Script)

	// Reload validates the config and reloads, restarting if reload fails.
	Reload(sc *shell.Script)

	// Start validates the config, enables the unit and (re)starts it.
	Start(sc *shell.Script)

	// Stop stops and disables the unit, tolerating an absent service.
	Stop(sc *shell.Script)

	// List returns the site fragments currently on disk.
	List() ([]string, error)
}

// Paths contains the web server config locations.
type Paths struct {
	Available string // directory fragments are written to
	Enabled   string // directory nginx reads (may equal Available)
	Main      string // main config file that must import Available
}

// Set holds one driver per backend.
type Set map[Backend]Driver

// NewSet builds both drivers from configured paths.
func NewSet(p config.Paths) Set {
	return Set{
		Caddy: NewCaddy(p.CaddySites, p.Caddyfile),
		Nginx: NewNginx(p.NginxAvailable, p.NginxEnabled),
	}
}

// Get returns the driver for b.
func (s Set) Get(b Backend) (Driver, error) {
	d, ok := s[b]
	if !ok {
		return nil, errors.Validationf("no driver for web server %q", b)
	}
	return d, nil
}

// reloadOrRestart appends "systemctl reload X || systemctl restart X".
func reloadOrRestart(sc *shell.Script, unit string) {
	sc.Linef("systemctl reload %s || systemctl restart %s", unit, unit)
}

func startUnit(sc *shell.Script, unit string) {
	sc.Linef("systemctl enable %s", unit)
	sc.Linef("systemctl restart %s", unit)
}

func stopUnit(sc *shell.Script, unit string) {
	sc.Linef("systemctl stop %s 2>/dev/null || true", unit)
	sc.Linef("systemctl disable %s 2>/dev/null || true", unit)
}

// listDir returns non-hidden file names in dir that match keep.
func listDir(dir string, keep func(string) (string, bool)) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if name, ok := keep(entry.Name()); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
