// Package platform provides per-distribution default paths for the web
// server backends, the certificate directory and the hosts table.
package platform

import (
	"fmt"
	"os"
	"runtime"
)

// CaddyPaths are the Caddy locations servermark writes to or reads.
type CaddyPaths struct {
	Sites     string // directory holding one <name>.conf per site
	Caddyfile string // main config that must import Sites
	Log       string
}

// NginxPaths are the Nginx locations servermark writes to or reads.
type NginxPaths struct {
	Available string
	Enabled   string // equal to Available on layouts without symlinks
	AccessLog string
	ErrorLog  string
}

// PlatformPaths contains the detected paths for both backends.
type PlatformPaths struct {
	Layout string // "debian", "rhel" or "default"
	Caddy  CaddyPaths
	Nginx  NginxPaths
	SSL    string
	Hosts  string
}

// pathExists is replaced in tests.
var pathExists = func(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// DetectPaths returns the layout of the running system.
// Linux is the only supported platform; elsewhere an error is returned
// together with the Debian defaults so callers can still render plans.
func DetectPaths() (*PlatformPaths, error) {
	if runtime.GOOS != "linux" {
		return Defaults(), fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return detectLinuxPaths(), nil
}

// Defaults returns the Debian/Ubuntu layout.
func Defaults() *PlatformPaths {
	p := base()
	p.Layout = "default"
	return p
}

func base() *PlatformPaths {
	return &PlatformPaths{
		Caddy: CaddyPaths{
			Sites:     "/etc/caddy/sites.d",
			Caddyfile: "/etc/caddy/Caddyfile",
			Log:       "/var/log/caddy/caddy.log",
		},
		Nginx: NginxPaths{
			Available: "/etc/nginx/sites-available",
			Enabled:   "/etc/nginx/sites-enabled",
			AccessLog: "/var/log/nginx/access.log",
			ErrorLog:  "/var/log/nginx/error.log",
		},
		SSL:   "/etc/servermark/ssl",
		Hosts: "/etc/hosts",
	}
}

func detectLinuxPaths() *PlatformPaths {
	p := base()

	// Debian/Ubuntu keep sites-available + sites-enabled
	if pathExists("/etc/nginx/sites-available") {
		p.Layout = "debian"
		return p
	}

	// RHEL/Fedora/Arch ship conf.d only
	if pathExists("/etc/nginx/conf.d") {
		p.Layout = "rhel"
		p.Nginx.Available = "/etc/nginx/conf.d"
		p.Nginx.Enabled = "/etc/nginx/conf.d"
		return p
	}

	p.Layout = "default"
	return p
}

// Platform returns a string describing the current platform.
func Platform() string {
	return fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
}
