// Package driver knows the on-disk conventions and service control of the
// two supported web servers, Caddy and Nginx.
//
// A driver does not perform changes. Each method appends the shell lines
// for one step to a shell.Script, and the script package stitches those
// steps together into one privileged run:
//
//	sc := shell.New()
//	drv := driver.NewNginx("/etc/nginx/sites-available", "/etc/nginx/sites-enabled")
//	drv.EnsureDirs(sc)
//	drv.Install(sc, "blog", fragment)
//	drv.Reload(sc) // nginx -t, then reload or restart
//
// # Layouts
//
//   - Caddy: /etc/caddy/sites.d/<slug>.conf, imported from the Caddyfile.
//   - Nginx (Debian): sites-available/servermark-<slug> linked into sites-enabled.
//   - Nginx (conf.d): conf.d/servermark-<slug>.conf, no link.
//
// Fragments are named after the site name, not its domain, so a tld change
// rewrites the files in place instead of orphaning them.
//
// # Testing
//
// MockDriver records every requested step and writes a "# <backend> <step>"
// marker so tests can assert on ordering in the produced script.
package driver
