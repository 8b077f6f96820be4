// Package config manages servermark's application settings, stored as YAML
// at ~/.config/servermark/config.yaml.
//
// Settings are separate from the site registry: they describe how the host
// is laid out and how privileged scripts are run, never which sites exist.
// The site registry and backend selection live in the same directory but are
// owned by the registry package.
//
// Example config.yaml:
//
//	elevation: auto
//	default_php: "8.3"
//	loopback: 127.0.0.1
//	web_group: www-data
//	container_hosts: [mysql, redis, mailpit]
//	paths:
//	  caddy_sites: /etc/caddy/sites.d
//	  nginx_available: /etc/nginx/conf.d
//	  nginx_enabled: /etc/nginx/conf.d
//
// Any path left empty is filled from platform detection when loaded, so a
// missing file yields a fully usable Config.
//
// # Location
//
// The directory can be relocated with SERVERMARK_CONFIG_DIR, which tests
// use to keep state inside t.TempDir().
package config
