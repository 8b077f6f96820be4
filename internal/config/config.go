package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Grazulex/servermark/internal/platform"
)

// Elevation modes for the privileged script runner.
const (
	ElevationAuto   = "auto"
	ElevationPkexec = "pkexec"
	ElevationSudo   = "sudo"
	ElevationNone   = "none"
)

// DefaultContainerHosts are service names used inside containerized stacks
// that should resolve to loopback on the host.
var DefaultContainerHosts = []string{
	"mysql", "mariadb", "postgres", "redis", "memcached",
	"mailhog", "mailpit", "meilisearch", "elasticsearch",
	"mongo", "mongodb", "rabbitmq", "minio",
}

// Config represents the application settings.
type Config struct {
	Elevation      string   `yaml:"elevation"`
	DefaultPHP     string   `yaml:"default_php"`
	Loopback       string   `yaml:"loopback"`
	WebGroup       string   `yaml:"web_group"`
	ContainerHosts []string `yaml:"container_hosts"`
	Paths          Paths    `yaml:"paths"`
}

// Paths overrides detected system locations. Empty fields use detection.
type Paths struct {
	CaddySites     string `yaml:"caddy_sites,omitempty"`
	Caddyfile      string `yaml:"caddyfile,omitempty"`
	CaddyLog       string `yaml:"caddy_log,omitempty"`
	NginxAvailable string `yaml:"nginx_available,omitempty"`
	NginxEnabled   string `yaml:"nginx_enabled,omitempty"`
	NginxAccessLog string `yaml:"nginx_access_log,omitempty"`
	NginxErrorLog  string `yaml:"nginx_error_log,omitempty"`
	SSL            string `yaml:"ssl,omitempty"`
	Hosts          string `yaml:"hosts,omitempty"`
}

const (
	configDir  = ".config/servermark"
	configFile = "config.yaml"

	// EnvConfigDir relocates the whole servermark state directory.
	EnvConfigDir = "SERVERMARK_CONFIG_DIR"
)

// New creates a new Config with default values and detected paths.
func New() *Config {
	cfg := &Config{
		Elevation:      ElevationAuto,
		DefaultPHP:     "8.3",
		Loopback:       "127.0.0.1",
		WebGroup:       "www-data",
		ContainerHosts: append([]string(nil), DefaultContainerHosts...),
	}
	cfg.fillPaths(detect())
	return cfg
}

// detect is replaced in tests.
var detect = func() *platform.PlatformPaths {
	p, _ := platform.DetectPaths()
	return p
}

func (c *Config) fillPaths(p *platform.PlatformPaths) {
	set := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	set(&c.Paths.CaddySites, p.Caddy.Sites)
	set(&c.Paths.Caddyfile, p.Caddy.Caddyfile)
	set(&c.Paths.CaddyLog, p.Caddy.Log)
	set(&c.Paths.NginxAvailable, p.Nginx.Available)
	set(&c.Paths.NginxEnabled, p.Nginx.Enabled)
	set(&c.Paths.NginxAccessLog, p.Nginx.AccessLog)
	set(&c.Paths.NginxErrorLog, p.Nginx.ErrorLog)
	set(&c.Paths.SSL, p.SSL)
	set(&c.Paths.Hosts, p.Hosts)
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	switch c.Elevation {
	case ElevationAuto, ElevationPkexec, ElevationSudo, ElevationNone:
	default:
		return fmt.Errorf("invalid elevation %q (want auto, pkexec, sudo or none)", c.Elevation)
	}
	if c.Loopback == "" {
		return fmt.Errorf("loopback address cannot be empty")
	}
	return nil
}

// ConfigDir returns the servermark state directory.
func ConfigDir() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, configDir), nil
}

// ConfigPath returns the settings file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads the settings from disk.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	def := New()
	if cfg.Elevation == "" {
		cfg.Elevation = def.Elevation
	}
	if cfg.DefaultPHP == "" {
		cfg.DefaultPHP = def.DefaultPHP
	}
	if cfg.Loopback == "" {
		cfg.Loopback = def.Loopback
	}
	if cfg.WebGroup == "" {
		cfg.WebGroup = def.WebGroup
	}
	if cfg.ContainerHosts == nil {
		cfg.ContainerHosts = def.ContainerHosts
	}
	cfg.fillPaths(detect())

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the settings to disk.
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, configFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
