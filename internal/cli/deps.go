package cli

import (
	"github.com/Grazulex/servermark/internal/config"
	"github.com/Grazulex/servermark/internal/driver"
	"github.com/Grazulex/servermark/internal/elevate"
	"github.com/Grazulex/servermark/internal/executor"
	"github.com/Grazulex/servermark/internal/input"
	"github.com/Grazulex/servermark/internal/perms"
	"github.com/Grazulex/servermark/internal/php"
	"github.com/Grazulex/servermark/internal/reconcile"
	"github.com/Grazulex/servermark/internal/registry"
	"github.com/Grazulex/servermark/internal/script"
	"github.com/Grazulex/servermark/internal/status"
)

// Dependencies aggregates all CLI external dependencies for testability
type Dependencies struct {
	ConfigLoader   ConfigLoader
	DriverFactory  DriverFactory
	ServiceFactory ServiceFactory
	Executor       executor.CommandExecutor
	StdinReader    input.Reader
}

// ConfigLoader handles configuration loading and saving
type ConfigLoader interface {
	Load() (*config.Config, error)
	Save(cfg *config.Config) error
	StateDir() (string, error)
}

// DriverFactory creates the per-backend drivers
type DriverFactory interface {
	Create(paths config.Paths) driver.Set
}

// ServiceFactory wires a reconcile.Service for the loaded config
type ServiceFactory interface {
	Create(cfg *config.Config, drivers driver.Set, stateDir string) (*reconcile.Service, error)
}

// Package-level dependencies (can be overridden for testing)
var deps = newRealDeps()

func newRealDeps() *Dependencies {
	exec := executor.NewSystemExecutor()
	return &Dependencies{
		ConfigLoader:   &realConfigLoader{},
		DriverFactory:  &realDriverFactory{},
		ServiceFactory: &realServiceFactory{exec: exec},
		Executor:       exec,
		StdinReader:    input.NewStdinReader(),
	}
}

// SetDeps replaces the package dependencies (for testing)
func SetDeps(d *Dependencies) {
	deps = d
}

// GetDeps returns the current dependencies (for testing)
func GetDeps() *Dependencies {
	return deps
}

// Real implementations that delegate to existing functions

type realConfigLoader struct{}

func (r *realConfigLoader) Load() (*config.Config, error) {
	return config.Load()
}

func (r *realConfigLoader) Save(cfg *config.Config) error {
	return cfg.Save()
}

func (r *realConfigLoader) StateDir() (string, error) {
	return config.ConfigDir()
}

type realDriverFactory struct{}

func (r *realDriverFactory) Create(paths config.Paths) driver.Set {
	return driver.NewSet(paths)
}

type realServiceFactory struct {
	exec executor.CommandExecutor
}

func (r *realServiceFactory) Create(cfg *config.Config, drivers driver.Set, stateDir string) (*reconcile.Service, error) {
	return newService(cfg, drivers, stateDir, serviceParts{
		runner: elevate.New(cfg.Elevation, r.exec),
		php:    php.NewDetector(r.exec),
		perms:  perms.New(),
	}), nil
}

// serviceParts are the pieces that differ between real and test wiring.
type serviceParts struct {
	runner reconcile.Runner
	php    php.Detector
	perms  reconcile.PermFixer
}

func newService(cfg *config.Config, drivers driver.Set, stateDir string, p serviceParts) *reconcile.Service {
	builder := script.NewBuilder(drivers, script.Options{
		SSLDir:         cfg.Paths.SSL,
		HostsFile:      cfg.Paths.Hosts,
		Loopback:       cfg.Loopback,
		ContainerHosts: cfg.ContainerHosts,
		Owner:          perms.Owner(),
		WebGroup:       cfg.WebGroup,
	})
	return reconcile.New(reconcile.Options{
		Sites:          registry.NewStore(stateDir),
		Backends:       registry.NewBackendStore(stateDir),
		Builder:        builder,
		Runner:         p.runner,
		PHP:            p.php,
		Perms:          p.perms,
		DefaultPHP:     cfg.DefaultPHP,
		Loopback:       cfg.Loopback,
		ContainerHosts: cfg.ContainerHosts,
	})
}

func newStatusCollector() *status.Collector {
	return status.NewCollector(deps.Executor)
}
