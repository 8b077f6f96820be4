package cli

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/Grazulex/servermark/internal/config"
	"github.com/Grazulex/servermark/internal/driver"
	"github.com/Grazulex/servermark/internal/executor"
	"github.com/Grazulex/servermark/internal/input"
	"github.com/Grazulex/servermark/internal/php"
	"github.com/Grazulex/servermark/internal/reconcile"
)

// MockConfigLoader is a test double for ConfigLoader
type MockConfigLoader struct {
	Cfg       *config.Config
	Dir       string
	LoadErr   error
	SaveErr   error
	SaveCalls int
}

func (m *MockConfigLoader) Load() (*config.Config, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.Cfg == nil {
		m.Cfg = config.New()
	}
	return m.Cfg, nil
}

func (m *MockConfigLoader) Save(cfg *config.Config) error {
	m.SaveCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Cfg = cfg
	return nil
}

func (m *MockConfigLoader) StateDir() (string, error) {
	return m.Dir, nil
}

// MockDriverFactory is a test double for DriverFactory
type MockDriverFactory struct {
	Caddy *driver.MockDriver
	Nginx *driver.MockDriver
}

func (m *MockDriverFactory) Create(paths config.Paths) driver.Set {
	return driver.Set{driver.Caddy: m.Caddy, driver.Nginx: m.Nginx}
}

// MockRunner records privileged scripts instead of running them
type MockRunner struct {
	mu      sync.Mutex
	Scripts []string
	Err     error
}

func (m *MockRunner) Run(ctx context.Context, script string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Scripts = append(m.Scripts, script)
	return m.Err
}

// Last returns the most recent script.
func (m *MockRunner) Last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Scripts) == 0 {
		return ""
	}
	return m.Scripts[len(m.Scripts)-1]
}

// MockPermFixer records permission fixes
type MockPermFixer struct {
	Roots []string
	Err   error
}

func (m *MockPermFixer) Fix(root string) error {
	m.Roots = append(m.Roots, root)
	return m.Err
}

// MockServiceFactory wires a real Service around mock collaborators
type MockServiceFactory struct {
	Runner *MockRunner
	PHP    *php.MockDetector
	Perms  *MockPermFixer
	Err    error
}

func (m *MockServiceFactory) Create(cfg *config.Config, drivers driver.Set, stateDir string) (*reconcile.Service, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return newService(cfg, drivers, stateDir, serviceParts{
		runner: m.Runner,
		php:    m.PHP,
		perms:  m.Perms,
	}), nil
}

// MockDependenciesBuilder helps create mock dependencies for tests
type MockDependenciesBuilder struct {
	deps *Dependencies
}

// NewMockDeps creates a new MockDependenciesBuilder with everything rooted
// under dir.
func NewMockDeps(dir string) *MockDependenciesBuilder {
	cfg := config.New()
	cfg.Paths = config.Paths{
		CaddySites:     filepath.Join(dir, "caddy", "sites"),
		Caddyfile:      filepath.Join(dir, "caddy", "Caddyfile"),
		CaddyLog:       filepath.Join(dir, "log", "caddy.log"),
		NginxAvailable: filepath.Join(dir, "nginx", "sites-available"),
		NginxEnabled:   filepath.Join(dir, "nginx", "sites-enabled"),
		NginxAccessLog: filepath.Join(dir, "log", "access.log"),
		NginxErrorLog:  filepath.Join(dir, "log", "error.log"),
		SSL:            filepath.Join(dir, "ssl"),
		Hosts:          filepath.Join(dir, "hosts"),
	}

	return &MockDependenciesBuilder{
		deps: &Dependencies{
			ConfigLoader: &MockConfigLoader{Cfg: cfg, Dir: filepath.Join(dir, "state")},
			DriverFactory: &MockDriverFactory{
				Caddy: driver.NewMockDriver(driver.Caddy, cfg.Paths.CaddySites),
				Nginx: driver.NewMockDriver(driver.Nginx, cfg.Paths.NginxAvailable),
			},
			ServiceFactory: &MockServiceFactory{
				Runner: &MockRunner{},
				PHP:    &php.MockDetector{Version: "8.3"},
				Perms:  &MockPermFixer{},
			},
			Executor:    &executor.MockExecutor{},
			StdinReader: input.NewStringReader("y\n"),
		},
	}
}

// WithConfig sets the config for the mock
func (b *MockDependenciesBuilder) WithConfig(cfg *config.Config) *MockDependenciesBuilder {
	b.deps.ConfigLoader.(*MockConfigLoader).Cfg = cfg
	return b
}

// WithConfigLoader sets a custom config loader
func (b *MockDependenciesBuilder) WithConfigLoader(loader ConfigLoader) *MockDependenciesBuilder {
	b.deps.ConfigLoader = loader
	return b
}

// WithRunnerError makes every privileged script fail with err
func (b *MockDependenciesBuilder) WithRunnerError(err error) *MockDependenciesBuilder {
	b.deps.ServiceFactory.(*MockServiceFactory).Runner.Err = err
	return b
}

// WithExecutor sets the command executor
func (b *MockDependenciesBuilder) WithExecutor(exec executor.CommandExecutor) *MockDependenciesBuilder {
	b.deps.Executor = exec
	return b
}

// WithStdinInput sets the stdin input for the mock
func (b *MockDependenciesBuilder) WithStdinInput(inputs ...string) *MockDependenciesBuilder {
	b.deps.StdinReader = input.NewStringReader(inputs...)
	return b
}

// Build returns the configured Dependencies
func (b *MockDependenciesBuilder) Build() *Dependencies {
	return b.deps
}

// TestHelper provides utilities for CLI tests
type TestHelper struct {
	T interface {
		Helper()
		Cleanup(func())
	}
	Dir     string
	OldDeps *Dependencies
	OldJSON bool
	Deps    *Dependencies
}

// NewTestHelper installs mock dependencies rooted under dir and restores
// the previous ones when the test ends.
func NewTestHelper(t interface {
	Helper()
	Cleanup(func())
}, dir string) *TestHelper {
	t.Helper()

	helper := &TestHelper{
		T:       t,
		Dir:     dir,
		OldDeps: deps,
		OldJSON: jsonOutput,
		Deps:    NewMockDeps(dir).Build(),
	}
	deps = helper.Deps

	// Cleanup function to restore original deps
	t.Cleanup(func() {
		deps = helper.OldDeps
		jsonOutput = helper.OldJSON
	})

	return helper
}

// Runner returns the mock script runner
func (h *TestHelper) Runner() *MockRunner {
	return h.Deps.ServiceFactory.(*MockServiceFactory).Runner
}

// Perms returns the mock permission fixer
func (h *TestHelper) Perms() *MockPermFixer {
	return h.Deps.ServiceFactory.(*MockServiceFactory).Perms
}

// Drivers returns the mock drivers
func (h *TestHelper) Drivers() *MockDriverFactory {
	return h.Deps.DriverFactory.(*MockDriverFactory)
}

// Config returns the mock config
func (h *TestHelper) Config() *config.Config {
	return h.Deps.ConfigLoader.(*MockConfigLoader).Cfg
}

// SetStdinInput sets the stdin input
func (h *TestHelper) SetStdinInput(inputs ...string) {
	deps.StdinReader = input.NewStringReader(inputs...)
}
