package driver

import (
	"path/filepath"

	"github.com/Grazulex/servermark/internal/shell"
)

// MockDriver is a test double that records which steps were requested and
// writes a recognizable marker line for each into the script.
type MockDriver struct {
	backend Backend
	paths   Paths

	// ListFunc customizes List.
	ListFunc func() ([]string, error)

	// Call tracking - check these to verify interactions
	EnsureDirsCalls int
	InstallCalls    []InstallCall
	UninstallCalls  []string
	ClearCalls      int
	ReloadCalls     int
	StartCalls      int
	StopCalls       int
}

// InstallCall records arguments passed to Install.
type InstallCall struct {
	Name    string
	Content string
}

// NewMockDriver creates a MockDriver for backend rooted at dir.
func NewMockDriver(backend Backend, dir string) *MockDriver {
	return &MockDriver{
		backend: backend,
		paths: Paths{
			Available: dir,
			Enabled:   dir,
			Main:      filepath.Join(dir, "main.conf"),
		},
	}
}

// Backend returns the configured backend.
func (m *MockDriver) Backend() Backend { return m.backend }

// Service returns the backend name.
func (m *MockDriver) Service() string { return string(m.backend) }

// Paths returns the configured paths.
func (m *MockDriver) Paths() Paths { return m.paths }

// FragmentPath returns <dir>/<name>.
func (m *MockDriver) FragmentPath(name string) string {
	return filepath.Join(m.paths.Available, name)
}

// EnsureDirs records the call.
func (m *MockDriver) EnsureDirs(sc *shell.Script) {
	m.EnsureDirsCalls++
	sc.Linef("# %s ensure-dirs", m.backend)
}

// Install records the call.
func (m *MockDriver) Install(sc *shell.Script, name, content string) {
	m.InstallCalls = append(m.InstallCalls, InstallCall{Name: name, Content: content})
	sc.Linef("# %s install %s", m.backend, name)
}

// Uninstall records the call.
func (m *MockDriver) Uninstall(sc *shell.Script, name string) {
	m.UninstallCalls = append(m.UninstallCalls, name)
	sc.Linef("# %s uninstall %s", m.backend, name)
}

// Clear records the call.
func (m *MockDriver) Clear(sc *shell.Script) {
	m.ClearCalls++
	sc.Linef("# %s clear", m.backend)
}

// Reload records the call.
func (m *MockDriver) Reload(sc *shell.Script) {
	m.ReloadCalls++
	sc.Linef("# %s reload", m.backend)
}

// Start records the call.
func (m *MockDriver) Start(sc *shell.Script) {
	m.StartCalls++
	sc.Linef("# %s start", m.backend)
}

// Stop records the call.
func (m *MockDriver) Stop(sc *shell.Script) {
	m.StopCalls++
	sc.Linef("# %s stop", m.backend)
}

// List invokes ListFunc when set.
func (m *MockDriver) List() ([]string, error) {
	if m.ListFunc != nil {
		return m.ListFunc()
	}
	return []string{}, nil
}

// Reset clears all call tracking.
func (m *MockDriver) Reset() {
	m.EnsureDirsCalls = 0
	m.InstallCalls = nil
	m.UninstallCalls = nil
	m.ClearCalls = 0
	m.ReloadCalls = 0
	m.StartCalls = 0
	m.StopCalls = 0
}
