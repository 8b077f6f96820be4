package cli

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Grazulex/servermark/internal/driver"
	smerrors "github.com/Grazulex/servermark/internal/errors"
	"github.com/Grazulex/servermark/internal/registry"
)

func TestRunServerSwitch(t *testing.T) {
	h := NewTestHelper(t, t.TempDir())
	addTestSite(t, h, "blog")

	if err := runServerSwitch(nil, []string{"nginx"}); err != nil {
		t.Fatalf("switch failed: %v", err)
	}

	active, err := registry.NewBackendStore(filepath.Join(h.Dir, "state")).Load()
	if err != nil {
		t.Fatalf("failed to load backend: %v", err)
	}
	if active != driver.Nginx {
		t.Errorf("expected nginx, got %s", active)
	}

	script := h.Runner().Last()
	for _, want := range []string{"# caddy stop", "# caddy clear", "# nginx install blog", "# nginx start"} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q:\n%s", want, script)
		}
	}

	jsonOutput = true
	out, err := captureStdout(t, func() error { return runServer(nil, nil) })
	if err != nil {
		t.Fatalf("server failed: %v", err)
	}
	var result serverResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if result.Backend != driver.Nginx {
		t.Errorf("expected nginx, got %s", result.Backend)
	}
}

func TestRunServerSwitch_UnknownBackend(t *testing.T) {
	h := NewTestHelper(t, t.TempDir())

	err := runServerSwitch(nil, []string{"apache"})
	if !errors.Is(err, smerrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(h.Runner().Scripts) != 0 {
		t.Error("no script should run")
	}
}

func TestRunSync(t *testing.T) {
	h := NewTestHelper(t, t.TempDir())
	addTestSite(t, h, "blog")
	addTestSite(t, h, "api")

	if err := runSync(nil, nil); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	script := h.Runner().Last()
	for _, want := range []string{"# caddy clear", "# caddy install blog", "# caddy install api", "# caddy reload"} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q:\n%s", want, script)
		}
	}
}
