package script

import (
	"strings"
	"testing"

	"github.com/Grazulex/servermark/internal/driver"
	"github.com/Grazulex/servermark/internal/errors"
	"github.com/Grazulex/servermark/internal/site"
)

func testSites() []site.Site {
	return []site.Site{
		{ID: "1", Name: "blog", Path: "/home/dev/blog", Domain: "blog.test", PHPVersion: "8.3", Type: site.TypeLaravel},
		{ID: "2", Name: "docs", Path: "/home/dev/docs", Domain: "docs.test", PHPVersion: "8.2", Type: site.TypeStatic, Secured: true},
	}
}

func newMockBuilder(t *testing.T) (*Builder, *driver.MockDriver, *driver.MockDriver) {
	t.Helper()
	caddy := driver.NewMockDriver(driver.Caddy, "/caddy")
	nginx := driver.NewMockDriver(driver.Nginx, "/nginx")
	b := NewBuilder(driver.Set{driver.Caddy: caddy, driver.Nginx: nginx}, Options{
		SSLDir:         "/ssl",
		HostsFile:      "/etc/hosts",
		Loopback:       "127.0.0.1",
		ContainerHosts: []string{"mysql"},
		Owner:          "dev",
		WebGroup:       "www-data",
	})
	return b, caddy, nginx
}

// assertOrder fails unless each marker appears in script after the previous one.
func assertOrder(t *testing.T, script string, markers ...string) {
	t.Helper()
	pos := 0
	for _, m := range markers {
		i := strings.Index(script[pos:], m)
		if i < 0 {
			t.Fatalf("%q missing or out of order in:\n%s", m, script)
		}
		pos += i + len(m)
	}
}

func TestParseOp(t *testing.T) {
	for _, op := range Ops() {
		got, err := ParseOp(string(op))
		if err != nil || got != op {
			t.Errorf("ParseOp(%q) = %q, %v", op, got, err)
		}
	}
	if _, err := ParseOp("restart_everything"); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestBuild_AddSite(t *testing.T) {
	b, caddy, nginx := newMockBuilder(t)
	sites := testSites()

	plan, err := b.Build(Request{Op: AddSite, Sites: sites, Active: driver.Caddy, Target: &sites[0]})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if !strings.HasPrefix(plan.Script, "#!/bin/bash\nset -e\n") {
		t.Errorf("script must start with the bash header:\n%s", plan.Script)
	}
	assertOrder(t, plan.Script,
		"mkdir -p '/ssl'",
		"# caddy ensure-dirs",
		"echo '127.0.0.1 mysql' >> '/etc/hosts'",
		"# caddy install blog",
		"echo '127.0.0.1 blog.test' >> '/etc/hosts'",
		"# caddy reload",
	)

	if len(caddy.InstallCalls) != 1 || caddy.InstallCalls[0].Name != "blog" {
		t.Errorf("unexpected installs: %+v", caddy.InstallCalls)
	}
	if !strings.Contains(caddy.InstallCalls[0].Content, "http://blog.test {") {
		t.Errorf("caddy fragment not rendered:\n%s", caddy.InstallCalls[0].Content)
	}
	if caddy.ClearCalls != 0 {
		t.Error("add must not clear other sites")
	}
	if nginx.EnsureDirsCalls+len(nginx.InstallCalls)+nginx.ReloadCalls != 0 {
		t.Error("inactive backend must not be touched")
	}
	if strings.Contains(plan.Script, "openssl") {
		t.Error("unsecured site must not get a certificate")
	}
}

func TestBuild_LaravelOwnership(t *testing.T) {
	sites := testSites()
	testCases := []struct {
		name   string
		op     Op
		target *site.Site
		want   bool
	}{
		{"laravel add", AddSite, &sites[0], true},
		{"static add", AddSite, &sites[1], false},
		{"laravel update", UpdateSite, &sites[0], false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, _, _ := newMockBuilder(t)
			plan, err := b.Build(Request{Op: tc.op, Sites: sites, Active: driver.Caddy, Target: tc.target})
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}
			got := strings.Contains(plan.Script, "chown -R 'dev:www-data' '/home/dev/blog/storage'")
			if got != tc.want {
				t.Errorf("ownership lines present = %v, want %v:\n%s", got, tc.want, plan.Script)
			}
			if tc.want {
				assertOrder(t, plan.Script,
					"# caddy install blog",
					"chown -R 'dev:www-data' '/home/dev/blog/storage'",
					"chmod -R 775 '/home/dev/blog/bootstrap/cache'",
					"# caddy reload",
				)
			}
		})
	}
}

func TestBuild_UpdateSecuredSite(t *testing.T) {
	b, _, nginx := newMockBuilder(t)
	sites := testSites()

	plan, err := b.Build(Request{Op: UpdateSite, Sites: sites, Active: driver.Nginx, Target: &sites[1]})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	assertOrder(t, plan.Script,
		"if [ ! -f '/ssl/docs.test.crt' ] || [ ! -f '/ssl/docs.test.key' ]; then",
		"# nginx install docs",
		"# nginx reload",
	)
	if !strings.Contains(nginx.InstallCalls[0].Content, "ssl_certificate /ssl/docs.test.crt;") {
		t.Errorf("nginx fragment should point at the cert:\n%s", nginx.InstallCalls[0].Content)
	}
}

func TestBuild_RemoveSiteCleansBothBackends(t *testing.T) {
	b, caddy, nginx := newMockBuilder(t)
	sites := testSites()
	removed := sites[1]

	plan, err := b.Build(Request{Op: RemoveSite, Sites: sites[:1], Active: driver.Nginx, Target: &removed})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(caddy.UninstallCalls) != 1 || len(nginx.UninstallCalls) != 1 {
		t.Errorf("fragment must be removed from both backends: caddy=%v nginx=%v",
			caddy.UninstallCalls, nginx.UninstallCalls)
	}
	if caddy.ReloadCalls != 0 || nginx.ReloadCalls != 1 {
		t.Errorf("only the active backend reloads: caddy=%d nginx=%d", caddy.ReloadCalls, nginx.ReloadCalls)
	}
	assertOrder(t, plan.Script,
		"# caddy uninstall docs",
		"# nginx uninstall docs",
		`sed -i -E '/^[[:space:]]*127\.0\.0\.1[[:space:]]+docs\.test[[:space:]]*$/d' '/etc/hosts'`,
		"rm -f '/ssl/docs.test.crt' '/ssl/docs.test.key'",
		"# nginx reload",
	)
}

func TestBuild_SyncAll(t *testing.T) {
	b, caddy, _ := newMockBuilder(t)
	sites := testSites()
	retired := []site.Site{{Name: "blog", Domain: "blog.local"}}

	plan, err := b.Build(Request{Op: SyncAll, Sites: sites, Active: driver.Caddy, Retired: retired})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if caddy.ClearCalls != 1 || len(caddy.InstallCalls) != 2 || caddy.ReloadCalls != 1 {
		t.Errorf("unexpected calls: clear=%d install=%d reload=%d",
			caddy.ClearCalls, len(caddy.InstallCalls), caddy.ReloadCalls)
	}
	assertOrder(t, plan.Script,
		"# caddy clear",
		`blog\.local`,
		"# caddy install blog",
		"# caddy install docs",
		"# caddy reload",
	)
}

func TestBuild_SyncAllEmptyRegistry(t *testing.T) {
	b, caddy, _ := newMockBuilder(t)

	plan, err := b.Build(Request{Op: SyncAll, Active: driver.Caddy})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if caddy.ClearCalls != 1 || caddy.ReloadCalls != 1 || len(caddy.InstallCalls) != 0 {
		t.Errorf("empty sync should clear and reload only: %+v", caddy)
	}
	if plan.Script == "" {
		t.Error("expected a script")
	}
}

func TestBuild_SwitchServer(t *testing.T) {
	b, caddy, nginx := newMockBuilder(t)

	plan, err := b.Build(Request{Op: SwitchServer, Sites: testSites(), Active: driver.Nginx})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	assertOrder(t, plan.Script,
		"# nginx ensure-dirs",
		"# caddy stop",
		"# caddy clear",
		"# nginx clear",
		"# nginx install blog",
		"# nginx install docs",
		"# nginx start",
	)
	if len(caddy.InstallCalls) != 0 || caddy.StartCalls != 0 {
		t.Error("outgoing backend must not receive sites")
	}
	if nginx.StopCalls != 0 {
		t.Error("incoming backend must not be stopped")
	}
}

func TestBuild_ProxySiteSkipped(t *testing.T) {
	b, caddy, _ := newMockBuilder(t)
	sites := append(testSites(), site.Site{
		ID: "3", Name: "api", Domain: "api.test", Type: site.TypeProxy, ProxyTarget: "http://127.0.0.1:3000",
	})

	plan, err := b.Build(Request{Op: SyncAll, Sites: sites, Active: driver.Caddy})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(plan.Skipped) != 1 || plan.Skipped[0] != "api" {
		t.Errorf("expected api to be reported as skipped, got %v", plan.Skipped)
	}
	if len(caddy.InstallCalls) != 2 {
		t.Errorf("other sites must still be written, got %d installs", len(caddy.InstallCalls))
	}
	if !strings.Contains(plan.Script, "echo '127.0.0.1 api.test'") {
		t.Error("skipped site should keep its hosts entry")
	}
}

func TestBuild_Errors(t *testing.T) {
	b, _, _ := newMockBuilder(t)

	testCases := []struct {
		name string
		req  Request
	}{
		{"unknown op", Request{Op: "reboot", Active: driver.Caddy}},
		{"add without target", Request{Op: AddSite, Active: driver.Caddy}},
		{"remove without target", Request{Op: RemoveSite, Active: driver.Nginx}},
		{"unknown backend", Request{Op: SyncAll, Active: "apache"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := b.Build(tc.req); !errors.Is(err, errors.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestBuild_Deterministic(t *testing.T) {
	b, _, _ := newMockBuilder(t)
	req := Request{Op: SwitchServer, Sites: testSites(), Active: driver.Caddy}

	first, err := b.Build(req)
	if err != nil {
		t.Fatal(err)
	}
	second, err := b.Build(req)
	if err != nil {
		t.Fatal(err)
	}
	if first.Script != second.Script {
		t.Error("same request must produce the same script")
	}
}
