package reconcile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Grazulex/servermark/internal/driver"
	"github.com/Grazulex/servermark/internal/envfile"
	"github.com/Grazulex/servermark/internal/errors"
	"github.com/Grazulex/servermark/internal/php"
	"github.com/Grazulex/servermark/internal/registry"
	"github.com/Grazulex/servermark/internal/script"
	"github.com/Grazulex/servermark/internal/site"
)

type recordingRunner struct {
	mu      sync.Mutex
	scripts []string
	err     error
}

func (r *recordingRunner) Run(ctx context.Context, script string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scripts = append(r.scripts, script)
	return r.err
}

func (r *recordingRunner) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.scripts) == 0 {
		return ""
	}
	return r.scripts[len(r.scripts)-1]
}

type fakePerms struct {
	roots []string
	err   error
}

func (f *fakePerms) Fix(root string) error {
	f.roots = append(f.roots, root)
	return f.err
}

type fixture struct {
	svc    *Service
	dir    string
	sites  *registry.Store
	back   *registry.BackendStore
	caddy  *driver.MockDriver
	nginx  *driver.MockDriver
	runner *recordingRunner
	perms  *fakePerms
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:    dir,
		sites:  registry.NewStore(filepath.Join(dir, "config")),
		back:   registry.NewBackendStore(filepath.Join(dir, "config")),
		caddy:  driver.NewMockDriver(driver.Caddy, filepath.Join(dir, "caddy")),
		nginx:  driver.NewMockDriver(driver.Nginx, filepath.Join(dir, "nginx")),
		runner: &recordingRunner{},
		perms:  &fakePerms{},
	}
	builder := script.NewBuilder(driver.Set{driver.Caddy: f.caddy, driver.Nginx: f.nginx}, script.Options{
		SSLDir:         filepath.Join(dir, "ssl"),
		HostsFile:      filepath.Join(dir, "hosts"),
		Loopback:       "127.0.0.1",
		ContainerHosts: []string{"mysql", "redis"},
	})
	f.svc = New(Options{
		Sites:          f.sites,
		Backends:       f.back,
		Builder:        builder,
		Runner:         f.runner,
		PHP:            &php.MockDetector{Version: "8.2"},
		Perms:          f.perms,
		DefaultPHP:     "8.3",
		Loopback:       "127.0.0.1",
		ContainerHosts: []string{"mysql", "redis"},
	})
	return f
}

// project creates a directory under the fixture; files maps relative paths to content.
func (f *fixture) project(t *testing.T, name string, files map[string]string) string {
	t.Helper()
	root := filepath.Join(f.dir, "Code", name)
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatal(err)
	}
	for rel, content := range files {
		p := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func laravelFiles() map[string]string {
	return map[string]string{
		"artisan":       "#!/usr/bin/env php\n",
		"composer.json": `{"require": {"php": "^8.2", "laravel/framework": "^11.0"}}`,
		".env":          "APP_NAME=Blog\nAPP_URL=http://localhost\nDB_HOST=mysql\n",
	}
}

func envValue(t *testing.T, root, key string) string {
	t.Helper()
	v, _, err := envfile.Get(filepath.Join(root, envfile.Name), key)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestAddSite(t *testing.T) {
	f := newFixture(t)
	root := f.project(t, "blog", laravelFiles())

	s, err := f.svc.AddSite(context.Background(), AddRequest{Path: root})
	if err != nil {
		t.Fatalf("AddSite failed: %v", err)
	}

	if s.Name != "blog" || s.Domain != "blog.test" || s.Secured {
		t.Errorf("unexpected site: %+v", s)
	}
	if s.Type != site.TypeLaravel {
		t.Errorf("expected laravel, got %s", s.Type)
	}
	if s.PHPVersion != "8.2" {
		t.Errorf("expected detected php 8.2, got %s", s.PHPVersion)
	}
	if s.Framework == nil || s.Framework.Constraint != "^11.0" {
		t.Errorf("framework not detected: %+v", s.Framework)
	}
	if s.ID == "" {
		t.Error("expected an id")
	}

	sites, err := f.svc.ListSites()
	if err != nil {
		t.Fatal(err)
	}
	if len(sites) != 1 || sites[0].ID != s.ID {
		t.Errorf("registry should hold exactly the new site, got %+v", sites)
	}

	if len(f.runner.scripts) != 1 {
		t.Fatalf("expected one privileged run, got %d", len(f.runner.scripts))
	}
	if !strings.Contains(f.runner.last(), "# caddy install blog") {
		t.Errorf("script should install on the default backend:\n%s", f.runner.last())
	}

	if got := envValue(t, root, "APP_URL"); got != "http://blog.test" {
		t.Errorf("APP_URL not rewritten: %s", got)
	}
	if got := envValue(t, root, "DB_HOST"); got != "127.0.0.1" {
		t.Errorf("DB_HOST not rewritten: %s", got)
	}
	if len(f.perms.roots) != 1 || f.perms.roots[0] != root {
		t.Errorf("permissions not normalized: %v", f.perms.roots)
	}
}

func TestAddSite_Options(t *testing.T) {
	f := newFixture(t)
	root := f.project(t, "dir", nil)

	s, err := f.svc.AddSite(context.Background(), AddRequest{
		Path: root, Name: "My Docs", PHPVersion: "8.1", Type: site.TypeStatic, Secured: true,
	})
	if err != nil {
		t.Fatalf("AddSite failed: %v", err)
	}
	if s.Domain != "my-docs.test" || s.PHPVersion != "8.1" || !s.Secured {
		t.Errorf("unexpected site: %+v", s)
	}
	if len(f.perms.roots) != 0 {
		t.Error("non-laravel sites must not get permission changes")
	}
	if !strings.Contains(f.runner.last(), "openssl req") {
		t.Error("secured site should get a certificate")
	}
}

func TestAddSite_Validation(t *testing.T) {
	f := newFixture(t)
	blog := f.project(t, "blog", nil)
	other := f.project(t, "other", nil)
	ctx := context.Background()

	if _, err := f.svc.AddSite(ctx, AddRequest{Path: blog, Name: "My Blog"}); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	runs := len(f.runner.scripts)

	testCases := []struct {
		name string
		req  AddRequest
	}{
		{"empty path", AddRequest{}},
		{"missing path", AddRequest{Path: filepath.Join(f.dir, "nope")}},
		{"duplicate path", AddRequest{Path: blog, Name: "again"}},
		{"duplicate name", AddRequest{Path: other, Name: "MY BLOG"}},
		{"domain collision", AddRequest{Path: other, Name: "my-blog"}},
		{"invalid name", AddRequest{Path: other, Name: "bad/name"}},
		{"invalid php", AddRequest{Path: other, PHPVersion: "eight"}},
		{"proxy without target", AddRequest{Path: other, Type: site.TypeProxy}},
		{"target without proxy", AddRequest{Path: other, ProxyTarget: "http://127.0.0.1:3000"}},
		{"unknown type", AddRequest{Path: other, Type: "rails"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.AddSite(ctx, tc.req)
			if !errors.Is(err, errors.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}

	if len(f.runner.scripts) != runs {
		t.Error("rejected adds must not build or run a script")
	}
	sites, _ := f.svc.ListSites()
	if len(sites) != 1 {
		t.Errorf("registry changed by rejected adds: %d sites", len(sites))
	}
}

func TestAddSite_DirectoryNamesKeepPunctuation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	testCases := []struct {
		dir    string
		domain string
	}{
		{"my_app", "my_app.test"},
		{"blog.v2", "blog.v2.test"},
	}
	for _, tc := range testCases {
		t.Run(tc.dir, func(t *testing.T) {
			added, err := f.svc.AddSite(ctx, AddRequest{Path: f.project(t, tc.dir, nil)})
			if err != nil {
				t.Fatalf("AddSite failed: %v", err)
			}
			if added.Name != tc.dir || added.Domain != tc.domain {
				t.Errorf("got name %q domain %q, want %q %q", added.Name, added.Domain, tc.dir, tc.domain)
			}
			if !strings.Contains(f.runner.last(), "echo '127.0.0.1 "+tc.domain+"'") {
				t.Errorf("hosts entry for %s missing:\n%s", tc.domain, f.runner.last())
			}
		})
	}
}

func TestAddSite_ProxyIsRegistered(t *testing.T) {
	f := newFixture(t)
	root := f.project(t, "api", nil)

	s, err := f.svc.AddSite(context.Background(), AddRequest{
		Path: root, Type: site.TypeProxy, ProxyTarget: "http://127.0.0.1:3000",
	})
	if err != nil {
		t.Fatalf("AddSite failed: %v", err)
	}
	if s.ProxyTarget != "http://127.0.0.1:3000" {
		t.Errorf("unexpected site: %+v", s)
	}
	if len(f.caddy.InstallCalls) != 0 {
		t.Error("proxy sites have no fragment")
	}
	if !strings.Contains(f.runner.last(), "no caddy config generated for proxy site api") {
		t.Errorf("skipped site should be noted in the script:\n%s", f.runner.last())
	}
}

func TestAddSite_BestEffortFailuresIgnored(t *testing.T) {
	f := newFixture(t)
	f.perms.err = fmt.Errorf("chown: operation not permitted")
	files := laravelFiles()
	delete(files, ".env")
	root := f.project(t, "blog", files)

	if _, err := f.svc.AddSite(context.Background(), AddRequest{Path: root}); err != nil {
		t.Fatalf("best-effort failures must not fail the add: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, envfile.Name)); !os.IsNotExist(err) {
		t.Error(".env must not be created")
	}
}

func TestAddSite_ScriptFailureKeepsRegistry(t *testing.T) {
	f := newFixture(t)
	f.runner.err = errors.ScriptFailure("nginx: [emerg] bad config", fmt.Errorf("exit status 1"))
	root := f.project(t, "blog", nil)

	_, err := f.svc.AddSite(context.Background(), AddRequest{Path: root})
	if !errors.Is(err, errors.ErrScriptFailure) {
		t.Fatalf("expected script failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "bad config") {
		t.Errorf("stderr should reach the caller: %v", err)
	}

	sites, _ := f.svc.ListSites()
	if len(sites) != 1 {
		t.Fatalf("registry must keep the site after a failed script, got %d", len(sites))
	}

	f.runner.err = nil
	if err := f.svc.SyncAll(context.Background()); err != nil {
		t.Fatalf("SyncAll failed: %v", err)
	}
	if !strings.Contains(f.runner.last(), "# caddy install blog") {
		t.Error("sync should publish the registered site")
	}
}

func TestSecureThenUnsecure(t *testing.T) {
	f := newFixture(t)
	root := f.project(t, "blog", laravelFiles())
	ctx := context.Background()

	s, err := f.svc.AddSite(ctx, AddRequest{Path: root})
	if err != nil {
		t.Fatal(err)
	}

	secured, err := f.svc.SecureSite(ctx, s.ID)
	if err != nil {
		t.Fatalf("SecureSite failed: %v", err)
	}
	if !secured.Secured {
		t.Error("site should be secured")
	}
	if got := envValue(t, root, "APP_URL"); got != "https://blog.test" {
		t.Errorf("APP_URL after secure: %s", got)
	}

	unsecured, err := f.svc.UnsecureSite(ctx, s.ID)
	if err != nil {
		t.Fatalf("UnsecureSite failed: %v", err)
	}
	if unsecured.Secured {
		t.Error("site should be unsecured")
	}
	if got := envValue(t, root, "APP_URL"); got != "http://blog.test" {
		t.Errorf("APP_URL after unsecure: %s", got)
	}

	stored, err := f.svc.Find(s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Secured {
		t.Error("persisted site should be unsecured")
	}
	if len(f.runner.scripts) != 3 {
		t.Errorf("expected 3 privileged runs, got %d", len(f.runner.scripts))
	}
}

func TestUpdateSitePHP(t *testing.T) {
	f := newFixture(t)
	root := f.project(t, "blog", nil)
	ctx := context.Background()
	s, err := f.svc.AddSite(ctx, AddRequest{Path: root})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := f.svc.UpdateSitePHP(ctx, s.ID, "8.4")
	if err != nil {
		t.Fatalf("UpdateSitePHP failed: %v", err)
	}
	if updated.PHPVersion != "8.4" {
		t.Errorf("expected 8.4, got %s", updated.PHPVersion)
	}
	last := f.caddy.InstallCalls[len(f.caddy.InstallCalls)-1]
	if !strings.Contains(last.Content, "php8.4-fpm.sock") {
		t.Errorf("fragment should use the new socket:\n%s", last.Content)
	}

	if _, err := f.svc.UpdateSitePHP(ctx, s.ID, "latest"); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestUnknownSite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.RemoveSite(ctx, "missing"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("RemoveSite: expected not found, got %v", err)
	}
	if _, err := f.svc.SecureSite(ctx, "missing"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("SecureSite: expected not found, got %v", err)
	}
	if _, err := f.svc.UpdateSitePHP(ctx, "missing", "8.3"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("UpdateSitePHP: expected not found, got %v", err)
	}
	if _, err := f.svc.Find("missing"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Find: expected not found, got %v", err)
	}
	if len(f.runner.scripts) != 0 {
		t.Error("no script should run for unknown sites")
	}
}

func TestRemoveThenAddReproducesConfig(t *testing.T) {
	f := newFixture(t)
	root := f.project(t, "blog", nil)
	ctx := context.Background()

	first, err := f.svc.AddSite(ctx, AddRequest{Path: root, Name: "blog", PHPVersion: "8.3"})
	if err != nil {
		t.Fatal(err)
	}
	original := f.caddy.InstallCalls[0].Content

	if err := f.svc.RemoveSite(ctx, first.ID); err != nil {
		t.Fatalf("RemoveSite failed: %v", err)
	}
	if len(f.caddy.UninstallCalls) != 1 || len(f.nginx.UninstallCalls) != 1 {
		t.Error("remove should clean both backends")
	}

	second, err := f.svc.AddSite(ctx, AddRequest{Path: root, Name: "blog", PHPVersion: "8.3"})
	if err != nil {
		t.Fatal(err)
	}
	if second.ID == first.ID {
		t.Error("a removed id must not be reused")
	}
	if got := f.caddy.InstallCalls[1].Content; got != original {
		t.Errorf("fragment differs after re-add:\n%s\n---\n%s", got, original)
	}
}

func TestSwitchBackend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, name := range []string{"one", "two", "three"} {
		if _, err := f.svc.AddSite(ctx, AddRequest{Path: f.project(t, name, nil)}); err != nil {
			t.Fatal(err)
		}
	}

	if err := f.svc.SwitchBackend(ctx, "nginx"); err != nil {
		t.Fatalf("SwitchBackend failed: %v", err)
	}

	active, err := f.back.Load()
	if err != nil {
		t.Fatal(err)
	}
	if active != driver.Nginx {
		t.Errorf("selection should read nginx, got %s", active)
	}
	if len(f.nginx.InstallCalls) != 3 || f.nginx.StartCalls != 1 {
		t.Errorf("nginx should get 3 sites and start: installs=%d starts=%d", len(f.nginx.InstallCalls), f.nginx.StartCalls)
	}
	if f.caddy.StopCalls != 1 || f.caddy.ClearCalls != 1 {
		t.Errorf("caddy should be stopped and cleared: stops=%d clears=%d", f.caddy.StopCalls, f.caddy.ClearCalls)
	}

	runs := len(f.runner.scripts)
	if err := f.svc.SwitchBackend(ctx, "apache"); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if active, _ := f.back.Load(); active != driver.Nginx {
		t.Error("invalid switch must not change the selection")
	}
	if len(f.runner.scripts) != runs {
		t.Error("invalid switch must not run a script")
	}
}

func TestUpdateSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.project(t, "blog", laravelFiles())
	if _, err := f.svc.AddSite(ctx, AddRequest{Path: root}); err != nil {
		t.Fatal(err)
	}

	tld := "local"
	settings, err := f.svc.UpdateSettings(ctx, &tld, nil)
	if err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}
	if settings.TLD != "local" {
		t.Errorf("unexpected settings: %+v", settings)
	}

	s, err := f.svc.Find("blog")
	if err != nil {
		t.Fatal(err)
	}
	if s.Domain != "blog.local" {
		t.Errorf("domain not recomputed: %s", s.Domain)
	}
	applied := f.runner.last()
	if !strings.Contains(applied, `blog\.test`) || !strings.Contains(applied, "'127.0.0.1 blog.local'") {
		t.Errorf("sync should retire the old domain and add the new one:\n%s", applied)
	}
	if got := envValue(t, root, "APP_URL"); got != "http://blog.local" {
		t.Errorf("APP_URL not updated: %s", got)
	}

	runs := len(f.runner.scripts)
	path := filepath.Join(f.dir, "Projects")
	settings, err = f.svc.UpdateSettings(ctx, nil, &path)
	if err != nil {
		t.Fatal(err)
	}
	if settings.SitesPath != path {
		t.Errorf("sites path not saved: %+v", settings)
	}
	if len(f.runner.scripts) != runs {
		t.Error("changing only the sites path needs no script")
	}

	bad := "not a tld"
	if _, err := f.svc.UpdateSettings(ctx, &bad, nil); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestPlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.AddSite(ctx, AddRequest{Path: f.project(t, "blog", nil)}); err != nil {
		t.Fatal(err)
	}
	runs := len(f.runner.scripts)

	remove, err := f.svc.Plan("remove_site", "blog")
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if !strings.Contains(remove.Script, "# nginx uninstall blog") {
		t.Errorf("unexpected plan:\n%s", remove.Script)
	}

	sw, err := f.svc.Plan("switch_server", "")
	if err != nil {
		t.Fatal(err)
	}
	if sw.Active != driver.Nginx {
		t.Errorf("switch plan should target the other backend, got %s", sw.Active)
	}

	if _, err := f.svc.Plan("add_site", ""); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := f.svc.Plan("update_site", "ghost"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	if len(f.runner.scripts) != runs {
		t.Error("Plan must not run anything")
	}
	sites, _ := f.svc.ListSites()
	if len(sites) != 1 {
		t.Error("Plan must not change the registry")
	}
	if active, _ := f.back.Load(); active != driver.Caddy {
		t.Error("Plan must not change the selection")
	}
}

func TestConcurrentAdds(t *testing.T) {
	f := newFixture(t)
	const n = 8
	roots := make([]string, n)
	for i := range roots {
		roots[i] = f.project(t, fmt.Sprintf("site%d", i), nil)
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, root := range roots {
		wg.Add(1)
		go func(root string) {
			defer wg.Done()
			_, err := f.svc.AddSite(context.Background(), AddRequest{Path: root})
			errs <- err
		}(root)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("AddSite failed: %v", err)
		}
	}

	sites, err := f.svc.ListSites()
	if err != nil {
		t.Fatal(err)
	}
	if len(sites) != n {
		t.Errorf("expected %d sites, got %d", n, len(sites))
	}
}
