// Package reconcile is the operation set the CLI drives: every change to
// the site registry goes through a Service, which persists the registry
// first and then runs one privileged script to bring the web server in
// line with it.
//
// A Service serializes all operations behind one mutex. If the script
// fails, the registry keeps its new state and the live config keeps its
// old one; SyncAll repairs that.
//
// Laravel housekeeping (.env APP_URL, container *_HOST values, storage
// permissions) is best effort: failures are logged as warnings and never
// returned.
package reconcile

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/Grazulex/servermark/internal/driver"
	"github.com/Grazulex/servermark/internal/envfile"
	"github.com/Grazulex/servermark/internal/errors"
	"github.com/Grazulex/servermark/internal/logger"
	"github.com/Grazulex/servermark/internal/php"
	"github.com/Grazulex/servermark/internal/registry"
	"github.com/Grazulex/servermark/internal/script"
	"github.com/Grazulex/servermark/internal/site"
)

// Runner executes a privileged script.
type Runner interface {
	Run(ctx context.Context, script string) error
}

// PermFixer normalizes a project's writable directories.
type PermFixer interface {
	Fix(root string) error
}

// Options wires a Service.
type Options struct {
	Sites    *registry.Store
	Backends *registry.BackendStore
	Builder  *script.Builder
	Runner   Runner
	PHP      php.Detector
	Perms    PermFixer

	DefaultPHP     string
	Loopback       string
	ContainerHosts []string
}

// Service implements the reconciliation operations.
type Service struct {
	mu   sync.Mutex
	opts Options
	log  *logger.Logger
}

// New creates a Service.
func New(opts Options) *Service {
	return &Service{opts: opts, log: logger.With("component", "reconcile")}
}

// AddRequest describes a site to register. Only Path is required.
type AddRequest struct {
	Path        string
	Name        string
	PHPVersion  string
	Type        site.Type
	ProxyTarget string
	Secured     bool
}

// Settings are the registry-wide values.
type Settings struct {
	TLD       string `json:"tld"`
	SitesPath string `json:"sites_path"`
}

// ListSites returns the registered sites.
func (s *Service) ListSites() ([]site.Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.opts.Sites.Load()
	if err != nil {
		return nil, err
	}
	return doc.Snapshot(), nil
}

// Settings returns the tld and default projects directory.
func (s *Service) Settings() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.opts.Sites.Load()
	if err != nil {
		return Settings{}, err
	}
	return Settings{TLD: doc.TLD, SitesPath: doc.SitesPath}, nil
}

// ActiveBackend returns the selected web server.
func (s *Service) ActiveBackend() (driver.Backend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts.Backends.Load()
}

// Find resolves ref as a site id, then a name, then a domain.
func (s *Service) Find(ref string) (*site.Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.opts.Sites.Load()
	if err != nil {
		return nil, err
	}
	found, err := lookup(doc, ref)
	if err != nil {
		return nil, err
	}
	out := *found
	return &out, nil
}

func lookup(doc *registry.Document, ref string) (*site.Site, error) {
	if found := doc.Find(ref); found != nil {
		return found, nil
	}
	if found := doc.FindByName(ref); found != nil {
		return found, nil
	}
	if found := doc.FindByDomain(ref); found != nil {
		return found, nil
	}
	return nil, errors.NotFound(ref)
}

// AddSite registers a project directory and publishes it.
func (s *Service) AddSite(ctx context.Context, req AddRequest) (*site.Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Path == "" {
		return nil, errors.Validation("site path is required")
	}
	path, err := filepath.Abs(req.Path)
	if err != nil {
		return nil, errors.Validationf("invalid path %q: %v", req.Path, err)
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil, errors.Validationf("path %s does not exist or is not a directory", path)
	}

	doc, err := s.opts.Sites.Load()
	if err != nil {
		return nil, err
	}
	if existing := doc.FindByPath(path); existing != nil {
		return nil, errors.Validationf("path %s is already registered as %s", path, existing.Name)
	}

	name := req.Name
	if name == "" {
		name = site.NameFromPath(path)
	}
	if err := site.ValidateName(name); err != nil {
		return nil, errors.Validation(err.Error())
	}
	if existing := doc.FindByName(name); existing != nil {
		return nil, errors.Validationf("site name %q is already registered", existing.Name)
	}
	domain := site.DomainFor(name, doc.TLD)
	if existing := doc.FindByDomain(domain); existing != nil {
		return nil, errors.Validationf("domain %s is already used by site %s", domain, existing.Name)
	}

	typ := req.Type
	if typ == "" {
		typ = site.Detect(path)
	}
	if !typ.Valid() {
		return nil, errors.Validationf("unknown site type %q", typ)
	}
	if err := validateProxy(typ, req.ProxyTarget); err != nil {
		return nil, err
	}

	version := req.PHPVersion
	if version == "" {
		version = php.Resolve(s.opts.PHP, s.opts.DefaultPHP)
	}
	if err := site.ValidatePHPVersion(version); err != nil {
		return nil, errors.Validation(err.Error())
	}

	added := site.Site{
		ID:          site.NewID(),
		Name:        name,
		Path:        path,
		Domain:      domain,
		PHPVersion:  version,
		Secured:     req.Secured,
		Type:        typ,
		ProxyTarget: req.ProxyTarget,
		Framework:   site.DetectFramework(path, typ),
	}

	doc.Sites = append(doc.Sites, added)
	if err := s.opts.Sites.Save(doc); err != nil {
		return nil, err
	}
	s.log.Info("site registered", "site", added.Name, "domain", added.Domain, "type", added.Type)

	if added.Type == site.TypeLaravel {
		s.laravelHousekeeping(&added)
	}

	if err := s.reconcile(ctx, doc, script.AddSite, &added); err != nil {
		return nil, err
	}
	return &added, nil
}

func validateProxy(typ site.Type, target string) error {
	if typ != site.TypeProxy {
		if target != "" {
			return errors.Validation("a proxy target requires site type proxy")
		}
		return nil
	}
	if target == "" {
		return errors.Validation("proxy sites need a target URL")
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.Validationf("invalid proxy target %q", target)
	}
	return nil
}

// RemoveSite unregisters a site and deletes its fragments from both backends.
func (s *Service) RemoveSite(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.opts.Sites.Load()
	if err != nil {
		return err
	}
	removed, ok := doc.Remove(id)
	if !ok {
		return errors.NotFound(id)
	}
	if err := s.opts.Sites.Save(doc); err != nil {
		return err
	}
	s.log.Info("site removed", "site", removed.Name, "domain", removed.Domain)

	return s.reconcile(ctx, doc, script.RemoveSite, &removed)
}

// UpdateSitePHP changes the PHP version a site runs on.
func (s *Service) UpdateSitePHP(ctx context.Context, id, version string) (*site.Site, error) {
	if err := site.ValidatePHPVersion(version); err != nil {
		return nil, errors.Validation(err.Error())
	}
	return s.update(ctx, id, func(st *site.Site) {
		st.PHPVersion = version
	}, nil)
}

// SecureSite serves a site over https with a self-signed certificate.
func (s *Service) SecureSite(ctx context.Context, id string) (*site.Site, error) {
	return s.setSecured(ctx, id, true)
}

// UnsecureSite serves a site over plain http.
func (s *Service) UnsecureSite(ctx context.Context, id string) (*site.Site, error) {
	return s.setSecured(ctx, id, false)
}

func (s *Service) setSecured(ctx context.Context, id string, secured bool) (*site.Site, error) {
	return s.update(ctx, id, func(st *site.Site) {
		st.Secured = secured
	}, func(st *site.Site) {
		if st.Type == site.TypeLaravel {
			s.bestEffort("update APP_URL", st, envfile.SetAppURL(s.envPath(st), st.URL()))
		}
	})
}

// update applies mutate to one site, persists it, runs the optional
// best-effort after step and reconciles.
func (s *Service) update(ctx context.Context, id string, mutate, after func(*site.Site)) (*site.Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.opts.Sites.Load()
	if err != nil {
		return nil, err
	}
	target := doc.Find(id)
	if target == nil {
		return nil, errors.NotFound(id)
	}
	mutate(target)
	if err := s.opts.Sites.Save(doc); err != nil {
		return nil, err
	}
	updated := *target
	s.log.Info("site updated", "site", updated.Name, "php", updated.PHPVersion, "secured", updated.Secured)
	if after != nil {
		after(&updated)
	}

	if err := s.reconcile(ctx, doc, script.UpdateSite, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// SwitchBackend makes name the active web server and moves every site to it.
func (s *Service) SwitchBackend(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := driver.ParseBackend(name)
	if err != nil {
		return err
	}
	doc, err := s.opts.Sites.Load()
	if err != nil {
		return err
	}
	if err := s.opts.Backends.Save(b); err != nil {
		return err
	}
	s.log.Info("web server selected", "backend", b, "sites", len(doc.Sites))

	return s.run(ctx, script.Request{Op: script.SwitchServer, Sites: doc.Snapshot(), Active: b})
}

// SyncAll regenerates every fragment for the active backend.
func (s *Service) SyncAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.opts.Sites.Load()
	if err != nil {
		return err
	}
	return s.reconcile(ctx, doc, script.SyncAll, nil)
}

// UpdateSettings changes the tld and/or default projects directory. A tld
// change renames every domain and runs a full sync that drops the old ones.
func (s *Service) UpdateSettings(ctx context.Context, tld, sitesPath *string) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.opts.Sites.Load()
	if err != nil {
		return Settings{}, err
	}

	var retired []site.Site
	if tld != nil && *tld != doc.TLD {
		if err := site.ValidateTLD(*tld); err != nil {
			return Settings{}, errors.Validation(err.Error())
		}
		seen := make(map[string]string, len(doc.Sites))
		for _, st := range doc.Sites {
			domain := site.DomainFor(st.Name, *tld)
			if other, dup := seen[domain]; dup {
				return Settings{}, errors.Validationf("sites %s and %s would share domain %s", other, st.Name, domain)
			}
			seen[domain] = st.Name
		}
		retired = doc.Snapshot()
		for i := range doc.Sites {
			doc.Sites[i].Domain = site.DomainFor(doc.Sites[i].Name, *tld)
		}
		doc.TLD = *tld
	}
	if sitesPath != nil {
		abs, err := filepath.Abs(*sitesPath)
		if err != nil {
			return Settings{}, errors.Validationf("invalid sites path %q: %v", *sitesPath, err)
		}
		doc.SitesPath = abs
	}

	if err := s.opts.Sites.Save(doc); err != nil {
		return Settings{}, err
	}
	settings := Settings{TLD: doc.TLD, SitesPath: doc.SitesPath}
	if retired == nil {
		return settings, nil
	}

	s.log.Info("tld changed", "tld", doc.TLD, "sites", len(doc.Sites))
	for i := range doc.Sites {
		if st := &doc.Sites[i]; st.Type == site.TypeLaravel {
			s.bestEffort("update APP_URL", st, envfile.SetAppURL(s.envPath(st), st.URL()))
		}
	}

	active, err := s.opts.Backends.Load()
	if err != nil {
		return settings, err
	}
	return settings, s.run(ctx, script.Request{
		Op:      script.SyncAll,
		Sites:   doc.Snapshot(),
		Active:  active,
		Retired: retired,
	})
}

// Plan builds the script an operation would run without changing anything.
// For add, update and remove, arg names an existing site; for
// switch_server it names the target backend.
func (s *Service) Plan(opName, arg string) (*script.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, err := script.ParseOp(opName)
	if err != nil {
		return nil, err
	}
	doc, err := s.opts.Sites.Load()
	if err != nil {
		return nil, err
	}
	active, err := s.opts.Backends.Load()
	if err != nil {
		return nil, err
	}

	req := script.Request{Op: op, Sites: doc.Snapshot(), Active: active}
	switch op {
	case script.SwitchServer:
		target := active.Other()
		if arg != "" {
			if target, err = driver.ParseBackend(arg); err != nil {
				return nil, err
			}
		}
		req.Active = target
	case script.AddSite, script.UpdateSite, script.RemoveSite:
		if arg == "" {
			return nil, errors.Validationf("%s needs a site", op)
		}
		found, err := lookup(doc, arg)
		if err != nil {
			return nil, err
		}
		target := *found
		req.Target = &target
		if op == script.RemoveSite {
			doc.Remove(target.ID)
			req.Sites = doc.Snapshot()
		}
	}
	return s.opts.Builder.Build(req)
}

// reconcile runs op against the active backend.
func (s *Service) reconcile(ctx context.Context, doc *registry.Document, op script.Op, target *site.Site) error {
	active, err := s.opts.Backends.Load()
	if err != nil {
		return err
	}
	return s.run(ctx, script.Request{Op: op, Sites: doc.Snapshot(), Active: active, Target: target})
}

func (s *Service) run(ctx context.Context, req script.Request) error {
	plan, err := s.opts.Builder.Build(req)
	if err != nil {
		return err
	}
	for _, name := range plan.Skipped {
		s.log.Warn("no web server config generated; proxy sites are not supported yet", "site", name, "backend", plan.Active)
	}

	log := s.log.With("op", req.Op, "backend", req.Active)
	log.Debug("applying configuration")
	if err := s.opts.Runner.Run(ctx, plan.Script); err != nil {
		log.Error("reconciliation failed; registry is saved, run sync to retry", "error", err)
		return err
	}
	log.Info("configuration applied")
	return nil
}

func (s *Service) envPath(st *site.Site) string {
	return filepath.Join(st.Path, envfile.Name)
}

// laravelHousekeeping prepares a freshly added Laravel project.
func (s *Service) laravelHousekeeping(st *site.Site) {
	s.bestEffort("update APP_URL", st, envfile.SetAppURL(s.envPath(st), st.URL()))

	n, err := envfile.FixContainerHosts(s.envPath(st), s.opts.ContainerHosts, s.opts.Loopback)
	s.bestEffort("rewrite container hosts", st, err)
	if n > 0 {
		s.log.Info("container hosts pointed at loopback", "site", st.Name, "entries", n)
	}

	if s.opts.Perms != nil {
		s.bestEffort("fix storage permissions", st, s.opts.Perms.Fix(st.Path))
	}
}

// bestEffort logs err and drops it.
func (s *Service) bestEffort(step string, st *site.Site, err error) {
	if err != nil {
		s.log.Warn(step+" failed", "site", st.Name, "error", err)
	}
}
