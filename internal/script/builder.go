// Package script composes the single privileged script for one
// reconciliation operation.
//
// Build is a pure function of its Request: it reads the site snapshot,
// renders fragments and returns the complete script text. Nothing is
// executed here, and a failure while rendering any site aborts the whole
// build, so a multi-site operation is never emitted partially.
package script

import (
	"fmt"

	"github.com/Grazulex/servermark/internal/driver"
	"github.com/Grazulex/servermark/internal/errors"
	"github.com/Grazulex/servermark/internal/hosts"
	"github.com/Grazulex/servermark/internal/perms"
	"github.com/Grazulex/servermark/internal/shell"
	"github.com/Grazulex/servermark/internal/site"
	"github.com/Grazulex/servermark/internal/ssl"
	"github.com/Grazulex/servermark/internal/template"
)

// Op is a reconciliation operation.
type Op string

// Operations.
const (
	SyncAll      Op = "sync_all"
	AddSite      Op = "add_site"
	UpdateSite   Op = "update_site"
	RemoveSite   Op = "remove_site"
	SwitchServer Op = "switch_server"
)

// Ops returns every operation.
func Ops() []Op {
	return []Op{SyncAll, AddSite, UpdateSite, RemoveSite, SwitchServer}
}

// ParseOp validates an operation name.
func ParseOp(s string) (Op, error) {
	for _, op := range Ops() {
		if string(op) == s {
			return op, nil
		}
	}
	return "", errors.Validationf("unknown operation %q", s)
}

// targeted reports whether op acts on a single site.
func (o Op) targeted() bool {
	return o == AddSite || o == UpdateSite || o == RemoveSite
}

// Request is one pending change plus the registry snapshot it applies to.
type Request struct {
	Op     Op
	Sites  []site.Site
	Active driver.Backend // for SwitchServer, the incoming backend
	Target *site.Site     // the site for add, update and remove
	// Retired are sites as they were before a tld change; their old
	// domains lose hosts entries and certificates during SyncAll.
	Retired []site.Site
}

// Plan is a built script.
type Plan struct {
	Op      Op             `json:"op"`
	Active  driver.Backend `json:"active"`
	Script  string         `json:"script"`
	Skipped []string       `json:"skipped,omitempty"` // sites without a generated fragment
}

// Options are the host locations a script touches.
type Options struct {
	SSLDir         string
	HostsFile      string
	Loopback       string
	ContainerHosts []string

	// Laravel storage and bootstrap/cache go to Owner:WebGroup on add.
	Owner    string
	WebGroup string
}

// Builder composes scripts.
type Builder struct {
	drivers driver.Set
	gen     *template.Generator
	opts    Options
}

// NewBuilder creates a Builder.
func NewBuilder(drivers driver.Set, opts Options) *Builder {
	return &Builder{
		drivers: drivers,
		gen:     template.New(opts.SSLDir),
		opts:    opts,
	}
}

// Build composes the script for req.
func (b *Builder) Build(req Request) (*Plan, error) {
	if _, err := ParseOp(string(req.Op)); err != nil {
		return nil, err
	}
	if req.Op.targeted() && req.Target == nil {
		return nil, errors.Validationf("%s requires a target site", req.Op)
	}
	active, err := b.drivers.Get(req.Active)
	if err != nil {
		return nil, err
	}

	plan := &Plan{Op: req.Op, Active: req.Active}
	sc := shell.New()
	sc.Comment(fmt.Sprintf("servermark %s (web server: %s)", req.Op, req.Active))
	b.preamble(sc, active)

	switch req.Op {
	case SyncAll:
		sc.Comment("clear generated " + string(active.Backend()) + " config")
		active.Clear(sc)
		b.retire(sc, req.Retired)
		if err := b.writeSites(sc, active, req.Sites, plan); err != nil {
			return nil, err
		}
		sc.Comment("reload " + active.Service())
		active.Reload(sc)

	case AddSite, UpdateSite:
		if err := b.writeSite(sc, active, req.Target, plan); err != nil {
			return nil, err
		}
		if req.Op == AddSite && req.Target.Type == site.TypeLaravel {
			perms.Script(sc, req.Target.Path, b.opts.Owner, b.opts.WebGroup)
		}
		sc.Comment("reload " + active.Service())
		active.Reload(sc)

	case RemoveSite:
		b.removeSite(sc, req.Target)
		sc.Comment("reload " + active.Service())
		active.Reload(sc)

	case SwitchServer:
		outgoing, err := b.drivers.Get(req.Active.Other())
		if err != nil {
			return nil, err
		}
		sc.Comment("stop " + outgoing.Service())
		outgoing.Stop(sc)
		sc.Comment("clear generated config for both web servers")
		outgoing.Clear(sc)
		active.Clear(sc)
		if err := b.writeSites(sc, active, req.Sites, plan); err != nil {
			return nil, err
		}
		sc.Comment("start " + active.Service())
		active.Start(sc)
	}

	plan.Script = sc.String()
	return plan, nil
}

func (b *Builder) preamble(sc *shell.Script, active driver.Driver) {
	sc.Comment("prepare directories")
	sc.Linef("mkdir -p %s", shell.Quote(b.opts.SSLDir))
	sc.Linef("chmod 755 %s", shell.Quote(b.opts.SSLDir))
	active.EnsureDirs(sc)

	if len(b.opts.ContainerHosts) > 0 {
		sc.Comment("container service hostnames")
		hosts.AddAll(sc, b.opts.HostsFile, b.opts.Loopback, b.opts.ContainerHosts)
	}
}

func (b *Builder) writeSites(sc *shell.Script, drv driver.Driver, sites []site.Site, plan *Plan) error {
	for i := range sites {
		if err := b.writeSite(sc, drv, &sites[i], plan); err != nil {
			return err
		}
	}
	return nil
}

// writeSite emits cert, fragment and hosts entry for s. Proxy sites have
// no generator; they keep their hosts entry and are reported in plan.Skipped.
func (b *Builder) writeSite(sc *shell.Script, drv driver.Driver, s *site.Site, plan *Plan) error {
	sc.Comment(fmt.Sprintf("site %s (%s)", s.Name, s.Domain))

	content, err := b.gen.Render(drv.Backend(), s)
	switch {
	case errors.Is(err, errors.ErrUnsupported):
		plan.Skipped = append(plan.Skipped, s.Name)
		sc.Linef("# no %s config generated for %s site %s", drv.Backend(), s.Type, s.Name)
	case err != nil:
		return errors.WithSubject(err, s.Name)
	default:
		if s.Secured {
			ssl.Ensure(sc, b.opts.SSLDir, s.Domain)
		}
		drv.Install(sc, s.Name, content)
	}

	hosts.Add(sc, b.opts.HostsFile, b.opts.Loopback, s.Domain)
	return nil
}

// removeSite deletes the site's fragment from every backend, not just the
// active one, so a site added before a switch leaves nothing behind.
func (b *Builder) removeSite(sc *shell.Script, s *site.Site) {
	sc.Comment(fmt.Sprintf("remove site %s (%s)", s.Name, s.Domain))
	for _, backend := range driver.Backends() {
		if drv, ok := b.drivers[backend]; ok {
			drv.Uninstall(sc, s.Name)
		}
	}
	hosts.Remove(sc, b.opts.HostsFile, b.opts.Loopback, s.Domain)
	ssl.Purge(sc, b.opts.SSLDir, s.Domain)
}

func (b *Builder) retire(sc *shell.Script, retired []site.Site) {
	if len(retired) == 0 {
		return
	}
	sc.Comment("retire old domains")
	for _, s := range retired {
		hosts.Remove(sc, b.opts.HostsFile, b.opts.Loopback, s.Domain)
		ssl.Purge(sc, b.opts.SSLDir, s.Domain)
	}
}
