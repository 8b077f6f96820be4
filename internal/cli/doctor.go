package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/Grazulex/servermark/internal/config"
	"github.com/Grazulex/servermark/internal/driver"
	"github.com/Grazulex/servermark/internal/envfile"
	"github.com/Grazulex/servermark/internal/executor"
	"github.com/Grazulex/servermark/internal/hosts"
	"github.com/Grazulex/servermark/internal/output"
	"github.com/Grazulex/servermark/internal/php"
	"github.com/Grazulex/servermark/internal/registry"
	"github.com/Grazulex/servermark/internal/site"
	"github.com/Grazulex/servermark/internal/ssl"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check system status and diagnose issues",
	Long: `Run diagnostic checks on the system and the registered sites.

Checks:
  - Web server installation (caddy, nginx)
  - PHP-FPM pools used by the sites
  - openssl and the privilege helper
  - Registry and web server config files
  - Per site: project directory, config file, hosts entry, certificate

Examples:
  servermark doctor
  servermark doctor --json`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

// phpRunDir is replaced in tests.
var phpRunDir = php.RunDir

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// CheckResult represents a single diagnostic check result
type CheckResult struct {
	Status  string `json:"status"` // "success", "warning", "error"
	Message string `json:"message"`
}

// SiteStatus represents the status of a single site
type SiteStatus struct {
	Name   string        `json:"name"`
	Domain string        `json:"domain"`
	Checks []CheckResult `json:"checks"`
}

// DoctorReport contains all diagnostic results
type DoctorReport struct {
	Backend            driver.Backend `json:"backend"`
	SystemRequirements []CheckResult  `json:"system_requirements"`
	Configuration      []CheckResult  `json:"configuration"`
	Sites              []SiteStatus   `json:"sites"`
}

// Healthy reports whether no check failed.
func (r *DoctorReport) Healthy() bool {
	all := append(append([]CheckResult{}, r.SystemRequirements...), r.Configuration...)
	for _, s := range r.Sites {
		all = append(all, s.Checks...)
	}
	for _, c := range all {
		if c.Status == "error" {
			return false
		}
	}
	return true
}

func runDoctor(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	backend, err := a.svc.ActiveBackend()
	if err != nil {
		return err
	}
	drv, err := a.drivers.Get(backend)
	if err != nil {
		return err
	}
	sites, err := a.svc.ListSites()
	if err != nil {
		return err
	}
	stateDir, err := deps.ConfigLoader.StateDir()
	if err != nil {
		return err
	}

	// Run all checks
	report := &DoctorReport{Backend: backend}
	report.SystemRequirements = checkSystemRequirements(deps.Executor, a.cfg, backend, sites)
	report.Configuration = checkConfiguration(drv, stateDir)
	report.Sites = checkSites(drv, a.cfg, sites)

	// Output results
	if jsonOutput {
		return output.JSON(report)
	}

	displayDoctorResults(report)
	output.Print("")
	if report.Healthy() {
		output.Success("No problems found")
	} else {
		output.Warn("Some checks failed, see above")
	}
	return nil
}

func checkSystemRequirements(exec executor.CommandExecutor, cfg *config.Config, active driver.Backend, sites []site.Site) []CheckResult {
	results := []CheckResult{}

	// Version extraction patterns
	versionPatterns := map[string]*regexp.Regexp{
		"nginx": regexp.MustCompile(`nginx/(\d+\.\d+\.\d+)`),
		"caddy": regexp.MustCompile(`v?(\d+\.\d+\.\d+)`),
	}

	// Check web servers
	webServers := []struct {
		name        string
		binary      string
		versionFlag string
		optional    bool
	}{
		{"Caddy", "caddy", "version", active != driver.Caddy},
		{"Nginx", "nginx", "-v", active != driver.Nginx},
	}

	for _, ws := range webServers {
		if _, err := exec.LookPath(ws.binary); err == nil {
			versionOutput, err := exec.Execute(ws.binary, ws.versionFlag)
			version := "unknown"
			if err == nil {
				if matches := versionPatterns[ws.binary].FindStringSubmatch(string(versionOutput)); len(matches) >= 2 {
					version = matches[1]
				}
			}
			results = append(results, CheckResult{
				Status:  "success",
				Message: fmt.Sprintf("%s installed (%s)", ws.name, version),
			})
		} else {
			status := "error"
			suffix := ""
			if ws.optional {
				status = "warning"
				suffix = " (optional)"
			}
			results = append(results, CheckResult{
				Status:  status,
				Message: fmt.Sprintf("%s not installed%s", ws.name, suffix),
			})
		}
	}

	results = append(results, checkPHPFPM(exec, sites)...)

	// openssl is only needed for secured sites
	needsSSL := false
	for _, s := range sites {
		if s.Secured {
			needsSSL = true
			break
		}
	}
	if ssl.IsInstalled() {
		results = append(results, CheckResult{Status: "success", Message: "openssl installed"})
	} else {
		status := "warning"
		if needsSSL {
			status = "error"
		}
		results = append(results, CheckResult{Status: status, Message: "openssl not installed"})
	}

	// Privilege helper
	switch cfg.Elevation {
	case config.ElevationPkexec, config.ElevationSudo:
		if _, err := exec.LookPath(cfg.Elevation); err == nil {
			results = append(results, CheckResult{Status: "success", Message: cfg.Elevation + " available"})
		} else {
			results = append(results, CheckResult{Status: "error", Message: cfg.Elevation + " not installed"})
		}
	case config.ElevationAuto:
		_, pkErr := exec.LookPath(config.ElevationPkexec)
		_, sudoErr := exec.LookPath(config.ElevationSudo)
		if pkErr != nil && sudoErr != nil && os.Geteuid() != 0 {
			results = append(results, CheckResult{Status: "error", Message: "Neither pkexec nor sudo is installed"})
		}
	}

	return results
}

// checkPHPFPM verifies a pool socket exists for every PHP version a site uses.
func checkPHPFPM(exec executor.CommandExecutor, sites []site.Site) []CheckResult {
	results := []CheckResult{}

	needed := map[string][]string{}
	for _, s := range sites {
		if s.Type == site.TypeStatic || s.Type == site.TypeProxy {
			continue
		}
		needed[s.PHPVersion] = append(needed[s.PHPVersion], s.Name)
	}

	installed, _ := php.FPMVersions(phpRunDir)
	if len(needed) == 0 {
		if len(installed) == 0 {
			results = append(results, CheckResult{Status: "warning", Message: "PHP-FPM not detected"})
		} else {
			results = append(results, CheckResult{
				Status:  "success",
				Message: fmt.Sprintf("PHP-FPM available (%s)", strings.Join(installed, ", ")),
			})
		}
		return results
	}

	versions := make([]string, 0, len(needed))
	for v := range needed {
		versions = append(versions, v)
	}
	sort.Strings(versions)

	for _, v := range versions {
		switch {
		case contains(installed, v):
			results = append(results, CheckResult{Status: "success", Message: fmt.Sprintf("PHP-FPM %s running", v)})
		case isPHPFPMActive(exec, v):
			results = append(results, CheckResult{
				Status:  "warning",
				Message: fmt.Sprintf("PHP-FPM %s active but no socket in %s", v, phpRunDir),
			})
		default:
			results = append(results, CheckResult{
				Status:  "error",
				Message: fmt.Sprintf("PHP-FPM %s not running (used by %s)", v, strings.Join(needed[v], ", ")),
			})
		}
	}
	return results
}

func isPHPFPMActive(exec executor.CommandExecutor, version string) bool {
	out, err := exec.Execute("systemctl", "is-active", fmt.Sprintf("php%s-fpm", version))
	return err == nil && strings.TrimSpace(string(out)) == "active"
}

func checkConfiguration(drv driver.Driver, stateDir string) []CheckResult {
	results := []CheckResult{}

	// Settings file is optional, defaults apply without it
	if configPath, err := config.ConfigPath(); err == nil {
		if _, err := os.Stat(configPath); err == nil {
			results = append(results, CheckResult{
				Status:  "success",
				Message: fmt.Sprintf("Config file exists (%s)", displayPath(configPath)),
			})
		} else {
			results = append(results, CheckResult{Status: "success", Message: "Using default settings"})
		}
	}

	registryPath := registry.NewStore(stateDir).Path()
	if _, err := os.Stat(registryPath); err == nil {
		results = append(results, CheckResult{
			Status:  "success",
			Message: fmt.Sprintf("Registry exists (%s)", displayPath(registryPath)),
		})
	} else {
		results = append(results, CheckResult{Status: "warning", Message: "No sites registered yet"})
	}

	// Caddy only sees the fragments if the main file imports them
	paths := drv.Paths()
	if drv.Backend() == driver.Caddy && paths.Main != "" {
		data, err := os.ReadFile(paths.Main)
		switch {
		case err != nil:
			results = append(results, CheckResult{
				Status:  "error",
				Message: fmt.Sprintf("%s not readable: %v", paths.Main, err),
			})
		case !strings.Contains(string(data), paths.Available):
			results = append(results, CheckResult{
				Status:  "error",
				Message: fmt.Sprintf("%s does not import %s, run 'servermark sync'", paths.Main, paths.Available),
			})
		default:
			results = append(results, CheckResult{
				Status:  "success",
				Message: fmt.Sprintf("%s imports site configs", paths.Main),
			})
		}
	}

	return results
}

func checkSites(drv driver.Driver, cfg *config.Config, sites []site.Site) []SiteStatus {
	statuses := []SiteStatus{}

	installed := map[string]bool{}
	if names, err := drv.List(); err == nil {
		for _, name := range names {
			installed[name] = true
		}
	}
	entries, hostsErr := hosts.Parse(cfg.Paths.Hosts)

	for _, s := range sites {
		status := SiteStatus{Name: s.Name, Domain: s.Domain, Checks: []CheckResult{}}
		add := func(st, format string, args ...interface{}) {
			status.Checks = append(status.Checks, CheckResult{Status: st, Message: fmt.Sprintf(format, args...)})
		}

		if _, err := os.Stat(s.Path); err != nil {
			add("error", "project directory missing (%s)", s.Path)
		}

		switch {
		case s.Type == site.TypeProxy:
			add("warning", "proxy sites have no %s config", drv.Backend())
		case !installed[site.Slug(s.Name)]:
			add("error", "%s config missing, run 'servermark sync'", drv.Backend())
		}

		if hostsErr == nil && !hosts.Resolves(entries, cfg.Loopback, s.Domain) {
			add("error", "%s not in %s", s.Domain, cfg.Paths.Hosts)
		}

		if s.Type == site.TypeLaravel {
			if appURL, ok, err := envfile.Get(filepath.Join(s.Path, envfile.Name), "APP_URL"); err == nil && ok && appURL != s.URL() {
				add("warning", "APP_URL is %s, expected %s", appURL, s.URL())
			}
		}

		if s.Secured {
			info, err := ssl.Inspect(ssl.Paths(cfg.Paths.SSL, s.Domain).CertPath)
			switch {
			case err != nil:
				add("error", "certificate missing")
			case info.Expired:
				add("error", "certificate expired on %s", info.NotAfter.Format("2006-01-02"))
			}
		}

		if len(status.Checks) == 0 {
			add("success", "%s, config valid", s.URL())
		}
		statuses = append(statuses, status)
	}

	return statuses
}

func displayPath(path string) string {
	if home := os.Getenv("HOME"); home != "" {
		return strings.Replace(path, home, "~", 1)
	}
	return path
}

func displayDoctorResults(report *DoctorReport) {
	// System requirements
	output.Print("Checking system requirements...")
	for _, check := range report.SystemRequirements {
		displayCheck(check)
	}
	output.Print("")

	// Configuration
	output.Print("Checking configuration (%s)...", report.Backend)
	for _, check := range report.Configuration {
		displayCheck(check)
	}
	output.Print("")

	// Sites
	if len(report.Sites) == 0 {
		output.Print("No sites registered")
		return
	}
	output.Print("Checking sites...")
	for _, s := range report.Sites {
		for _, check := range s.Checks {
			displayCheck(CheckResult{Status: check.Status, Message: s.Name + " - " + check.Message})
		}
	}
}

func displayCheck(check CheckResult) {
	switch check.Status {
	case "success":
		output.Success("%s", check.Message)
	case "warning":
		output.Warn("%s", check.Message)
	case "error":
		output.Error("%s", check.Message)
	}
}
