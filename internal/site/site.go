// Package site defines the local project model and the rules that derive
// a site's name, domain, document root and PHP-FPM socket.
package site

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Site is one local project served under <name>.<tld>.
type Site struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Path        string         `json:"path"`
	Domain      string         `json:"domain"`
	PHPVersion  string         `json:"php_version"`
	Secured     bool           `json:"secured"`
	Type        Type           `json:"site_type"`
	ProxyTarget string         `json:"proxy_target,omitempty"`
	Framework   *FrameworkInfo `json:"framework,omitempty"`
}

// FrameworkInfo is what composer.json says about the framework.
type FrameworkInfo struct {
	Name          string `json:"name"`
	Constraint    string `json:"constraint,omitempty"`
	PHPConstraint string `json:"php_constraint,omitempty"`
}

var (
	whitespace = regexp.MustCompile(`\s+`)
	dnsLabel   = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)
	phpVersion = regexp.MustCompile(`^\d+\.\d+$`)
)

// NewID returns a fresh opaque identifier.
func NewID() string {
	return uuid.NewString()
}

// Slug lowercases name and replaces whitespace runs with "-".
func Slug(name string) string {
	return strings.ToLower(whitespace.ReplaceAllString(strings.TrimSpace(name), "-"))
}

// unsafeNameChars would break a file name, a shell line or a config block.
const unsafeNameChars = "/\\'\"`$;{}#*?<>|&"

// ValidateName rejects names that cannot be written into a fragment file
// name, the privileged script or a server block. Dots and underscores are
// kept as they are.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("site name cannot be empty")
	}
	if strings.ContainsAny(trimmed, unsafeNameChars) {
		return fmt.Errorf("site name %q contains one of %s", name, unsafeNameChars)
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return fmt.Errorf("site name %q contains a control character", name)
		}
	}
	if slug := Slug(trimmed); strings.HasPrefix(slug, ".") || strings.HasPrefix(slug, "-") || strings.Contains(slug, "..") {
		return fmt.Errorf("site name %q does not form a usable domain (%q)", name, slug)
	}
	return nil
}

// ValidateTLD checks a top-level domain suffix.
func ValidateTLD(tld string) error {
	if !dnsLabel.MatchString(tld) {
		return fmt.Errorf("invalid tld %q", tld)
	}
	return nil
}

// ValidatePHPVersion accepts "major.minor" tags such as "8.3".
func ValidatePHPVersion(v string) error {
	if !phpVersion.MatchString(v) {
		return fmt.Errorf("invalid php version %q (want e.g. 8.3)", v)
	}
	return nil
}

// DomainFor derives the domain for a site name under tld.
func DomainFor(name, tld string) string {
	return Slug(name) + "." + tld
}

// NameFromPath returns the directory name used when no name is supplied.
func NameFromPath(path string) string {
	base := filepath.Base(filepath.Clean(path))
	if base == "." || base == string(filepath.Separator) {
		return "site"
	}
	return base
}

// DocumentRoot is the directory the web server serves.
func (s *Site) DocumentRoot() string {
	if s.Type.ServesPublicDir() {
		return filepath.Join(s.Path, "public")
	}
	return s.Path
}

// PHPSocket is the PHP-FPM unix socket for the site's PHP version.
func (s *Site) PHPSocket() string {
	return PHPSocket(s.PHPVersion)
}

// PHPSocket returns the FPM socket path for a PHP version.
func PHPSocket(version string) string {
	return fmt.Sprintf("/var/run/php/php%s-fpm.sock", version)
}

// Scheme returns "https" for secured sites and "http" otherwise.
func (s *Site) Scheme() string {
	if s.Secured {
		return "https"
	}
	return "http"
}

// URL is the address the site is reachable at.
func (s *Site) URL() string {
	return s.Scheme() + "://" + s.Domain
}
