// Package php discovers the PHP versions available on the host.
package php

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/Grazulex/servermark/internal/executor"
	"github.com/Grazulex/servermark/internal/site"
)

const versionExpr = "echo PHP_MAJOR_VERSION . '.' . PHP_MINOR_VERSION;"

// RunDir holds the FPM sockets, one per installed version.
const RunDir = "/var/run/php"

var socketPattern = regexp.MustCompile(`^php(\d+\.\d+)-fpm\.sock$`)

// Detector reports the active PHP version.
type Detector interface {
	Active() (string, error)
}

// CLIDetector asks the php binary on PATH.
type CLIDetector struct {
	exec executor.CommandExecutor
}

// NewDetector returns a CLIDetector using exec.
func NewDetector(exec executor.CommandExecutor) *CLIDetector {
	return &CLIDetector{exec: exec}
}

// Active returns "<major>.<minor>" of the php on PATH.
func (d *CLIDetector) Active() (string, error) {
	if _, err := d.exec.LookPath("php"); err != nil {
		return "", fmt.Errorf("php not found in PATH: %w", err)
	}
	out, err := d.exec.Execute("php", "-r", versionExpr)
	if err != nil {
		return "", fmt.Errorf("php version query failed: %w", err)
	}
	version := strings.TrimSpace(string(out))
	if err := site.ValidatePHPVersion(version); err != nil {
		return "", fmt.Errorf("unexpected php output %q", version)
	}
	return version, nil
}

// Resolve returns the active version, or fallback when discovery fails.
func Resolve(d Detector, fallback string) string {
	if d == nil {
		return fallback
	}
	v, err := d.Active()
	if err != nil {
		return fallback
	}
	return v
}

// FPMVersions lists versions with an FPM socket in dir, newest first.
func FPMVersions(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	versions := []string{}
	for _, e := range entries {
		if m := socketPattern.FindStringSubmatch(e.Name()); m != nil {
			versions = append(versions, m[1])
		}
	}
	sort.Slice(versions, func(i, j int) bool {
		return newer(versions[i], versions[j])
	})
	return versions, nil
}

func newer(a, b string) bool {
	var amaj, amin, bmaj, bmin int
	fmt.Sscanf(a, "%d.%d", &amaj, &amin)
	fmt.Sscanf(b, "%d.%d", &bmaj, &bmin)
	if amaj != bmaj {
		return amaj > bmaj
	}
	return amin > bmin
}

// MockDetector is a Detector for tests.
type MockDetector struct {
	Version string
	Err     error
}

// Active returns the configured values.
func (m *MockDetector) Active() (string, error) {
	return m.Version, m.Err
}
