package site

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Detect inspects dir for framework markers.
func Detect(dir string) Type {
	switch {
	case exists(dir, "artisan") && exists(dir, "composer.json"):
		return TypeLaravel
	case exists(dir, "bin", "console") && exists(dir, "symfony.lock"):
		return TypeSymfony
	case exists(dir, "wp-config.php") || exists(dir, "wp-content"):
		return TypeWordPress
	default:
		return TypeStatic
	}
}

type composerManifest struct {
	Require map[string]string `json:"require"`
}

// frameworkPackages maps a site type to the composer package that pins its version.
var frameworkPackages = map[Type]string{
	TypeLaravel: "laravel/framework",
	TypeSymfony: "symfony/framework-bundle",
}

// DetectFramework reads composer.json for framework and PHP constraints.
// It returns nil when t has no tracked framework or composer.json is unreadable.
func DetectFramework(dir string, t Type) *FrameworkInfo {
	pkg, ok := frameworkPackages[t]
	if !ok {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(dir, "composer.json"))
	if err != nil {
		return nil
	}
	var m composerManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return &FrameworkInfo{
		Name:          pkg,
		Constraint:    m.Require[pkg],
		PHPConstraint: m.Require["php"],
	}
}

func exists(parts ...string) bool {
	_, err := os.Stat(filepath.Join(parts...))
	return err == nil
}
