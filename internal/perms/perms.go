// Package perms normalizes the writable directories of a Laravel project so
// the PHP-FPM pool and the developer can both write to them.
//
// Two halves: Fixer creates the directories and sets modes as the invoking
// user, which needs no privileges. Ownership can only be handed to the web
// group by root, so Script emits those lines into the privileged script.
package perms

import (
	"errors"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"

	"github.com/Grazulex/servermark/internal/shell"
)

// Modes applied under the writable roots.
const (
	DirMode  os.FileMode = 0775
	FileMode os.FileMode = 0664
)

// WritableRoots are the trees a Laravel app writes to at runtime.
var WritableRoots = []string{"storage", "bootstrap/cache"}

// RequiredDirs must exist for a fresh checkout to boot.
var RequiredDirs = []string{
	"storage/app/public",
	"storage/framework/cache",
	"storage/framework/sessions",
	"storage/framework/views",
	"storage/logs",
	"bootstrap/cache",
}

// Fixer creates the writable directories and applies modes.
type Fixer struct{}

// New returns a Fixer.
func New() *Fixer {
	return &Fixer{}
}

// Fix creates RequiredDirs under root and normalizes modes in WritableRoots.
// It keeps going after individual failures and returns them joined.
func (f *Fixer) Fix(root string) error {
	var errs []error
	for _, dir := range RequiredDirs {
		if err := os.MkdirAll(filepath.Join(root, dir), DirMode); err != nil {
			errs = append(errs, err)
		}
	}

	for _, rel := range WritableRoots {
		err := filepath.WalkDir(filepath.Join(root, rel), func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			if d.Type()&fs.ModeSymlink != 0 {
				return nil
			}
			mode := FileMode
			if d.IsDir() {
				mode = DirMode
			}
			if err := os.Chmod(path, mode); err != nil {
				errs = append(errs, err)
			}
			return nil
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Script hands the writable roots of the project at root to owner:group.
// An empty owner keeps the current owner; an empty group emits nothing.
// Missing roots are skipped so the script does not stop on them.
func Script(sc *shell.Script, root, owner, group string) {
	if group == "" {
		return
	}
	sc.Comment("writable directories of " + root)
	for _, rel := range WritableRoots {
		dir := shell.Quote(filepath.Join(root, rel))
		sc.Linef("if [ -d %s ]; then", dir)
		sc.Linef("    chown -R %s %s", shell.Quote(owner+":"+group), dir)
		sc.Linef("    chmod -R %o %s", uint32(DirMode), dir)
		sc.Line("fi")
	}
}

// Owner is the account that invoked servermark, looking through sudo.
func Owner() string {
	if name := os.Getenv("SUDO_USER"); name != "" {
		return name
	}
	u, err := user.Current()
	if err != nil {
		return ""
	}
	return u.Username
}
