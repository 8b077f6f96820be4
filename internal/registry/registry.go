// Package registry persists the site list and the active backend selection.
//
// Both documents are JSON files in the servermark config directory:
//
//	sites.json      {"sites": [...], "tld": "test", "sites_path": "/home/dev/Code"}
//	webserver.json  {"active": "caddy"}
//
// Writes go through a temp file in the same directory followed by a rename,
// so a crash never leaves a truncated document behind. Neither store locks:
// callers serialize access (the reconcile.Service holds one mutex).
package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/Grazulex/servermark/internal/errors"
	"github.com/Grazulex/servermark/internal/site"
)

const (
	sitesFile   = "sites.json"
	backendFile = "webserver.json"

	// DefaultTLD is the suffix used when no registry exists yet.
	DefaultTLD = "test"
)

// Document is the persisted site registry.
type Document struct {
	Sites     []site.Site `json:"sites"`
	TLD       string      `json:"tld"`
	SitesPath string      `json:"sites_path"`
}

// NewDocument returns an empty registry with default settings.
func NewDocument() *Document {
	sitesPath := "/home"
	if home, err := os.UserHomeDir(); err == nil {
		sitesPath = filepath.Join(home, "Code")
	}
	return &Document{
		Sites:     []site.Site{},
		TLD:       DefaultTLD,
		SitesPath: sitesPath,
	}
}

// Find returns the site with id, or nil.
func (d *Document) Find(id string) *site.Site {
	for i := range d.Sites {
		if d.Sites[i].ID == id {
			return &d.Sites[i]
		}
	}
	return nil
}

// FindByPath returns the site registered for path, or nil.
func (d *Document) FindByPath(path string) *site.Site {
	for i := range d.Sites {
		if d.Sites[i].Path == path {
			return &d.Sites[i]
		}
	}
	return nil
}

// FindByName compares names case-insensitively.
func (d *Document) FindByName(name string) *site.Site {
	for i := range d.Sites {
		if strings.EqualFold(d.Sites[i].Name, name) {
			return &d.Sites[i]
		}
	}
	return nil
}

// FindByDomain returns the site serving domain, or nil.
func (d *Document) FindByDomain(domain string) *site.Site {
	for i := range d.Sites {
		if strings.EqualFold(d.Sites[i].Domain, domain) {
			return &d.Sites[i]
		}
	}
	return nil
}

// Remove deletes the site with id and returns it.
func (d *Document) Remove(id string) (site.Site, bool) {
	for i := range d.Sites {
		if d.Sites[i].ID == id {
			removed := d.Sites[i]
			d.Sites = append(d.Sites[:i], d.Sites[i+1:]...)
			return removed, true
		}
	}
	return site.Site{}, false
}

// Snapshot returns a copy of the site list that callers may not mutate
// through to the document.
func (d *Document) Snapshot() []site.Site {
	out := make([]site.Site, len(d.Sites))
	copy(out, d.Sites)
	return out
}

// Store reads and writes sites.json.
type Store struct {
	path string
}

// NewStore creates a store for the sites.json inside dir.
func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, sitesFile)}
}

// Path returns the document location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the registry, returning defaults when the file does not exist.
func (s *Store) Load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return NewDocument(), nil
	}
	if err != nil {
		return nil, errors.Persistence("failed to read site registry", err)
	}

	doc := NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, errors.Persistence("failed to parse "+s.path, err)
	}
	if doc.Sites == nil {
		doc.Sites = []site.Site{}
	}
	if doc.TLD == "" {
		doc.TLD = DefaultTLD
	}
	return doc, nil
}

// Save writes the registry atomically.
func (s *Store) Save(doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Persistence("failed to encode site registry", err)
	}
	if err := writeAtomic(s.path, append(data, '\n')); err != nil {
		return errors.Persistence("failed to write site registry", err)
	}
	return nil
}

// writeAtomic replaces path with data via a temp file and rename.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
