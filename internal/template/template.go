package template

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Grazulex/servermark/internal/driver"
	"github.com/Grazulex/servermark/internal/errors"
	"github.com/Grazulex/servermark/internal/site"
	"github.com/Grazulex/servermark/internal/ssl"
)

// TemplateData contains data for rendering templates
type TemplateData struct {
	Domain  string
	Address string // caddy site address including scheme
	Root    string
	Socket  string
	Secured bool
	SSLCert string
	SSLKey  string
}

// Generator renders fragments. SSLDir is where nginx expects cert pairs.
type Generator struct {
	SSLDir string
}

// New returns a Generator using sslDir for certificate paths.
func New(sslDir string) *Generator {
	return &Generator{SSLDir: sslDir}
}

// Render renders the fragment for s on backend b.
func (g *Generator) Render(b driver.Backend, s *site.Site) (string, error) {
	if s.Type == site.TypeProxy {
		return "", errors.WithSubject(
			errors.Unsupported("proxy sites have no generated "+string(b)+" config"), s.Name)
	}

	fs, err := getTemplateFS(b)
	if err != nil {
		return "", err
	}

	tmplPath := fmt.Sprintf("%s/site.tmpl", b)
	content, err := fs.ReadFile(tmplPath)
	if err != nil {
		return "", fmt.Errorf("template not found: %s", tmplPath)
	}

	funcs := template.FuncMap{"quote": quoter(b)}
	tmpl, err := template.New(string(b)).Option("missingkey=error").Funcs(funcs).Parse(string(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, g.data(s)); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}

	return buf.String(), nil
}

func (g *Generator) data(s *site.Site) TemplateData {
	cert := ssl.Paths(g.SSLDir, s.Domain)
	return TemplateData{
		Domain:  s.Domain,
		Address: s.URL(),
		Root:    s.DocumentRoot(),
		Socket:  s.PHPSocket(),
		Secured: s.Secured,
		SSLCert: cert.CertPath,
		SSLKey:  cert.KeyPath,
	}
}

// quoter wraps a path in double quotes so spaces survive. Caddy only
// treats \" as an escape inside quotes; nginx also unescapes backslashes.
func quoter(b driver.Backend) func(string) string {
	escape := strings.NewReplacer(`"`, `\"`)
	if b == driver.Nginx {
		escape = strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	}
	return func(v string) string {
		return `"` + escape.Replace(v) + `"`
	}
}
