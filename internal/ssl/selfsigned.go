package ssl

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Grazulex/servermark/internal/executor"
	"github.com/Grazulex/servermark/internal/shell"
)

// Validity and key size of issued certificates.
const (
	ValidDays = 365
	KeyBits   = 2048
)

// Cert is the certificate/key pair location for one domain.
type Cert struct {
	Domain   string `json:"domain"`
	CertPath string `json:"cert_path"`
	KeyPath  string `json:"key_path"`
}

// Paths returns <dir>/<domain>.crt and <dir>/<domain>.key.
func Paths(dir, domain string) Cert {
	return Cert{
		Domain:   domain,
		CertPath: filepath.Join(dir, domain+".crt"),
		KeyPath:  filepath.Join(dir, domain+".key"),
	}
}

// Ensure appends a guarded openssl call that creates the pair only when missing.
func Ensure(sc *shell.Script, dir, domain string) {
	c := Paths(dir, domain)
	sc.Linef("if [ ! -f %s ] || [ ! -f %s ]; then", shell.Quote(c.CertPath), shell.Quote(c.KeyPath))
	sc.Linef("    openssl req -x509 -nodes -days %d -newkey rsa:%d -keyout %s -out %s -subj %s",
		ValidDays, KeyBits, shell.Quote(c.KeyPath), shell.Quote(c.CertPath), shell.Quote("/CN="+domain))
	sc.Linef("    chmod 600 %s", shell.Quote(c.KeyPath))
	sc.Line("fi")
}

// Purge appends removal of the pair.
func Purge(sc *shell.Script, dir, domain string) {
	c := Paths(dir, domain)
	sc.Linef("rm -f %s %s", shell.Quote(c.CertPath), shell.Quote(c.KeyPath))
}

// Info describes an issued certificate.
type Info struct {
	Subject  string    `json:"subject"`
	NotAfter time.Time `json:"not_after"`
	Expired  bool      `json:"expired"`
}

// now is replaced in tests.
var now = time.Now

// Inspect parses the PEM certificate at path.
func Inspect(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("%s: no PEM certificate found", path)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Info{
		Subject:  cert.Subject.CommonName,
		NotAfter: cert.NotAfter,
		Expired:  now().After(cert.NotAfter),
	}, nil
}

// cmdExecutor is the command executor (can be replaced for testing)
var cmdExecutor executor.CommandExecutor = executor.NewSystemExecutor()

// SetExecutor allows tests to inject a mock executor
func SetExecutor(exec executor.CommandExecutor) {
	cmdExecutor = exec
}

// ResetExecutor resets the executor to the default system executor
func ResetExecutor() {
	cmdExecutor = executor.NewSystemExecutor()
}

// IsInstalled checks if openssl is available.
func IsInstalled() bool {
	_, err := cmdExecutor.LookPath("openssl")
	return err == nil
}
