package hosts

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Grazulex/servermark/internal/shell"
)

func TestAdd(t *testing.T) {
	sc := &shell.Script{}
	Add(sc, "/etc/hosts", "127.0.0.1", "blog.test")

	want := `grep -qE '^[[:space:]]*127\.0\.0\.1[[:space:]]+(.*[[:space:]])?blog\.test([[:space:]]|$)' '/etc/hosts' || echo '127.0.0.1 blog.test' >> '/etc/hosts'` + "\n"
	if sc.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", sc.String(), want)
	}
}

func TestRemove(t *testing.T) {
	sc := &shell.Script{}
	Remove(sc, "/etc/hosts", "127.0.0.1", "blog.test")

	want := `sed -i -E '/^[[:space:]]*127\.0\.0\.1[[:space:]]+blog\.test[[:space:]]*$/d' '/etc/hosts'` + "\n"
	if sc.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", sc.String(), want)
	}
}

func TestAddAll(t *testing.T) {
	sc := &shell.Script{}
	AddAll(sc, "/etc/hosts", "127.0.0.1", []string{"mysql", "host.docker.internal"})

	lines := strings.Split(strings.TrimSuffix(sc.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected one line per host, got:\n%s", sc.String())
	}
	if !strings.Contains(lines[1], `(.*[[:space:]])?host\.docker\.internal([[:space:]]|$)`) {
		t.Errorf("dots must be escaped in the guard:\n%s", lines[1])
	}
	if !strings.HasSuffix(lines[1], `echo '127.0.0.1 host.docker.internal' >> '/etc/hosts'`) {
		t.Errorf("missing append:\n%s", lines[1])
	}

	empty := &shell.Script{}
	AddAll(empty, "/etc/hosts", "127.0.0.1", nil)
	if empty.String() != "" {
		t.Errorf("no hostnames should emit nothing, got %q", empty.String())
	}
}

// TestSnippetsInBash runs the generated lines against a scratch hosts file.
func TestSnippetsInBash(t *testing.T) {
	bash, err := exec.LookPath("bash")
	if err != nil {
		t.Skip("bash not available")
	}
	if _, err := exec.LookPath("sed"); err != nil {
		t.Skip("sed not available")
	}

	file := filepath.Join(t.TempDir(), "hosts")
	initial := "127.0.0.1 localhost\n127.0.0.1 myblog.test\n127.0.0.1 hostXdockerXinternal\n"
	if err := os.WriteFile(file, []byte(initial), 0644); err != nil {
		t.Fatal(err)
	}

	sc := shell.New()
	for i := 0; i < 2; i++ {
		Add(sc, file, "127.0.0.1", "blog.test")
		AddAll(sc, file, "127.0.0.1", []string{"mysql", "redis", "host.docker.internal"})
	}
	if out, err := exec.Command(bash, "-c", sc.String()).CombinedOutput(); err != nil {
		t.Fatalf("script failed: %v\n%s", err, out)
	}

	entries, err := Parse(file)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 7 {
		t.Fatalf("expected 7 entries after idempotent adds, got %d: %+v", len(entries), entries)
	}
	for _, h := range []string{"blog.test", "myblog.test", "mysql", "redis", "host.docker.internal"} {
		if !Resolves(entries, "127.0.0.1", h) {
			t.Errorf("%s should resolve", h)
		}
	}

	rm := shell.New()
	Remove(rm, file, "127.0.0.1", "blog.test")
	if out, err := exec.Command(bash, "-c", rm.String()).CombinedOutput(); err != nil {
		t.Fatalf("remove failed: %v\n%s", err, out)
	}
	entries, err = Parse(file)
	if err != nil {
		t.Fatal(err)
	}
	if Resolves(entries, "127.0.0.1", "blog.test") {
		t.Error("blog.test should be gone")
	}
	if !Resolves(entries, "127.0.0.1", "myblog.test") {
		t.Error("myblog.test must survive removal of blog.test")
	}
}

func TestParse(t *testing.T) {
	file := filepath.Join(t.TempDir(), "hosts")
	content := "# comment\n\n127.0.0.1 localhost loopback\n::1 localhost # v6\n10.0.0.5\n"
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	entries, err := Parse(file)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", entries)
	}
	if !Resolves(entries, "127.0.0.1", "LOOPBACK") {
		t.Error("lookup should be case-insensitive")
	}
	if Resolves(entries, "127.0.0.1", "v6") {
		t.Error("comment text must not count as a name")
	}

	if _, err := Parse(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}
