// Package hosts emits the script lines that keep the system hosts table in
// line with the registry, and reads the table back for diagnostics.
//
// Adds are guarded by a grep for an existing "<ip> ... <host>" line, so
// they are idempotent and tolerate hand edits. Removes only delete lines
// shaped exactly like the ones servermark appends ("<ip> <host>").
package hosts

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/Grazulex/servermark/internal/shell"
)

// presentPattern matches a hosts line mapping ip to host, with other
// aliases allowed on the same line.
func presentPattern(ip, host string) string {
	return fmt.Sprintf(`^[[:space:]]*%s[[:space:]]+(.*[[:space:]])?%s([[:space:]]|$)`,
		regexp.QuoteMeta(ip), host)
}

// Add appends "ip host" to file unless it is already mapped.
func Add(sc *shell.Script, file, ip, host string) {
	sc.Linef("grep -qE %s %s || echo %s >> %s",
		shell.Quote(presentPattern(ip, regexp.QuoteMeta(host))), shell.Quote(file),
		shell.Quote(ip+" "+host), shell.Quote(file))
}

// Remove deletes lines of the exact form "ip host".
func Remove(sc *shell.Script, file, ip, host string) {
	expr := fmt.Sprintf(`/^[[:space:]]*%s[[:space:]]+%s[[:space:]]*$/d`,
		regexp.QuoteMeta(ip), regexp.QuoteMeta(host))
	sc.Linef("sed -i -E %s %s", shell.Quote(expr), shell.Quote(file))
}

// AddAll maps every host to ip, one guarded append per host so each
// pattern is escaped on its own.
func AddAll(sc *shell.Script, file, ip string, hostnames []string) {
	for _, host := range hostnames {
		Add(sc, file, ip, host)
	}
}

// Entry is one mapping read from a hosts file.
type Entry struct {
	IP    string
	Names []string
}

// Parse reads a hosts file, skipping comments and blank lines.
func Parse(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		entries = append(entries, Entry{IP: fields[0], Names: fields[1:]})
	}
	return entries, scanner.Err()
}

// Resolves reports whether entries map host to ip.
func Resolves(entries []Entry, ip, host string) bool {
	for _, e := range entries {
		if e.IP != ip {
			continue
		}
		for _, n := range e.Names {
			if strings.EqualFold(n, host) {
				return true
			}
		}
	}
	return false
}
