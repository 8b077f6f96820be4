// Package envfile edits a project's .env file in place.
//
// Only the lines being changed are touched; comments, ordering and the
// trailing newline are preserved. A missing file is not an error.
package envfile

import (
	"os"
	"strings"
)

// Name is the file name inside a project directory.
const Name = ".env"

const appURLKey = "APP_URL="

// SetAppURL sets APP_URL to url. An existing entry is replaced; otherwise the
// entry goes right after APP_NAME, or first when there is no APP_NAME.
func SetAppURL(path, url string) error {
	entry := appURLKey + url
	return rewrite(path, func(lines []string) []string {
		replaced := false
		for i, line := range lines {
			if strings.HasPrefix(line, appURLKey) {
				lines[i] = entry
				replaced = true
			}
		}
		if replaced {
			return lines
		}
		for i, line := range lines {
			if strings.HasPrefix(line, "APP_NAME=") {
				return insert(lines, i+1, entry)
			}
		}
		return insert(lines, 0, entry)
	})
}

// FixContainerHosts points *_HOST entries whose value is one of hosts at
// loopback, so a project configured for containers works against services
// published on the host. It returns how many entries changed.
func FixContainerHosts(path string, hosts []string, loopback string) (int, error) {
	known := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		known[h] = true
	}

	changed := 0
	err := rewrite(path, func(lines []string) []string {
		for i, line := range lines {
			key, value, ok := strings.Cut(line, "=")
			if !ok || !strings.HasSuffix(key, "_HOST") || strings.HasPrefix(key, "#") {
				continue
			}
			if known[strings.Trim(strings.TrimSpace(value), `"'`)] {
				lines[i] = key + "=" + loopback
				changed++
			}
		}
		return lines
	})
	return changed, err
}

// Get returns the value of key, unquoted.
func Get(path, key string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		k, v, ok := strings.Cut(line, "=")
		if ok && k == key {
			return strings.Trim(strings.TrimSpace(v), `"'`), true, nil
		}
	}
	return "", false, nil
}

func rewrite(path string, edit func([]string) []string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	content := string(data)
	trailing := strings.HasSuffix(content, "\n")
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	if content == "" {
		lines = nil
	}

	out := strings.Join(edit(lines), "\n")
	if trailing || content == "" {
		out += "\n"
	}
	if out == content {
		return nil
	}
	return os.WriteFile(path, []byte(out), info.Mode().Perm())
}

func insert(lines []string, at int, line string) []string {
	lines = append(lines, "")
	copy(lines[at+1:], lines[at:])
	lines[at] = line
	return lines
}
