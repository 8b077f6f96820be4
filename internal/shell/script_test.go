package shell

import (
	"strings"
	"testing"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", `'plain'`},
		{"/home/dev/my site", `'/home/dev/my site'`},
		{"it's", `'it'\''s'`},
		{"$HOME", `'$HOME'`},
		{"", `''`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Quote(tt.in); got != tt.want {
				t.Errorf("Quote(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestScript(t *testing.T) {
	s := New()
	s.Comment("dirs")
	s.Line("mkdir -p /etc/caddy/sites.d")
	s.Linef("chmod %o %s", 0755, Quote("/etc/caddy"))

	want := "#!/bin/bash\nset -e\n\n# dirs\nmkdir -p /etc/caddy/sites.d\nchmod 755 '/etc/caddy'\n"
	if s.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", s.String(), want)
	}
}

func TestHeredoc(t *testing.T) {
	s := &Script{}
	s.Heredoc("/etc/nginx/sites-available/servermark-blog", "try_files $uri $uri/ /index.php?$query_string;")

	want := "cat > '/etc/nginx/sites-available/servermark-blog' << 'SERVERMARK_EOF'\n" +
		"try_files $uri $uri/ /index.php?$query_string;\n" +
		"SERVERMARK_EOF\n"
	if s.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", s.String(), want)
	}
}

func TestHeredoc_DelimiterCollision(t *testing.T) {
	s := &Script{}
	s.Heredoc("/tmp/x", "a\nSERVERMARK_EOF\nb\n")

	if !strings.Contains(s.String(), "<< 'SERVERMARK_EOF_'\n") {
		t.Errorf("expected a longer delimiter, got:\n%s", s.String())
	}
	if !strings.HasSuffix(s.String(), "\nSERVERMARK_EOF_\n") {
		t.Errorf("heredoc not terminated by the longer delimiter:\n%s", s.String())
	}
}
