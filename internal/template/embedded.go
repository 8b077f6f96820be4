package template

import (
	"embed"
	"fmt"

	"github.com/Grazulex/servermark/internal/driver"
)

//go:embed caddy/*.tmpl
var caddyTemplates embed.FS

//go:embed nginx/*.tmpl
var nginxTemplates embed.FS

// getTemplateFS returns the embed.FS for the given backend
func getTemplateFS(b driver.Backend) (embed.FS, error) {
	switch b {
	case driver.Caddy:
		return caddyTemplates, nil
	case driver.Nginx:
		return nginxTemplates, nil
	default:
		return embed.FS{}, fmt.Errorf("unknown web server: %s", b)
	}
}
