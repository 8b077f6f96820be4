// Package template renders one site's configuration fragment for a backend.
//
// Rendering is pure: the same site and backend always produce the same
// bytes, which is what lets a full resync be compared against the files
// already on disk and keeps repeated syncs idempotent.
//
// Templates are embedded per backend:
//
//	caddy/site.tmpl
//	nginx/site.tmpl
//
// Proxy sites are part of the model but have no fragment generator;
// Render returns an UNSUPPORTED error for them instead of skipping the site.
package template
