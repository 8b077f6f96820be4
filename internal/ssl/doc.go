// Package ssl handles the self-signed certificates servermark issues for
// secured sites.
//
// Certificates are never created from Go. Ensure appends an openssl
// invocation to the reconciliation script, guarded so an existing pair is
// kept:
//
//	if [ ! -f '/etc/servermark/ssl/blog.test.crt' ] || [ ! -f '/etc/servermark/ssl/blog.test.key' ]; then
//	    openssl req -x509 -nodes -days 365 -newkey rsa:2048 ...
//	fi
//
// Inspect reads an issued certificate back for the doctor command.
package ssl
