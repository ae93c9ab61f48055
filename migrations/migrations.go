// Package migrations embeds the SQL schema migrations shipped inside
// the binaries, so deployments never depend on a migrations directory
// being present on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
