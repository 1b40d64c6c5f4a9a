// Package migrations embeds the SQL schema for the SQLite vector index.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
