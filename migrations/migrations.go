// Package migrations embeds the SQL migration files for the application schema and the
// durable execution schema, discovered by bun/migrate as
// NNNNNNNNNNNNNN_name.up.sql / .down.sql pairs.
package migrations

import "embed"

// FS is the embedded migration directory, passed to storage.NewMigrator.
//
//go:embed *.sql
var FS embed.FS
