// Package migrations embeds the SQLite schema applied by pkg/database.Migrator.
package migrations

import "embed"

// FS holds the versioned NNN_name.sql files
//
//go:embed *.sql
var FS embed.FS
