// Package migrations holds the numbered schema scripts for the queue database.
package migrations

import "embed"

// FS holds the schema scripts. Only the .up.sql files are applied.
//
//go:embed *.sql
var FS embed.FS
