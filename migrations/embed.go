// Package migrations embeds SQL migration files.
package migrations

import "embed"

// FS contains the ordered schema migrations. Files apply lexically.
//
//go:embed *.sql
var FS embed.FS
