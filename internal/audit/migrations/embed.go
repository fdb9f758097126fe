// Package migrations embeds the audit archive schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
