// Package migrations embeds the schema migrations applied by
// internal/storage at startup, so the server binary carries its own
// schema and never depends on an external migration step.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
