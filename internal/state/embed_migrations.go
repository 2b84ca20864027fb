package state

import "embed"

// MigrationFS embeds SQL migration files from internal/state/migrations.
// Used by the migrate runner (cmd/lynqio migrate and Open) to apply migrations.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
