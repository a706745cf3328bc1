// Package sql embeds the database schema migrations.
package sql

import "embed"

//go:embed migrations
var Migrations embed.FS
