// Package migrations embeds the operation-history schema into the binary.
package migrations

import (
	"embed"

	"github.com/nerrad567/pairgen/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

func init() {
	database.Migrations = files
	database.MigrationsDir = "."
}
