// Command todo-migrate creates the todos table. The application itself
// assumes the table exists; run this once against a fresh database.
package main

import (
	"embed"
	"log/slog"
	"os"

	"github.com/ghuser/todolist/pkg/config"
	"github.com/ghuser/todolist/pkg/migrator"
)

//go:embed *.sql
var MigrationsFS embed.FS

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := migrator.RunMigrations(cfg.DatabaseURL, MigrationsFS); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("migrations applied")
}
