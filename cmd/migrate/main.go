package main

import (
	"log"

	"github.com/alexflint/go-arg"
	"github.com/trogers1052/options-premium-tracker/internal/config"
	"github.com/trogers1052/options-premium-tracker/internal/database"
)

type args struct {
	DatabaseURL string `arg:"--database-url,env:DATABASE_URL" help:"PostgreSQL connection string; defaults to the DB_* settings"`
	Path        string `arg:"--path,env:DB_MIGRATIONS_PATH" default:"db/migrations" help:"directory holding the migration files"`
}

func (args) Description() string {
	return "applies the database migrations of the premium tracker"
}

func main() {
	cfg := config.Load()

	var a args
	arg.MustParse(&a)

	connStr := a.DatabaseURL
	if connStr == "" {
		connStr = cfg.Database.ConnectionString()
	}

	db, err := database.New(connStr)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(a.Path); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Printf("Migrations applied from %s", a.Path)
}
