package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"

	"github.com/SpaceshipxDev/super-tribble/internal/config"
	"github.com/SpaceshipxDev/super-tribble/internal/repository/postgres"
	"github.com/SpaceshipxDev/super-tribble/internal/repository/sqlite"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx := context.Background()

	if cfg.Database.Driver == "postgres" {
		fmt.Printf("Migrating postgres database at %s:%d...\n", cfg.Database.Host, cfg.Database.Port)
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			panic(fmt.Sprintf("Failed to connect to database: %v", err))
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			panic(fmt.Sprintf("Migration failed: %v", err))
		}
		fmt.Println("Migrations applied")
		return
	}

	fmt.Printf("Migrating sqlite database at %s...\n", cfg.Database.Path)
	db, err := sqlite.NewDB(ctx, cfg.Database)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		panic(fmt.Sprintf("Migration failed: %v", err))
	}
	fmt.Println("Migrations applied")
}
