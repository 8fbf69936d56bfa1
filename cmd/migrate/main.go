// Command migrate runs the embedded SQL migrations.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"forum/internal/bootstrap"
	"forum/internal/config"
	"forum/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|down|status|version>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	bootstrap.InitLogging(cfg)

	db, err := database.Open(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		if err := database.MigrateUp(ctx, sqlDB, cfg.DBDriver); err != nil {
			return fmt.Errorf("migrate up failed: %w", err)
		}
		log.Println("sql migrations applied")
	case "down":
		if err := database.MigrateDown(ctx, sqlDB, cfg.DBDriver); err != nil {
			return fmt.Errorf("migrate down failed: %w", err)
		}
		log.Println("rolled back latest migration")
	case "status":
		if err := database.MigrateStatus(ctx, sqlDB, cfg.DBDriver); err != nil {
			return fmt.Errorf("migrate status failed: %w", err)
		}
	case "version":
		v, err := database.MigrationVersion(ctx, sqlDB, cfg.DBDriver)
		if err != nil {
			return fmt.Errorf("read version failed: %w", err)
		}
		log.Printf("schema version %d", v)
	default:
		return usage()
	}
	return nil
}
