package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/parkfinder-backend/pkg/config"
	"github.com/angelmondragon/parkfinder-backend/pkg/db"
	"github.com/angelmondragon/parkfinder-backend/pkg/logger"
	"github.com/angelmondragon/parkfinder-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// create and validate only touch the filesystem.
	switch *cmd {
	case "create":
		if *name == "" {
			exit("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			exit("create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			exit("migration validation failed:\n%v", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": *dir,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		logg.Error(ctx, "failed to extract sql.DB", err)
		os.Exit(1)
	}

	switch *cmd {
	case "up":
		applied, err := migrate.Up(ctx, sqlDB, *dir)
		printApplied(applied)
		if err != nil {
			exit("%v", err)
		}
	case "down":
		applied, err := migrate.Down(ctx, sqlDB, *dir)
		if err != nil {
			exit("%v", err)
		}
		if applied != nil {
			printApplied([]migrate.Applied{*applied})
		}
	case "version":
		if *version == "" {
			exit("missing -version for version command")
		}
		applied, err := migrate.ToVersion(ctx, sqlDB, *dir, *version)
		printApplied(applied)
		if err != nil {
			exit("%v", err)
		}
	case "status":
		statuses, err := migrate.Statuses(ctx, sqlDB, *dir)
		if err != nil {
			exit("%v", err)
		}
		printStatuses(statuses)
	default:
		exit("unknown -cmd value: %s", *cmd)
	}
}

func printApplied(applied []migrate.Applied) {
	if len(applied) == 0 {
		fmt.Println("no migrations to run")
		return
	}
	for _, a := range applied {
		fmt.Printf("%-4s %s (%s)\n", a.Direction, a.Name, a.Duration.Round(time.Millisecond))
	}
}

func printStatuses(statuses []migrate.Status) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "APPLIED AT\tMIGRATION")
	for _, s := range statuses {
		at := "pending"
		if s.Applied {
			at = s.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\n", at, s.Name)
	}
	_ = w.Flush()
}

func exit(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
