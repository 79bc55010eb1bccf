// Package main implements the margaux-migrate binary: it applies a
// versioned migrations directory to a database file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/margauxdb/margaux/internal/config"
	"github.com/margauxdb/margaux/pkg/margaux"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		configFile    string
		dbPath        string
		migrationsDir string
		logLevel      string
		showVersion   bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&dbPath, "db", "", "Path to the database file (overrides the config file)")
	flag.StringVar(&migrationsDir, "migrations", "", "Directory of versioned migration subdirectories")
	flag.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error, off")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "margaux-migrate - apply versioned migrations\n\n")
		fmt.Fprintf(os.Stderr, "Usage: margaux-migrate [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  margaux-migrate --db /data/margaux.db --migrations ./migrations\n")
		fmt.Fprintf(os.Stderr, "  margaux-migrate --config margaux.yaml\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  MARGAUX_DATABASE_PATH   Database file path\n")
		fmt.Fprintf(os.Stderr, "  MARGAUX_MIGRATIONS_DIR  Migrations directory\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("margaux-migrate version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.LoadFromFile(configFile)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		cfg = loaded
	}
	config.LoadFromEnv(cfg)
	if dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if migrationsDir != "" {
		cfg.MigrationsDir = migrationsDir
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if cfg.DatabasePath == "" || cfg.MigrationsDir == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx := context.Background()
	db, err := margaux.Open(ctx, cfg.DatabasePath, margaux.Options{
		LogLevel:    cfg.LogLevel,
		BusyTimeout: cfg.BusyTimeout.Std(),
	})
	if err != nil {
		log.Fatalf("Failed to open %s: %v", cfg.DatabasePath, err)
	}
	defer db.Close()

	applied, err := db.ApplyMigrations(ctx, cfg.MigrationsDir)
	for _, v := range applied {
		fmt.Printf("applied version %d\n", v)
	}
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	current, err := db.Version(ctx)
	if err != nil {
		log.Fatalf("Failed to read version: %v", err)
	}
	fmt.Printf("database at version %d\n", current)
}
