// Package main implements the margaux inspection binary: it opens a
// database and prints collections, groups, element listings, single-element
// dumps, and the handle's operation counters.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/margauxdb/margaux/internal/config"
	"github.com/margauxdb/margaux/pkg/margaux"
	"github.com/margauxdb/margaux/pkg/types"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		configFile  string
		dbPath      string
		logLevel    string
		showVersion bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&dbPath, "db", "", "Path to the database file (overrides the config file)")
	flag.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error, off")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Margaux - structured data modelling over SQLite\n\n")
		fmt.Fprintf(os.Stderr, "Usage: margaux [options] <command> [args]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  collections                 List collections\n")
		fmt.Fprintf(os.Stderr, "  groups <collection>         List vector, set and time-series groups\n")
		fmt.Fprintf(os.Stderr, "  elements <collection>       List element ids and labels\n")
		fmt.Fprintf(os.Stderr, "  dump <collection> <label>   Print one element's attributes and groups\n")
		fmt.Fprintf(os.Stderr, "  stats                       Print the handle's operation counters\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  margaux --db /data/margaux.db collections\n")
		fmt.Fprintf(os.Stderr, "  margaux --config margaux.yaml dump Plant P1\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  MARGAUX_DATABASE_PATH   Database file path\n")
		fmt.Fprintf(os.Stderr, "  MARGAUX_LOG_LEVEL       Log level\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("margaux version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(configFile, dbPath, logLevel)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	db, err := margaux.Open(ctx, cfg.DatabasePath, margaux.Options{
		ReadOnly:    true,
		LogLevel:    cfg.LogLevel,
		BusyTimeout: cfg.BusyTimeout.Std(),
	})
	if err != nil {
		log.Fatalf("Failed to open %s: %v", cfg.DatabasePath, err)
	}
	defer db.Close()

	if err := run(ctx, db, args); err != nil {
		log.Fatalf("%v", err)
	}
}

func loadConfig(configFile, dbPath, logLevel string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.LoadFromFile(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	config.LoadFromEnv(cfg)
	if dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if cfg.DatabasePath == "" {
		return nil, fmt.Errorf("no database path: pass --db, --config, or MARGAUX_DATABASE_PATH")
	}
	return cfg, nil
}

func run(ctx context.Context, db *margaux.Database, args []string) error {
	switch args[0] {
	case "collections":
		for _, c := range db.Collections() {
			fmt.Println(c)
		}
		return nil
	case "groups":
		if len(args) != 2 {
			return fmt.Errorf("usage: groups <collection>")
		}
		return printGroups(db, args[1])
	case "elements":
		if len(args) != 2 {
			return fmt.Errorf("usage: elements <collection>")
		}
		return printElements(ctx, db, args[1])
	case "dump":
		if len(args) != 3 {
			return fmt.Errorf("usage: dump <collection> <label>")
		}
		return dumpElement(ctx, db, args[1], args[2])
	case "stats":
		printStats(db)
		return nil
	}
	return fmt.Errorf("unknown command %q", args[0])
}

func printGroups(db *margaux.Database, collection string) error {
	for _, g := range db.VectorGroups(collection) {
		fmt.Printf("vector      %s\n", g)
	}
	for _, g := range db.SetGroups(collection) {
		fmt.Printf("set         %s\n", g)
	}
	for _, g := range db.TimeSeriesGroups(collection) {
		fmt.Printf("time-series %s\n", g)
	}
	return nil
}

func printElements(ctx context.Context, db *margaux.Database, collection string) error {
	ids, err := db.ElementIDs(ctx, collection)
	if err != nil {
		return err
	}
	labels, err := db.ElementLabels(ctx, collection)
	if err != nil {
		return err
	}
	for i, id := range ids {
		label := ""
		if i < len(labels) {
			label = labels[i]
		}
		fmt.Printf("%d\t%s\n", id, label)
	}
	return nil
}

func dumpElement(ctx context.Context, db *margaux.Database, collection, label string) error {
	h := types.ByLabel(label)

	scalars, err := db.ReadElementScalarAttributes(ctx, collection, h)
	if err != nil {
		return err
	}
	for _, nv := range scalars {
		fmt.Printf("%s = %s\n", nv.Name, nv.Value)
	}

	for _, g := range db.VectorGroups(collection) {
		columns, err := db.ReadElementVectorGroup(ctx, collection, h, g)
		if err != nil {
			return err
		}
		for _, col := range columns {
			fmt.Printf("vector %s.%s = %s\n", g, col.Name, formatValues(col.Values))
		}
	}

	for _, g := range db.SetGroups(collection) {
		rows, err := db.ReadElementSetGroup(ctx, collection, h, g)
		if err != nil {
			return err
		}
		for _, row := range rows {
			fmt.Printf("set %s = %s\n", g, formatRow(row))
		}
	}

	for _, g := range db.TimeSeriesGroups(collection) {
		rows, err := db.ReadElementTimeSeriesGroup(ctx, collection, h, g, nil)
		if err != nil {
			return err
		}
		fmt.Printf("time-series %s: %d rows\n", g, len(rows))
	}
	return nil
}

func formatValues(vs []types.Value) string {
	out := "["
	for i, v := range vs {
		if i > 0 {
			out += ", "
		}
		out += v.String()
	}
	return out + "]"
}

func formatRow(row []types.NamedValue) string {
	out := "{"
	for i, nv := range row {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s=%s", nv.Name, nv.Value)
	}
	return out + "}"
}

func printStats(db *margaux.Database) {
	fmt.Printf("%-24s %8s %8s %8s %8s %8s %8s\n",
		"collection", "create", "read", "update", "delete", "compare", "total")
	for _, s := range db.Stats() {
		fmt.Printf("%-24s %8d %8d %8d %8d %8d %8d\n",
			s.Collection, s.Creates, s.Reads, s.Updates, s.Deletes, s.Compares, s.Total)
	}
}
