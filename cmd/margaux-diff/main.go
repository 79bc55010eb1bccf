// Package main implements the margaux-diff binary: it compares two
// databases and prints one line per difference. The exit status is 0 when
// the databases match and 1 when they differ.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/margauxdb/margaux/pkg/margaux"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		logLevel    string
		showVersion bool
	)

	flag.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error, off")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "margaux-diff - compare two databases\n\n")
		fmt.Fprintf(os.Stderr, "Usage: margaux-diff [options] <first.db> <second.db>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExit status is 0 when the databases match, 1 when they differ.\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("margaux-diff version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) != 2 {
		flag.Usage()
		os.Exit(2)
	}

	ctx := context.Background()
	opts := margaux.Options{ReadOnly: true, LogLevel: logLevel}

	first, err := margaux.Open(ctx, args[0], opts)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", args[0], err)
	}
	defer first.Close()

	second, err := margaux.Open(ctx, args[1], opts)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", args[1], err)
	}
	defer second.Close()

	diffs, err := first.CompareDatabases(ctx, second)
	if err != nil {
		log.Fatalf("Comparison failed: %v", err)
	}

	for _, d := range diffs {
		fmt.Println(d)
	}
	if len(diffs) > 0 {
		first.Close()
		second.Close()
		os.Exit(1)
	}
}
