package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// Version holds the build-time version string.
var Version = "unknown" // nolint:gochecknoglobals

func main() {
	flag.Parse()

	switch flag.Arg(0) {
	case "version":
		fmt.Fprintf(os.Stdout, "elo-sub000 %s\n", Version)
	case "serve":
		if err := serve(); err != nil {
			log.Fatalf("error: %s", err)
		}
	case "migrate":
		if err := migrateDatabase(); err != nil {
			log.Fatalf("error: %s", err)
		}
	case "dev:fixtures":
		if err := loadFixtures(); err != nil {
			log.Fatalf("error: %s", err)
		}
	case "help":
		fmt.Fprint(os.Stdout, help())
	default:
		fmt.Fprint(os.Stderr, help())
		os.Exit(1)
	}
}

func help() string {
	return fmt.Sprintf(`
elo-sub000 tracks players, game results, and their Elo rating trajectory.

Usage: %[1]s COMMAND [ARGS…]

COMMANDS
    serve        run the HTTP API
    migrate      apply pending database migrations
    dev:fixtures create default data for quick testing during development
    help         display this help
    version      display the current version
`,
		os.Args[0],
	)
}
