// Command migrate applies or rolls back actflow's database schema from
// db/migrations, using the database settings of the server config.
// Usage: go run ./cmd/migrate [up|down|steps N|version]
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"actflow/internal/config"
)

const (
	migrationsURL = "file://db/migrations"
	usage         = "usage: actflow-migrate [up|down|steps N|version]"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	m, err := migrate.New(migrationsURL, cfg.DB.DSN())
	if err != nil {
		return fmt.Errorf("opening actflow migrations: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	switch args[0] {
	case "up":
		if err := ignoreNoChange(m.Up()); err != nil {
			return fmt.Errorf("applying actflow schema: %w", err)
		}
		log.Println("actflow schema is up to date")

	case "down":
		if err := ignoreNoChange(m.Down()); err != nil {
			return fmt.Errorf("rolling back actflow schema: %w", err)
		}
		log.Println("actflow schema rolled back")

	case "steps":
		if len(args) < 2 {
			return errors.New("steps needs a count, e.g. steps -1")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid step count %q: %w", args[1], err)
		}
		if err := ignoreNoChange(m.Steps(n)); err != nil {
			return fmt.Errorf("migrating %d steps: %w", n, err)
		}
		log.Printf("actflow schema moved %d steps", n)

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("actflow schema: no migrations applied")
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
		fmt.Printf("actflow schema version %d (dirty: %v)\n", version, dirty)

	default:
		return fmt.Errorf("unknown command %q; %s", args[0], usage)
	}
	return nil
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}
