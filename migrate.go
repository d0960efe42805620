package main

import (
	"errors"
	"log"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/m-lima/elo-sub000/internal/config"
)

func migrateDatabase() error {
	cfg, err := config.NewFromUserConfigDir()
	if err != nil {
		return err
	}

	migrator, err := migrate.New(
		"file://resources/migrations",
		"sqlite3://"+cfg.Database,
	)
	if err != nil {
		return err
	}
	defer migrator.Close()

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Print("info: database already up to date")
			return nil
		}

		return err
	}

	log.Print("info: database migrated")

	return nil
}
