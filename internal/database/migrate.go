package database

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

func prepareGoose() error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("mysql"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	return nil
}

// MigrateUp applies all pending migrations.
func MigrateUp(db *sql.DB) error {
	if err := prepareGoose(); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}

// MigrateDown rolls back the most recent migration.
func MigrateDown(db *sql.DB) error {
	if err := prepareGoose(); err != nil {
		return err
	}
	return goose.Down(db, "migrations")
}

// MigrationStatus prints the applied/pending state of every migration.
func MigrationStatus(db *sql.DB) error {
	if err := prepareGoose(); err != nil {
		return err
	}
	return goose.Status(db, "migrations")
}
