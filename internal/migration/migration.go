// Package migration creates the schema on startup so the service is usable
// out of the box for local and self-hosted environments.
package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	authdomain "github.com/quillform/quillform/internal/auth/domain"
	formdomain "github.com/quillform/quillform/internal/form/domain"
	identitydomain "github.com/quillform/quillform/internal/identity/domain"
	responsedomain "github.com/quillform/quillform/internal/response/domain"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

const migrationsDir = "migrations"

// RunMigrations applies the embedded SQL migrations against postgres.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// AutoMigrate covers the non-postgres dialects used in development.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&identitydomain.User{},
		&identitydomain.Role{},
		&identitydomain.Permission{},
		&authdomain.LoginSession{},
		&authdomain.AuthSession{},
		&authdomain.AccountVerificationSession{},
		&formdomain.Form{},
		&formdomain.FormField{},
		&responsedomain.AnswerSession{},
		&responsedomain.FieldAnswer{},
	)
}
