// Package main applies the embedded database schema migrations.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"os"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"

	"github.com/powderlines/powderlines/internal/database"
	"github.com/powderlines/powderlines/migrations"
)

// Version is set at compile time via ldflags.
var Version = "dev"

func main() {
	action := flag.String("action", "up", "migration action: up, down, version, force")
	target := flag.Uint("version", 0, "target version for the force action")
	flag.Parse()

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", "powderlines-migrate").
		Str("version", Version).
		Logger()

	if level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && level != zerolog.NoLevel {
		log = log.Level(level)
	}

	db, err := sql.Open("pgx", database.ConfigFromEnv().ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close() //nolint:errcheck // close error is not actionable at exit

	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create migration driver")
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read embedded migrations")
	}

	m, err := migrate.NewWithInstance("iofs", source, "powderlines", driver)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create migrator")
	}

	switch *action {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal().Err(err).Msg("migration failed")
		}
		logVersion(log, m, "schema is up to date")

	case "down":
		if err := m.Steps(-1); err != nil {
			log.Fatal().Err(err).Msg("rollback failed")
		}
		logVersion(log, m, "rolled back one migration")

	case "version":
		logVersion(log, m, "current schema version")

	case "force":
		if *target == 0 {
			log.Fatal().Msg("force requires -version")
		}
		if err := m.Force(int(*target)); err != nil {
			log.Fatal().Err(err).Uint("target", *target).Msg("force failed")
		}
		log.Info().Uint("version", *target).Msg("schema version forced")

	default:
		log.Fatal().Str("action", *action).Msg("unknown action")
	}
}

// logVersion reports the current schema version. A database with no
// applied migrations reports version zero rather than an error.
func logVersion(log zerolog.Logger, m *migrate.Migrate, msg string) {
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		log.Fatal().Err(err).Msg("failed to read schema version")
	}
	log.Info().Uint("version", version).Bool("dirty", dirty).Msg(msg)
}
