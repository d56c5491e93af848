package store

import (
	"embed"
	"fmt"

	"bookshop-pos/internal/util"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFS embed.FS

type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...interface{}) {
	util.GetLogger().Sugar().Infof(format, v...)
}

func (gooseLogger) Fatalf(format string, v ...interface{}) {
	util.GetLogger().Sugar().Fatalf(format, v...)
}

func (s *Store) migrationDialect() (dialect, dir string) {
	if s.driver == DriverPostgres {
		return "postgres", "migrations/postgres"
	}
	return "sqlite3", "migrations/sqlite"
}

func (s *Store) prepareGoose() (string, error) {
	dialect, dir := s.migrationDialect()
	goose.SetBaseFS(migrationFS)
	goose.SetLogger(gooseLogger{})
	if err := goose.SetDialect(dialect); err != nil {
		return "", fmt.Errorf("set goose dialect: %w", err)
	}
	return dir, nil
}

// Migrate applies every pending schema migration for the configured driver
func (s *Store) Migrate() error {
	dir, err := s.prepareGoose()
	if err != nil {
		return err
	}
	return goose.Up(s.db.DB, dir)
}

// MigrationVersion reports the current schema version
func (s *Store) MigrationVersion() (int64, error) {
	if _, err := s.prepareGoose(); err != nil {
		return 0, err
	}
	return goose.GetDBVersion(s.db.DB)
}
