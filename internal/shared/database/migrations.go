package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"
)

// Migration is one schema step, keyed by its file name.
type Migration struct {
	Version string
	SQL     string
}

// LoadMigrations reads every .sql file at the root of fsys in name order.
// Files must be named so that lexical order is apply order (001_, 002_, ...).
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading migrations: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}
		content, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}
		if strings.TrimSpace(string(content)) == "" {
			return nil, fmt.Errorf("migration %s is empty", entry.Name())
		}
		migrations = append(migrations, Migration{Version: entry.Name(), SQL: string(content)})
	}

	slices.SortFunc(migrations, func(a, b Migration) int { return strings.Compare(a.Version, b.Version) })
	return migrations, nil
}

// RunMigrations applies every migration in fsys not yet recorded in
// schema_migrations, each in its own transaction.
func (db *DB) RunMigrations(ctx context.Context, fsys fs.FS) error {
	logger := slog.With("component", "migrations")

	migrations, err := LoadMigrations(fsys)
	if err != nil {
		return err
	}
	logger.Info("Starting database migrations", "count", len(migrations))

	if _, err := db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT NOW()
	)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied := 0
	for _, m := range migrations {
		ran, err := db.apply(ctx, m)
		if err != nil {
			logger.Error("Failed to run migration", "migration", m.Version, "error", err)
			return fmt.Errorf("failed to run migration %s: %w", m.Version, err)
		}
		if ran {
			applied++
		}
	}

	logger.Info("Database migrations complete", "applied", applied, "skipped", len(migrations)-applied)
	return nil
}

func (db *DB) apply(ctx context.Context, m Migration) (bool, error) {
	logger := slog.With("component", "migrations", "migration", m.Version)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			logger.Error("Failed to rollback migration", "error", err)
		}
	}()

	// The version row is claimed first so two servers starting together
	// cannot both run the same step.
	res, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT (version) DO NOTHING", m.Version)
	if err != nil {
		return false, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return false, err
	} else if n == 0 {
		logger.Debug("Migration already applied")
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}

	logger.Info("Applied migration", "size_bytes", len(m.SQL))
	return true, nil
}
