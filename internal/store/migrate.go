package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

type migration struct {
	name string
	stmt string
}

// migrations run in order; applied names are recorded so restarts only run
// what is new. Never reorder or edit an entry once it has shipped.
var migrations = []migration{
	{
		name: "001_create_users",
		stmt: `CREATE TABLE users (
			username TEXT PRIMARY KEY,
			hashed_password TEXT NOT NULL,
			disabled BOOLEAN NOT NULL DEFAULT FALSE,
			capabilities TEXT[] NOT NULL DEFAULT '{}'
		)`,
	},
	{
		name: "002_create_servers",
		stmt: `CREATE TABLE servers (
			uid UUID PRIMARY KEY,
			type TEXT NOT NULL,
			name TEXT NOT NULL,
			host TEXT NOT NULL,
			port INTEGER NOT NULL,
			rcon_port INTEGER NOT NULL,
			rcon_password TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT ''
		)`,
	},
}

// Migrate brings the schema up to date. Each pending migration runs in its
// own transaction together with the bookkeeping insert.
func Migrate(ctx context.Context, db *sql.DB, logger zerolog.Logger) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS migrations (
			name TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	applied := make(map[string]bool)
	rows, err := db.QueryContext(ctx, `SELECT name FROM migrations`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		applied[name] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.name] {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
		logger.Info().Str("migration", m.name).Msg("applied migration")
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.stmt); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO migrations (name) VALUES ($1)`, m.name); err != nil {
		return err
	}
	return tx.Commit()
}
