// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package database

import (
	"context"
	"fmt"

	"github.com/tomtom215/rivalry/internal/logging"
)

// schemaStatements are executed one at a time; DuckDB handles multi-statement
// strings poorly through database/sql.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		username TEXT PRIMARY KEY,
		is_self BOOLEAN NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS friends (
		owner TEXT NOT NULL,
		friend TEXT NOT NULL,
		added_at TIMESTAMP NOT NULL,
		PRIMARY KEY (owner, friend)
	)`,
	// day is YYYY-MM-DD in the configured zone; text keeps range filters
	// lexicographic and avoids zone conversion on read.
	`CREATE TABLE IF NOT EXISTS daily_points (
		username TEXT NOT NULL,
		day TEXT NOT NULL,
		mode TEXT NOT NULL,
		points INTEGER NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (username, day, mode)
	)`,
}

// createTables creates the schema and checkpoints so the DDL is not left in
// the WAL.
func (db *DB) createTables(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	if err := db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint after schema creation")
	}
	return nil
}
