// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/rivalry/internal/metrics"
	"github.com/tomtom215/rivalry/internal/models"
)

// History window bounds in days.
const (
	DefaultHistoryDays = 7
	MaxHistoryDays     = 30
)

// DayKeyLayout formats ledger day keys.
const DayKeyLayout = "2006-01-02"

// DayKey returns the YYYY-MM-DD key of t in loc.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DayKeyLayout)
}

// ClampHistoryDays maps a requested window onto [1, MaxHistoryDays]; zero
// selects DefaultHistoryDays.
func ClampHistoryDays(days int) int {
	switch {
	case days == 0:
		return DefaultHistoryDays
	case days < 1:
		return 1
	case days > MaxHistoryDays:
		return MaxHistoryDays
	default:
		return days
	}
}

// UpsertDailyPoints writes one ledger record. A second write for the same
// (username, day, mode) replaces points and updated_at in a single statement.
func (db *DB) UpsertDailyPoints(ctx context.Context, rec models.DailyPointsRecord) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("upsert", "daily_points", time.Since(start), err)
		metrics.RecordLedgerUpsert(string(rec.Mode), err)
	}()

	username := models.CanonicalUsername(rec.Username)
	if username == "" {
		return ErrInvalidUsername
	}
	mode, ok := models.ParseMode(string(rec.Mode))
	if !ok || rec.Mode == "" {
		return fmt.Errorf("database: invalid mode %q", rec.Mode)
	}
	if _, perr := time.Parse(DayKeyLayout, rec.Day); perr != nil {
		return fmt.Errorf("database: invalid day %q: %w", rec.Day, perr)
	}
	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = db.now()
	}

	query := `
		INSERT INTO daily_points (username, day, mode, points, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (username, day, mode) DO UPDATE SET
			points = EXCLUDED.points,
			updated_at = EXCLUDED.updated_at
	`
	if _, err = db.conn.ExecContext(ctx, query, username, rec.Day, string(mode), rec.Points, updatedAt.UTC()); err != nil {
		return fmt.Errorf("failed to upsert daily points for %s: %w", username, err)
	}
	return nil
}

// GetDailyPoints returns the ledger record for one key. found is false when no
// record exists.
func (db *DB) GetDailyPoints(ctx context.Context, username, day string, mode models.Mode) (rec models.DailyPointsRecord, found bool, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("select", "daily_points", time.Since(start), err) }()

	username = models.CanonicalUsername(username)
	rows, err := db.conn.QueryContext(ctx, `
		SELECT username, day, mode, points, updated_at
		FROM daily_points
		WHERE username = ? AND day = ? AND mode = ?
	`, username, day, string(mode))
	if err != nil {
		return rec, false, fmt.Errorf("failed to query daily points: %w", err)
	}
	defer closeWithLog(rows, "rows")

	if !rows.Next() {
		return rec, false, rows.Err()
	}
	var modeStr string
	if err = rows.Scan(&rec.Username, &rec.Day, &modeStr, &rec.Points, &rec.UpdatedAt); err != nil {
		return rec, false, fmt.Errorf("failed to scan daily points: %w", err)
	}
	rec.Mode = models.Mode(modeStr)
	return rec, true, nil
}

// DailyHistory returns username -> day -> points for the last days days
// (today included, in loc) for one mode. Days without a record are absent.
// Every requested username appears in the result, possibly with an empty map.
func (db *DB) DailyHistory(ctx context.Context, usernames []string, days int, mode models.Mode, now time.Time, loc *time.Location) (hist models.DailyHistory, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("history", "daily_points", time.Since(start), err) }()

	days = ClampHistoryDays(days)
	if loc == nil {
		loc = time.Local
	}

	hist = make(models.DailyHistory, len(usernames))
	args := make([]any, 0, len(usernames)+3)
	placeholders := make([]string, 0, len(usernames))
	for _, u := range usernames {
		canon := models.CanonicalUsername(u)
		if canon == "" {
			continue
		}
		if _, dup := hist[canon]; dup {
			continue
		}
		hist[canon] = map[string]int{}
		placeholders = append(placeholders, "?")
		args = append(args, canon)
	}
	if len(placeholders) == 0 {
		return hist, nil
	}

	local := now.In(loc)
	toDay := local.Format(DayKeyLayout)
	fromDay := local.AddDate(0, 0, -(days - 1)).Format(DayKeyLayout)
	args = append(args, string(mode), fromDay, toDay)

	query := fmt.Sprintf(`
		SELECT username, day, points
		FROM daily_points
		WHERE username IN (%s) AND mode = ? AND day >= ? AND day <= ?
		ORDER BY username, day
	`, strings.Join(placeholders, ", "))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily history: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var username, day string
		var points int
		if err = rows.Scan(&username, &day, &points); err != nil {
			return nil, fmt.Errorf("failed to scan daily history: %w", err)
		}
		hist[username][day] = points
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily history: %w", err)
	}
	return hist, nil
}
