// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/rivalry/internal/metrics"
	"github.com/tomtom215/rivalry/internal/models"
)

// AddUser registers a tracked user. Marking an existing user as self is
// sticky; adding it again as a plain user does not clear the flag.
func (db *DB) AddUser(ctx context.Context, username string, isSelf bool) (err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("upsert", "users", time.Since(start), err) }()

	username = models.CanonicalUsername(username)
	if username == "" {
		return ErrInvalidUsername
	}

	query := `INSERT INTO users (username, is_self, created_at) VALUES (?, ?, ?)
		ON CONFLICT (username) DO NOTHING`
	if isSelf {
		query = `INSERT INTO users (username, is_self, created_at) VALUES (?, ?, ?)
			ON CONFLICT (username) DO UPDATE SET is_self = EXCLUDED.is_self`
	}
	if _, err = db.conn.ExecContext(ctx, query, username, isSelf, db.now().UTC()); err != nil {
		return fmt.Errorf("failed to add user %s: %w", username, err)
	}
	return nil
}

// AddFriend links friend to owner. The owner is registered as a self user.
// Adding an existing friend is a no-op that returns the stored entry.
func (db *DB) AddFriend(ctx context.Context, owner, friend string) (models.Friend, error) {
	owner = models.CanonicalUsername(owner)
	friend = models.CanonicalUsername(friend)
	if owner == "" || friend == "" {
		return models.Friend{}, ErrInvalidUsername
	}
	if owner == friend {
		return models.Friend{}, ErrSelfFriend
	}

	if err := db.AddUser(ctx, owner, true); err != nil {
		return models.Friend{}, err
	}
	if err := db.AddUser(ctx, friend, false); err != nil {
		return models.Friend{}, err
	}

	start := time.Now()
	addedAt := db.now().UTC()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO friends (owner, friend, added_at) VALUES (?, ?, ?)
		ON CONFLICT (owner, friend) DO NOTHING
	`, owner, friend, addedAt)
	metrics.RecordDBQuery("insert", "friends", time.Since(start), err)
	if err != nil {
		return models.Friend{}, fmt.Errorf("failed to add friend %s for %s: %w", friend, owner, err)
	}

	var stored models.Friend
	err = db.conn.QueryRowContext(ctx,
		`SELECT owner, friend, added_at FROM friends WHERE owner = ? AND friend = ?`,
		owner, friend,
	).Scan(&stored.Owner, &stored.Username, &stored.AddedAt)
	if err != nil {
		return models.Friend{}, fmt.Errorf("failed to read back friend %s: %w", friend, err)
	}
	return stored, nil
}

// RemoveFriend unlinks friend from owner and reports whether a link existed.
func (db *DB) RemoveFriend(ctx context.Context, owner, friend string) (removed bool, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("delete", "friends", time.Since(start), err) }()

	owner = models.CanonicalUsername(owner)
	friend = models.CanonicalUsername(friend)
	if owner == "" || friend == "" {
		return false, ErrInvalidUsername
	}

	res, err := db.conn.ExecContext(ctx, `DELETE FROM friends WHERE owner = ? AND friend = ?`, owner, friend)
	if err != nil {
		return false, fmt.Errorf("failed to remove friend %s for %s: %w", friend, owner, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// Friends lists owner's friends ordered by username.
func (db *DB) Friends(ctx context.Context, owner string) (friends []models.Friend, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("select", "friends", time.Since(start), err) }()

	owner = models.CanonicalUsername(owner)
	rows, err := db.conn.QueryContext(ctx,
		`SELECT owner, friend, added_at FROM friends WHERE owner = ? ORDER BY friend`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	defer closeWithLog(rows, "rows")

	friends = make([]models.Friend, 0)
	for rows.Next() {
		var f models.Friend
		if err = rows.Scan(&f.Owner, &f.Username, &f.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan friend: %w", err)
		}
		friends = append(friends, f)
	}
	return friends, rows.Err()
}

// FriendNames returns just the usernames of owner's friends.
func (db *DB) FriendNames(ctx context.Context, owner string) ([]string, error) {
	friends, err := db.Friends(ctx, owner)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(friends))
	for i, f := range friends {
		names[i] = f.Username
	}
	return names, nil
}

// KnownUsers returns every self user plus every friend, deduplicated and
// sorted.
func (db *DB) KnownUsers(ctx context.Context) (users []string, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("select", "users", time.Since(start), err) }()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT username FROM users WHERE is_self
		UNION
		SELECT friend FROM friends
		ORDER BY 1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list known users: %w", err)
	}
	defer closeWithLog(rows, "rows")

	users = make([]string, 0)
	for rows.Next() {
		var u string
		if err = rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
