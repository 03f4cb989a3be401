// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

// Package history is the client-side daily points history that the
// leaderboard builder records into after its third wave. It is a Badger
// key-value store keyed by mode, user and local day, pruned to a rolling
// retention window. It complements the DuckDB ledger: the ledger is the
// server-wide record, this store is what the leaderboard view has seen.
package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/rivalry/internal/config"
	"github.com/tomtom215/rivalry/internal/logging"
	"github.com/tomtom215/rivalry/internal/models"
)

// DefaultRetentionDays is how long recorded days are kept.
const DefaultRetentionDays = 30

const (
	keyPrefix  = "daily:"
	dayLayout  = "2006-01-02"
	keySep     = ":"
	keySegment = 4 // daily:<mode>:<username>:<day>
)

// entry is the stored value.
type entry struct {
	Points     int       `json:"points"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Store persists per-user daily points.
type Store struct {
	db  *badger.DB
	now func() time.Time
}

// Open opens the store described by cfg. InMemory stores vanish on Close.
func Open(cfg *config.HistoryConfig) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create history directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the underlying Badger database.
func (s *Store) Close() error {
	return s.db.Close()
}

func dayKey(mode models.Mode, username, day string) []byte {
	return []byte(keyPrefix + string(mode) + keySep + username + keySep + day)
}

func userPrefix(mode models.Mode, username string) []byte {
	return []byte(keyPrefix + string(mode) + keySep + username + keySep)
}

// Record stores points for username on day (YYYY-MM-DD). Later writes for the
// same key replace earlier ones.
func (s *Store) Record(_ context.Context, username string, mode models.Mode, day string, points int) error {
	username = models.CanonicalUsername(username)
	if username == "" {
		return errors.New("history: username is required")
	}
	if _, err := time.Parse(dayLayout, day); err != nil {
		return fmt.Errorf("history: invalid day %q: %w", day, err)
	}

	data, err := json.Marshal(entry{Points: points, RecordedAt: s.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(dayKey(mode, username, day), data)
	})
}

// Get returns username -> day -> points for the last days days (today
// included, in loc). Days never recorded are absent.
func (s *Store) Get(_ context.Context, usernames []string, days int, mode models.Mode, now time.Time, loc *time.Location) (models.DailyHistory, error) {
	if days < 1 {
		days = 1
	}
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	toDay := local.Format(dayLayout)
	fromDay := local.AddDate(0, 0, -(days - 1)).Format(dayLayout)

	hist := make(models.DailyHistory, len(usernames))
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for _, u := range usernames {
			username := models.CanonicalUsername(u)
			if username == "" {
				continue
			}
			byDay := hist[username]
			if byDay == nil {
				byDay = map[string]int{}
				hist[username] = byDay
			}

			prefix := userPrefix(mode, username)
			for it.Seek(dayKey(mode, username, fromDay)); it.ValidForPrefix(prefix); it.Next() {
				item := it.Item()
				day := strings.TrimPrefix(string(item.Key()), string(prefix))
				if day > toDay {
					break
				}
				var e entry
				if err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &e)
				}); err != nil {
					return fmt.Errorf("decode history entry %s: %w", item.Key(), err)
				}
				byDay[day] = e.Points
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hist, nil
}

// Prune deletes entries whose day is older than retentionDays before now in
// loc and returns how many were removed.
func (s *Store) Prune(_ context.Context, now time.Time, retentionDays int, loc *time.Location) (int, error) {
	if retentionDays < 1 {
		retentionDays = DefaultRetentionDays
	}
	if loc == nil {
		loc = time.Local
	}
	cutoff := now.In(loc).AddDate(0, 0, -retentionDays).Format(dayLayout)

	var stale [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			parts := strings.Split(string(key), keySep)
			if len(parts) != keySegment {
				continue
			}
			if parts[keySegment-1] < cutoff {
				stale = append(stale, key)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan history: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return 0, fmt.Errorf("delete history entry: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flush history prune: %w", err)
	}

	logging.Debug().Int("removed", len(stale)).Str("cutoff", cutoff).Msg("Pruned daily history")
	return len(stale), nil
}
