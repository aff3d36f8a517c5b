// Affinity - Content Similarity and Behavioral Telemetry for Community Platforms
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Key prefixes for BadgerDB storage. Event records live under
// eventKeyPrefix; tsIndexPrefix is a secondary index keyed by the
// event's original timestamp so pending events iterate oldest-first.
const (
	eventKeyPrefix = "event:"
	tsIndexPrefix  = "event_ts:"
)

// ErrStoreClosed is returned by write operations when the store has no
// open database. Reads fail open (empty result) instead.
var ErrStoreClosed = errors.New("telemetry: store not open")

// Store is the durable event queue backed by BadgerDB.
//
// It relies on Badger's per-transaction atomicity for read-modify-write
// of single records; no cross-key transactions are required.
type Store struct {
	db *badger.DB
}

// NewStore creates a store over an open Badger database.
func NewStore(db *badger.DB) *Store {
	return &Store{db: db}
}

// Add wraps the event in a QueuedEvent with a zero retry count and
// persists it. Events without an ID get a fresh UUID. Write failures
// surface as errors (fail-closed) — the caller decides whether the
// event can be dropped.
func (s *Store) Add(ctx context.Context, ev BehavioralEvent) error {
	if s == nil || s.db == nil {
		return ErrStoreClosed
	}

	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}

	record := QueuedEvent{
		Key:        ev.ID,
		Event:      ev,
		RetryCount: 0,
		EnqueuedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(&record)
	if err != nil {
		return fmt.Errorf("marshal queued event: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(eventKey(ev.ID), data); err != nil {
			return fmt.Errorf("set event: %w", err)
		}
		if err := txn.Set(tsIndexKey(ev.Timestamp, ev.ID), []byte(ev.ID)); err != nil {
			return fmt.Errorf("set timestamp index: %w", err)
		}
		return nil
	})
	if err != nil {
		RecordStoreWriteFailure()
		return err
	}

	RecordEventPersisted()
	return nil
}

// GetPending returns up to limit queued events ordered by ascending
// original timestamp (oldest first, so no event starves behind newer
// arrivals). A closed store fails open with an empty result.
func (s *Store) GetPending(ctx context.Context, limit int) ([]QueuedEvent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		return nil, nil
	}

	var events []QueuedEvent

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(tsIndexPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix) && len(events) < limit; it.Next() {
			var id string
			if err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				continue
			}

			item, err := txn.Get(eventKey(id))
			if err != nil {
				// Index entry without a record - the record was
				// removed; skip, compaction is handled by Remove.
				continue
			}

			var record QueuedEvent
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			}); err != nil {
				continue
			}

			events = append(events, record)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan pending events: %w", err)
	}

	return events, nil
}

// Remove deletes a queued event by ID. Removing a non-existent ID is
// not an error.
func (s *Store) Remove(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return ErrStoreClosed
	}

	// Read the record first to locate its timestamp index entry.
	var record QueuedEvent
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(eventKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err != nil {
		return fmt.Errorf("get event for removal: %w", err)
	}
	if !found {
		return nil
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(eventKey(id)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete event: %w", err)
		}
		if err := txn.Delete(tsIndexKey(record.Event.Timestamp, id)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete timestamp index: %w", err)
		}
		return nil
	})
}

// IncrementRetry increments the retry counter of a queued event in a
// single read-modify-write transaction.
func (s *Store) IncrementRetry(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return ErrStoreClosed
	}

	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(eventKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}

		var record QueuedEvent
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		}); err != nil {
			return fmt.Errorf("unmarshal queued event: %w", err)
		}

		record.RetryCount++

		data, err := json.Marshal(&record)
		if err != nil {
			return fmt.Errorf("marshal queued event: %w", err)
		}
		return txn.Set(eventKey(id), data)
	})
}

// PendingCount returns the number of queued events. Used by health
// reporting and the pending-events gauge.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}

	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(eventKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})

	return count, err
}

func eventKey(id string) []byte {
	return []byte(eventKeyPrefix + id)
}

// tsIndexKey builds a lexicographically sortable index key from the
// event's epoch-millisecond timestamp. The zero-padded width covers
// any realistic timestamp.
func tsIndexKey(millis int64, id string) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", tsIndexPrefix, millis, id))
}
