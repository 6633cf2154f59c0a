// Copyright 2026 Moses Edem
// SPDX-License-Identifier: Apache-2.0

package offsync

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Partition names one of the logical tables of the durable local store.
type Partition string

const (
	PartitionDocuments Partition = "documents"
	PartitionPending   Partition = "pending"
	PartitionConflicts Partition = "conflicts"
	PartitionMeta      Partition = "meta"
)

// Record is one durable entry. Index is an optional secondary-index value
// (the collection name for documents and pending changes) used by
// GetAllByIndex.
type Record struct {
	Key   string
	Index string
	Value json.RawMessage
}

// Store is the durable local storage capability the engine is built on. All
// writes must survive process restart. GetAll and GetAllByIndex return
// records in insertion order, which is what makes the pending queue a FIFO.
//
// Implementations must be safe for concurrent use; the engine accesses
// partitions independently and performs no cross-partition transactions.
type Store interface {
	Get(ctx context.Context, p Partition, key string) (json.RawMessage, error)
	GetAll(ctx context.Context, p Partition) ([]Record, error)
	GetAllByIndex(ctx context.Context, p Partition, index string) ([]Record, error)
	Put(ctx context.Context, p Partition, rec Record) error
	Delete(ctx context.Context, p Partition, key string) error
	Clear(ctx context.Context, p Partition) error
	Count(ctx context.Context, p Partition) (int, error)
}

// SQLiteStore is the production Store backed by a single SQLite table with a
// partition discriminator. Rows keep their original insertion sequence across
// overwrites, so queue order is stable even when an entry is re-put.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore prepares the schema on db and returns the store. The caller
// keeps ownership of db. Any failure here means the hosting environment has
// no usable persistent storage and is reported as ErrStorageUnavailable.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: nil database handle", ErrStorageUnavailable)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("%w: enable WAL mode: %v", ErrStorageUnavailable, err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		return nil, fmt.Errorf("%w: enable foreign keys: %v", ErrStorageUnavailable, err)
	}

	ddl := []string{
		`CREATE TABLE IF NOT EXISTS _offsync_records (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			partition  TEXT NOT NULL,
			key        TEXT NOT NULL,
			idx        TEXT NOT NULL DEFAULT '',
			value      TEXT NOT NULL,
			UNIQUE (partition, key)
		)`,
		`CREATE INDEX IF NOT EXISTS _offsync_records_by_idx
			ON _offsync_records (partition, idx)`,
	}
	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("%w: create schema: %v", ErrStorageUnavailable, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, p Partition, key string) (json.RawMessage, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM _offsync_records WHERE partition = ? AND key = ?
	`, string(p), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", p, key, err)
	}
	return json.RawMessage(value), nil
}

func (s *SQLiteStore) GetAll(ctx context.Context, p Partition) ([]Record, error) {
	return s.queryRecords(ctx, `
		SELECT key, idx, value FROM _offsync_records
		WHERE partition = ? ORDER BY seq
	`, string(p))
}

func (s *SQLiteStore) GetAllByIndex(ctx context.Context, p Partition, index string) ([]Record, error) {
	return s.queryRecords(ctx, `
		SELECT key, idx, value FROM _offsync_records
		WHERE partition = ? AND idx = ? ORDER BY seq
	`, string(p), index)
}

func (s *SQLiteStore) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var key, idx, value string
		if err := rows.Scan(&key, &idx, &value); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, Record{Key: key, Index: idx, Value: json.RawMessage(value)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return records, nil
}

// Put inserts or replaces the record for (partition, key). An overwrite keeps
// the row's original seq so iteration order reflects first insertion.
func (s *SQLiteStore) Put(ctx context.Context, p Partition, rec Record) error {
	if rec.Key == "" {
		return fmt.Errorf("record key must not be empty")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO _offsync_records (partition, key, idx, value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (partition, key) DO UPDATE SET idx = excluded.idx, value = excluded.value
	`, string(p), rec.Key, rec.Index, string(rec.Value))
	if err != nil {
		return fmt.Errorf("failed to put %s/%s: %w", p, rec.Key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, p Partition, key string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM _offsync_records WHERE partition = ? AND key = ?
	`, string(p), key)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", p, key, err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context, p Partition) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM _offsync_records WHERE partition = ?
	`, string(p))
	if err != nil {
		return fmt.Errorf("failed to clear partition %s: %w", p, err)
	}
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context, p Partition) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM _offsync_records WHERE partition = ?
	`, string(p)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count partition %s: %w", p, err)
	}
	return n, nil
}

// documentKey builds the composite mirror key for a document.
func documentKey(collection, documentID string) string {
	return collection + "/" + documentID
}
