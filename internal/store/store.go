// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ember Works

// Package store persists per-device state in a single SQLite file.
// Snapshots are opaque CBOR blobs keyed by device address, so schema
// changes in the ledgers do not require SQL migrations.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	_ "modernc.org/sqlite"

	"github.com/emberworks/emberctl/pkg/fueltrack"
)

const sqliteDriverName = "sqlite"

const schemaSnapshots = `
CREATE TABLE IF NOT EXISTS fuel_snapshots (
    address TEXT PRIMARY KEY,
    snapshot BLOB NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

// Store wraps the SQLite file holding persisted device state.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// SQLite tolerates one writer; keep the pool at a single conn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSnapshots); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Fuel returns the fuel ledger store bound to one device address.
func (s *Store) Fuel(address string) *FuelStore {
	return &FuelStore{db: s.db, address: address}
}

// FuelStore implements fueltrack.Store for a single device.
type FuelStore struct {
	db      *sql.DB
	address string
}

const (
	upsertSnapshotSQL = `
		INSERT INTO fuel_snapshots (address, snapshot, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			snapshot=excluded.snapshot,
			updated_at=excluded.updated_at
	`

	selectSnapshotSQL = `
		SELECT snapshot FROM fuel_snapshots WHERE address=?
	`
)

func (f *FuelStore) Load() (fueltrack.Snapshot, bool, error) {
	var blob []byte
	err := f.db.QueryRow(selectSnapshotSQL, f.address).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return fueltrack.Snapshot{}, false, nil
	}
	if err != nil {
		return fueltrack.Snapshot{}, false, fmt.Errorf("load snapshot for %s: %w", f.address, err)
	}

	var snap fueltrack.Snapshot
	if err := cbor.Unmarshal(blob, &snap); err != nil {
		return fueltrack.Snapshot{}, false, fmt.Errorf("decode snapshot for %s: %w", f.address, err)
	}
	return snap, true, nil
}

func (f *FuelStore) Save(snap fueltrack.Snapshot) error {
	blob, err := cbor.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot for %s: %w", f.address, err)
	}
	if _, err := f.db.Exec(upsertSnapshotSQL, f.address, blob, time.Now().UTC()); err != nil {
		return fmt.Errorf("save snapshot for %s: %w", f.address, err)
	}
	return nil
}
