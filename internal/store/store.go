// Package store provides the SQLite-backed persistence layer for networks,
// devices, interfaces, DHCP leases, credentials, floorplans, and scan
// history.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Migration is one forward-only schema change, applied in ascending
// Version order and recorded in __migrations by its SQL hash.
type Migration struct {
	Version     int
	Description string
	Statements  []string
}

// Store wraps a SQLite database handle with pragma setup, migration
// tracking, and the persistence-gateway methods in gateway.go.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	once sync.Once
}

// Open opens (or creates) a SQLite database at path and applies the
// pragmas netspan needs: WAL journaling, a busy timeout so concurrent
// scan workers don't trip SQLITE_BUSY, foreign keys, and a larger page
// cache.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	// SQLite takes one writer at a time; WAL lets readers proceed concurrently.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA cache_size=-20000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	return &Store{db: db}, nil
}

// DB returns the underlying *sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Tx executes fn within a database transaction, committing if fn returns
// nil and rolling back otherwise.
func (s *Store) Tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original: %w)", rbErr, err)
		}
		return err
	}

	return tx.Commit()
}

// Migrate runs every migration in migrations not yet recorded in
// __migrations, in ascending Version order. Each applied migration's
// SQL is hashed so a changed migration body (rather than a missing row)
// is detectable during review, though only the version gates re-application.
func (s *Store) Migrate(ctx context.Context, migrations []Migration) error {
	if err := s.ensureMigrationsTable(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range migrations {
		applied, err := s.isMigrationApplied(ctx, m.Version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		if err := s.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
	}

	return nil
}

func (s *Store) ensureMigrationsTable(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		_, err = s.db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS __migrations (
				version     INTEGER  PRIMARY KEY,
				description TEXT     NOT NULL,
				sql_hash    TEXT     NOT NULL,
				applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
		`)
	})
	return err
}

func (s *Store) isMigrationApplied(ctx context.Context, version int) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM __migrations WHERE version = ?", version,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check migration %d: %w", version, err)
	}
	return count > 0, nil
}

func (s *Store) applyMigration(ctx context.Context, m Migration) error {
	return s.Tx(ctx, func(tx *sql.Tx) error {
		joined := ""
		for _, stmt := range m.Statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
			joined += stmt + ";"
		}
		hash := sha256.Sum256([]byte(joined))
		_, err := tx.ExecContext(ctx,
			"INSERT INTO __migrations (version, description, sql_hash) VALUES (?, ?, ?)",
			m.Version, m.Description, hex.EncodeToString(hash[:]),
		)
		return err
	})
}
