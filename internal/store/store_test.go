package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open(%q): %v", path, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_creates_database(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "new.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_invalid_path(t *testing.T) {
	_, err := Open("/nonexistent/path/to/db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestTx_commit(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	if _, err := s.DB().ExecContext(ctx, "CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	err := s.Tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO test (id, name) VALUES (1, 'alice')")
		return err
	})
	if err != nil {
		t.Fatalf("Tx commit: %v", err)
	}

	var name string
	if err := s.DB().QueryRowContext(ctx, "SELECT name FROM test WHERE id = 1").Scan(&name); err != nil {
		t.Fatalf("query after commit: %v", err)
	}
	if name != "alice" {
		t.Errorf("got name %q, want %q", name, "alice")
	}
}

func TestTx_rollback(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	if _, err := s.DB().ExecContext(ctx, "CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	err := s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO test (id, name) VALUES (1, 'bob')"); err != nil {
			return err
		}
		return sql.ErrNoRows
	})
	if err != sql.ErrNoRows {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}

	var count int
	if err := s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM test").Scan(&count); err != nil {
		t.Fatalf("count after rollback: %v", err)
	}
	if count != 0 {
		t.Errorf("got count %d after rollback, want 0", count)
	}
}

func TestMigrate_applies_in_order(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	migrations := []Migration{
		{Version: 1, Description: "create devices table", Statements: []string{
			"CREATE TABLE t_devices (id INTEGER PRIMARY KEY, name TEXT)",
		}},
		{Version: 2, Description: "add ip column", Statements: []string{
			"ALTER TABLE t_devices ADD COLUMN ip TEXT",
		}},
	}

	if err := s.Migrate(ctx, migrations); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	if _, err := s.DB().ExecContext(ctx, "INSERT INTO t_devices (id, name, ip) VALUES (1, 'switch1', '10.0.0.1')"); err != nil {
		t.Fatalf("insert after migration: %v", err)
	}

	var count int
	if err := s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM __migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 2 {
		t.Errorf("got %d migration records, want 2", count)
	}
}

func TestMigrate_skips_applied(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	callCount := 0
	migrations := []Migration{
		{Version: 1, Description: "create table", Statements: []string{"CREATE TABLE test_skip (id INTEGER)"}},
	}

	if err := s.Migrate(ctx, migrations); err != nil {
		t.Fatalf("first Migrate: %v", err)
	}
	callCount++
	if err := s.Migrate(ctx, migrations); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	var count int
	if err := s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM __migrations WHERE version = 1").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("migration was recorded more than once: count=%d", count)
	}
	_ = callCount
}

func TestMigrate_failure_rolls_back(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	migrations := []Migration{
		{Version: 1, Description: "will fail", Statements: []string{"INVALID SQL STATEMENT"}},
	}

	if err := s.Migrate(ctx, migrations); err == nil {
		t.Fatal("expected error from bad migration, got nil")
	}

	var count int
	if err := s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM __migrations").Scan(&count); err != nil {
		t.Fatalf("count after failed migration: %v", err)
	}
	if count != 0 {
		t.Errorf("migration was recorded despite failure: count=%d", count)
	}
}

func TestMigrate_partial_failure_preserves_earlier(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	migrations := []Migration{
		{Version: 1, Description: "ok migration", Statements: []string{"CREATE TABLE partial_test (id INTEGER)"}},
		{Version: 2, Description: "bad migration", Statements: []string{"INVALID SQL"}},
	}

	if err := s.Migrate(ctx, migrations); err == nil {
		t.Fatal("expected error from partial migration")
	}

	var count int
	if err := s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM __migrations").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 committed migration, got %d", count)
	}
}

func TestClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "close.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := s.DB().PingContext(context.Background()); err == nil {
		t.Error("expected error after Close, got nil")
	}
}

func TestWAL_mode_enabled(t *testing.T) {
	s := tempDB(t)
	var mode string
	if err := s.DB().QueryRowContext(context.Background(), "PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want %q", mode, "wal")
	}
}

func TestForeignKeys_enabled(t *testing.T) {
	s := tempDB(t)
	var fk int
	if err := s.DB().QueryRowContext(context.Background(), "PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("PRAGMA foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}
