package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"makerbot/internal/config"
)

func TestNewSQLite_InMemoryKeepsTables(t *testing.T) {
	s, err := NewSQLite(config.DatabaseConfig{InMemory: true, MaxOpenConns: 4, ConnMaxLifetime: time.Millisecond})
	if err != nil {
		t.Fatalf("NewSQLite returned error: %v", err)
	}
	defer s.Close()

	if _, err := s.DB().Exec(`CREATE TABLE scratch (id INTEGER)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := s.DB().Exec(`INSERT INTO scratch (id) VALUES (1)`); err != nil {
		t.Fatalf("table vanished between statements: %v", err)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}
}

func TestNewSQLite_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bot.db")
	s, err := NewSQLite(config.DatabaseConfig{Path: path, MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("NewSQLite returned error: %v", err)
	}
	defer s.Close()

	var mode string
	if err := s.DB().QueryRow(`PRAGMA journal_mode;`).Scan(&mode); err != nil {
		t.Fatalf("query journal mode: %v", err)
	}
	if mode != "wal" {
		t.Fatalf("expected wal journal mode, got %s", mode)
	}
}
