package sqlite_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/artpar/crudgate/adapters/sqlite"
)

func TestOpen_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crudgate.db")

	db, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	// Pragmas run at open time, so the file exists immediately.
	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestOpen_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "crudgate.db")

	db, err := sqlite.Open(path)
	if err == nil {
		db.Close()
		t.Fatal("expected error opening database in missing directory")
	}
}

func TestHealthCheck(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.HealthCheck(ctx); err != nil {
		t.Errorf("health check on open database: %v", err)
	}

	db.Close()
	if err := db.HealthCheck(ctx); err == nil {
		t.Error("expected health check to fail after close")
	}
}
