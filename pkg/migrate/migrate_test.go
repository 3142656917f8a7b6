package migrate

import (
	"context"
	"database/sql"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openSQLite(t *testing.T) (*gorm.DB, *sql.DB) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn, sqlDB
}

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	if err := ValidateFS(Migrations()); err != nil {
		t.Fatalf("embedded migrations invalid: %v", err)
	}

	matches, err := fs.Glob(Migrations(), "*_create_state_entries.sql")
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one state_entries migration, got %v err=%v", matches, err)
	}

	data, err := fs.ReadFile(Migrations(), matches[0])
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	for _, want := range []string{"CREATE TABLE IF NOT EXISTS state_entries", "key VARCHAR(191) PRIMARY KEY"} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("migration missing %q", want)
		}
	}
}

func TestValidateFSRejectsBadFiles(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"bad name":     {"create_state.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")}},
		"missing down": {"20260101000000_x.sql": {Data: []byte("-- +goose Up\n")}},
		"duplicate version": {
			"20260101000000_a.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
			"20260101000000_b.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
		"empty": {},
	}
	for name, fsys := range cases {
		if err := ValidateFS(fsys); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestRunUpCreatesStateTable(t *testing.T) {
	conn, sqlDB := openSQLite(t)

	ctx := context.Background()
	if err := Run(ctx, sqlDB, "sqlite3", "up"); err != nil {
		t.Fatalf("up: %v", err)
	}
	if !conn.Migrator().HasTable("state_entries") {
		t.Fatalf("expected state_entries table")
	}

	// up is idempotent
	if err := Run(ctx, sqlDB, "sqlite3", "up"); err != nil {
		t.Fatalf("second up: %v", err)
	}

	if err := MigrateToVersion(ctx, sqlDB, "sqlite3", "0"); err != nil {
		t.Fatalf("down to 0: %v", err)
	}
	if conn.Migrator().HasTable("state_entries") {
		t.Fatalf("expected state_entries to be dropped")
	}
}

func TestRunRejectsUnknownInputs(t *testing.T) {
	if err := Run(context.Background(), nil, "sqlite3", "up"); err == nil {
		t.Fatalf("expected error for nil db")
	}

	_, sqlDB := openSQLite(t)
	if err := Run(context.Background(), sqlDB, "mysql", "up"); err == nil {
		t.Fatalf("expected error for unsupported dialect")
	}
	if err := Run(context.Background(), sqlDB, "sqlite3", "redo-everything"); err == nil {
		t.Fatalf("expected error for unknown command")
	}
	if err := MigrateToVersion(context.Background(), sqlDB, "sqlite3", "latest"); err == nil {
		t.Fatalf("expected error for non-numeric version")
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Index To State")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if filepath.Dir(path) != dir || !strings.HasSuffix(path, "_add_index_to_state.sql") {
		t.Fatalf("unexpected path %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "-- +goose Up") {
		t.Fatalf("template missing goose annotations")
	}

	if _, err := CreateSQLMigration(dir, "!!!"); err == nil {
		t.Fatalf("expected error for a name without letters")
	}

	// a second file in the same second must not collide with the first
	next, err := CreateSQLMigration(dir, "Add Index To State")
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if filepath.Base(next) <= filepath.Base(path) {
		t.Fatalf("expected %q to sort after %q", next, path)
	}
	if err := ValidateFS(os.DirFS(dir)); err != nil {
		t.Fatalf("created migrations invalid: %v", err)
	}
}
