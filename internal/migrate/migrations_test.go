package migrate_test

import (
	"context"
	"testing"

	"ganttline/internal/db"
	"ganttline/internal/migrate"
)

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(db.Config{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	if v, err := migrate.Version(ctx, conn); err != nil || v != 0 {
		t.Fatalf("fresh version: %d %v", v, err)
	}
	for i := 0; i < 2; i++ {
		if err := migrate.Migrate(ctx, conn); err != nil {
			t.Fatalf("migrate #%d: %v", i+1, err)
		}
	}
	v, err := migrate.Version(ctx, conn)
	if err != nil || v != 1 {
		t.Fatalf("version: got %d %v", v, err)
	}
	var n int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil || n != 0 {
		t.Fatalf("events table: %d %v", n, err)
	}
}

func TestSeparateDatabasesAreIsolated(t *testing.T) {
	ctx := context.Background()
	a, err := db.Open(db.Config{})
	if err != nil {
		t.Fatalf("open a: %v", err)
	}
	defer a.Close()
	b, err := db.Open(db.Config{})
	if err != nil {
		t.Fatalf("open b: %v", err)
	}
	defer b.Close()
	if err := migrate.Migrate(ctx, a); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if v, err := migrate.Version(ctx, b); err != nil || v != 0 {
		t.Fatalf("second database should be empty: %d %v", v, err)
	}
}
