package migrate

import (
	"testing"

	"taskhub/internal/db"
)

func TestMigrateIsIdempotent(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	if err := Migrate(conn); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := Migrate(conn); err != nil {
		t.Fatalf("second run: %v", err)
	}

	var rows, version int
	if err := conn.QueryRow(`SELECT COUNT(*), MAX(version) FROM schema_version`).Scan(&rows, &version); err != nil {
		t.Fatalf("read schema_version: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected a single schema_version row, got %d", rows)
	}
	if version != 1 {
		t.Fatalf("expected schema version 1, got %d", version)
	}

	// The schema is still usable after the second run.
	if _, err := conn.Exec(`SELECT COUNT(*) FROM users`); err != nil {
		t.Fatalf("query users after re-run: %v", err)
	}
}
