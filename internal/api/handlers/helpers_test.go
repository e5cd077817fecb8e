// Shared fixtures for handler tests. Handlers run against a real
// in-memory SQLite database with all migrations applied.
package handlers

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/paideia-app/paideia/internal/domain/corpus"
	"github.com/paideia-app/paideia/internal/infra/sqlite"
)

// mustOpenDBWithMigrations opens a file-backed test database under
// t.TempDir() and applies every migration.
func mustOpenDBWithMigrations(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := sqlite.MigrateUp(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// mustIngestEmbedded inserts a snippet and fills in its embedding so
// hybrid search sees a ready row.
func mustIngestEmbedded(t *testing.T, ingest *corpus.IngestService, embed *corpus.EmbedderService, input corpus.CreateSnippetInput) []corpus.Snippet {
	t.Helper()
	created, err := ingest.Ingest(context.Background(), input)
	if err != nil {
		t.Fatalf("ingest %q: %v", input.Text, err)
	}
	ids := make([]string, len(created))
	for i, s := range created {
		ids[i] = s.ID
	}
	if err := embed.EmbedSnippets(context.Background(), ids); err != nil {
		t.Fatalf("embed: %v", err)
	}
	return created
}
