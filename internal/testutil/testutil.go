// Package testutil provides shared test helpers: a temporary SQLite note
// store and an in-memory remote store with failure injection.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/bucket/internal/notestore"
)

// TestDB creates a temporary SQLite note store that is automatically cleaned up.
func TestDB(t *testing.T) *notestore.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "bucket-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := notestore.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
