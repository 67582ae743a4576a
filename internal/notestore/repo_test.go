package notestore

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/starford/bucket/internal/apperr"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "bucket-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&count); err != nil {
		t.Fatalf("notes table missing: %v", err)
	}
}

func TestCreateAssignsID(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	a, err := db.Create(ctx, "first")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	b, _ := db.Create(ctx, "second")
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("ids not unique: %q %q", a.ID, b.ID)
	}
}

func TestListKeepsInsertionOrder(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	for _, text := range []string{"c", "a", "b"} {
		if _, err := db.Create(ctx, text); err != nil {
			t.Fatal(err)
		}
	}

	notes, err := db.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(notes) != 3 || notes[0].Text != "c" || notes[1].Text != "a" || notes[2].Text != "b" {
		t.Errorf("notes = %+v, want c,a,b", notes)
	}
}

func TestListEmptyIsNotNil(t *testing.T) {
	db := testDB(t)
	notes, err := db.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if notes == nil {
		t.Error("List on empty db should return an empty slice")
	}
}

func TestUpdate(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	n, _ := db.Create(ctx, "old")

	if _, err := db.Update(ctx, n.ID, "new"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := db.Get(ctx, n.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Text != "new" {
		t.Errorf("text = %q, want new", got.Text)
	}
}

func TestUpdateUnknown(t *testing.T) {
	db := testDB(t)
	_, err := db.Update(context.Background(), "ghost", "x")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteTwice(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	n, _ := db.Create(ctx, "bye")

	if err := db.Delete(ctx, n.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := db.Delete(ctx, n.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
	if _, err := db.Get(ctx, n.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get after delete err = %v, want ErrNotFound", err)
	}
}
