package notestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/bucket/internal/apperr"
	"github.com/starford/bucket/internal/models"
)

// Store defines the persistence operations used by the note service.
type Store interface {
	List(ctx context.Context) ([]models.Note, error)
	Get(ctx context.Context, id string) (models.Note, error)
	Create(ctx context.Context, text string) (models.Note, error)
	Update(ctx context.Context, id, text string) (models.Note, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)

// List returns every note in insertion order.
func (db *DB) List(ctx context.Context) ([]models.Note, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, text FROM notes ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("notestore: list: %w", err)
	}
	defer rows.Close()

	out := []models.Note{}
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.Text); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Get returns a single note or apperr.ErrNotFound.
func (db *DB) Get(ctx context.Context, id string) (models.Note, error) {
	n := models.Note{ID: id}
	err := db.conn.QueryRowContext(ctx, `SELECT text FROM notes WHERE id = ?`, id).Scan(&n.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Note{}, apperr.ErrNotFound
	}
	if err != nil {
		return models.Note{}, fmt.Errorf("notestore: get %s: %w", id, err)
	}
	return n, nil
}

// Create stores text under a freshly assigned id.
func (db *DB) Create(ctx context.Context, text string) (models.Note, error) {
	n := models.Note{ID: uuid.NewString(), Text: text}
	now := time.Now().UTC()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO notes (id, text, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		n.ID, n.Text, now, now)
	if err != nil {
		return models.Note{}, fmt.Errorf("notestore: create: %w", err)
	}
	return n, nil
}

// Update replaces the text of id. Unknown ids yield apperr.ErrNotFound.
func (db *DB) Update(ctx context.Context, id, text string) (models.Note, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE notes SET text = ?, updated_at = ? WHERE id = ?`,
		text, time.Now().UTC(), id)
	if err != nil {
		return models.Note{}, fmt.Errorf("notestore: update %s: %w", id, err)
	}
	if err := expectOneRow(res); err != nil {
		return models.Note{}, err
	}
	return models.Note{ID: id, Text: text}, nil
}

// Delete removes id. Deleting an unknown or already deleted id yields
// apperr.ErrNotFound.
func (db *DB) Delete(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("notestore: delete %s: %w", id, err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("notestore: rows affected: %w", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
