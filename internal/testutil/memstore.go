package testutil

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/starford/bucket/internal/apperr"
	"github.com/starford/bucket/internal/models"
)

// Operation names accepted by FailNext and CallCount.
const (
	OpFetch  = "fetch"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// MemStore is an in-memory remote store. Ids are "a1", "a2", ... in
// creation order.
type MemStore struct {
	mu    sync.Mutex
	notes []models.Note
	seq   int
	fail  map[string]error
	calls map[string]int
	hooks map[string]func()
}

// NewMemStore returns a store pre-populated with notes.
func NewMemStore(notes ...models.Note) *MemStore {
	return &MemStore{
		notes: models.CloneNotes(notes),
		fail:  make(map[string]error),
		calls: make(map[string]int),
		hooks: make(map[string]func()),
	}
}

// FailNext makes the next call of op return err.
func (m *MemStore) FailNext(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[op] = err
}

// OnCall runs fn at the start of every call of op, before the lock is taken.
func (m *MemStore) OnCall(op string, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks[op] = fn
}

// CallCount returns how many times op was invoked.
func (m *MemStore) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Notes returns a copy of the stored notes.
func (m *MemStore) Notes() []models.Note {
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.CloneNotes(m.notes)
}

// Drop removes id directly, as another client would.
func (m *MemStore) Drop(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = slices.DeleteFunc(m.notes, func(n models.Note) bool { return n.ID == id })
}

func (m *MemStore) begin(op string) error {
	m.mu.Lock()
	hook := m.hooks[op]
	m.mu.Unlock()
	if hook != nil {
		hook()
	}

	m.mu.Lock()
	m.calls[op]++
	err := m.fail[op]
	delete(m.fail, op)
	m.mu.Unlock()
	return err
}

func (m *MemStore) FetchAll(_ context.Context) ([]models.Note, error) {
	if err := m.begin(OpFetch); err != nil {
		return nil, err
	}
	return m.Notes(), nil
}

func (m *MemStore) Create(_ context.Context, text string) error {
	if err := m.begin(OpCreate); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.notes = append(m.notes, models.Note{ID: fmt.Sprintf("a%d", m.seq), Text: text})
	return nil
}

func (m *MemStore) Update(_ context.Context, id, text string) error {
	if err := m.begin(OpUpdate); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.notes, func(n models.Note) bool { return n.ID == id })
	if i < 0 {
		return fmt.Errorf("memstore: update %s: %w", id, apperr.ErrNotFound)
	}
	m.notes[i].Text = text
	return nil
}

func (m *MemStore) Delete(_ context.Context, id string) error {
	if err := m.begin(OpDelete); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.notes, func(n models.Note) bool { return n.ID == id })
	if i < 0 {
		return fmt.Errorf("memstore: delete %s: %w", id, apperr.ErrNotFound)
	}
	m.notes = slices.Delete(m.notes, i, i+1)
	return nil
}
