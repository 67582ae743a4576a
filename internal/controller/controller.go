// Package controller keeps a local note collection consistent with the remote
// store and owns the transient selection state of the client.
//
// Every successful mutation is followed by a full re-fetch (Synchronize), so
// after each settled operation the local list equals the server's. Remote
// calls are made without holding the state lock: two operations may be in
// flight at once and the last synchronization to finish wins.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/starford/bucket/internal/apperr"
	"github.com/starford/bucket/internal/models"
)

// Operation names used in errors and logs.
const (
	OpFetch     = "fetch"
	OpCreate    = "create"
	OpBeginEdit = "begin_edit"
	OpUpdate    = "update"
	OpDelete    = "delete"
)

// RemoteStore is the note store the controller mirrors.
// Update and Delete must return an error wrapping apperr.ErrNotFound for
// unknown ids.
type RemoteStore interface {
	FetchAll(ctx context.Context) ([]models.Note, error)
	Create(ctx context.Context, text string) error
	Update(ctx context.Context, id, text string) error
	Delete(ctx context.Context, id string) error
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used to report failed operations.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithErrorHandler registers fn to receive every failed remote operation.
func WithErrorHandler(fn func(error)) Option {
	return func(c *Controller) {
		c.onError = fn
	}
}

// Controller mediates every change to the note collection.
type Controller struct {
	store   RemoteStore
	logger  *slog.Logger
	onError func(error)

	mu           sync.Mutex
	coll         collection
	listeners    map[int]func(State)
	nextListener int
}

// New creates a controller over store. The collection starts empty; call
// Initialize to load it.
func New(store RemoteStore, opts ...Option) *Controller {
	c := &Controller{
		store:     store,
		logger:    slog.Default(),
		listeners: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the current state together with the visible subset.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.coll.snapshot()
}

// Subscribe registers fn to be called with a new snapshot after every state
// change. The returned function removes the listener.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// update applies fn under the lock and notifies listeners afterwards.
func (c *Controller) update(fn func(*collection)) {
	c.mu.Lock()
	fn(&c.coll)
	snap := c.coll.snapshot()
	listeners := make([]func(State), 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

// fail wraps err with operation context, logs it, and hands it to the error
// handler.
func (c *Controller) fail(op, id string, err error) error {
	var opErr *apperr.OpError
	if !errors.As(err, &opErr) {
		opErr = &apperr.OpError{Op: op, ID: id, Err: err}
	}
	attrs := []any{
		slog.String("op", op),
		slog.String("kind", apperr.Kind(err)),
		slog.String("error", err.Error()),
	}
	if id != "" {
		attrs = append(attrs, slog.String("id", id))
	}
	c.logger.Error("note operation failed", attrs...)
	if c.onError != nil {
		c.onError(opErr)
	}
	return opErr
}

// Initialize loads the full note list from the store. On failure the
// previous list is kept.
func (c *Controller) Initialize(ctx context.Context) error {
	return c.Synchronize(ctx)
}

// Synchronize re-fetches the collection and replaces local notes with the
// server's. Edit and menu state referring to vanished notes is cleared.
func (c *Controller) Synchronize(ctx context.Context) error {
	notes, err := c.store.FetchAll(ctx)
	if err != nil {
		return c.fail(OpFetch, "", err)
	}
	c.update(func(s *collection) {
		s.replaceNotes(notes)
	})
	c.logger.Debug("notes synchronized", slog.Int("count", len(notes)))
	return nil
}

// SetCompose replaces the text of the compose input.
func (c *Controller) SetCompose(text string) {
	c.update(func(s *collection) {
		s.compose = text
	})
}

// Submit creates a note from the compose input.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	text := c.coll.compose
	c.mu.Unlock()
	return c.Create(ctx, text)
}

// Create sends the trimmed text to the store and re-synchronizes. Blank text
// is rejected before any request is made. A failed create leaves the compose
// input untouched.
func (c *Controller) Create(ctx context.Context, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return &apperr.OpError{Op: OpCreate, Err: fmt.Errorf("%w: note text is empty", apperr.ErrValidation)}
	}
	if err := c.store.Create(ctx, trimmed); err != nil {
		return c.fail(OpCreate, "", err)
	}
	c.update(func(s *collection) {
		s.compose = ""
	})
	return c.Synchronize(ctx)
}

// BeginEdit puts note id into edit mode with its current text as the draft.
func (c *Controller) BeginEdit(id string) error {
	var err error
	c.update(func(s *collection) {
		n, ok := s.find(id)
		if !ok {
			err = &apperr.OpError{Op: OpBeginEdit, ID: id, Err: apperr.ErrNotFound}
			return
		}
		s.editing = &Edit{ID: id, Draft: n.Text}
		if s.openMenuID == id {
			s.openMenuID = ""
		}
	})
	return err
}

// SetDraft replaces the working text of the note under edit. It does nothing
// when no note is being edited.
func (c *Controller) SetDraft(text string) {
	c.update(func(s *collection) {
		if s.editing != nil {
			s.editing.Draft = text
		}
	})
}

// CancelEdit leaves edit mode without contacting the store.
func (c *Controller) CancelEdit() {
	c.update(func(s *collection) {
		s.editing = nil
	})
}

// CommitEdit sends the trimmed draft for id to the store. A blank draft keeps
// edit mode open and sends nothing; a failed update keeps the draft so the
// user can retry.
func (c *Controller) CommitEdit(ctx context.Context, id string) error {
	c.mu.Lock()
	editing := c.coll.editing
	var draft string
	if editing != nil {
		draft = editing.Draft
	}
	c.mu.Unlock()

	if editing == nil || editing.ID != id {
		return &apperr.OpError{Op: OpUpdate, ID: id, Err: fmt.Errorf("%w: note is not being edited", apperr.ErrValidation)}
	}
	trimmed := strings.TrimSpace(draft)
	if trimmed == "" {
		return &apperr.OpError{Op: OpUpdate, ID: id, Err: fmt.Errorf("%w: note text is empty", apperr.ErrValidation)}
	}

	if err := c.store.Update(ctx, id, trimmed); err != nil {
		return c.staleOrFail(ctx, OpUpdate, id, err)
	}
	c.update(func(s *collection) {
		if s.editing != nil && s.editing.ID == id {
			s.editing = nil
		}
	})
	return c.Synchronize(ctx)
}

// Remove deletes id from the store and re-synchronizes. A failed delete
// leaves the note in place since nothing was removed locally. When the
// delete succeeds but the re-fetch does not, the returned error carries
// OpFetch, not OpDelete.
func (c *Controller) Remove(ctx context.Context, id string) error {
	c.update(func(s *collection) {
		if s.openMenuID == id {
			s.openMenuID = ""
		}
	})
	if err := c.store.Delete(ctx, id); err != nil {
		return c.staleOrFail(ctx, OpDelete, id, err)
	}
	err := c.Synchronize(ctx)
	c.update(func(s *collection) {
		s.clearSelection(id)
	})
	return err
}

// staleOrFail reports err. When the store no longer knows id, selection
// state for it is dropped and the list is re-fetched.
func (c *Controller) staleOrFail(ctx context.Context, op, id string, err error) error {
	reported := c.fail(op, id, err)
	if !errors.Is(err, apperr.ErrNotFound) {
		return reported
	}
	c.update(func(s *collection) {
		s.clearSelection(id)
	})
	_ = c.Synchronize(ctx)
	return reported
}

// ToggleMenu opens the action menu of id, or closes it if it is already
// open. At most one menu is open at a time.
func (c *Controller) ToggleMenu(id string) {
	c.update(func(s *collection) {
		if s.openMenuID == id {
			s.openMenuID = ""
		} else {
			s.openMenuID = id
		}
	})
}

// CloseMenu closes any open action menu.
func (c *Controller) CloseMenu() {
	c.update(func(s *collection) {
		s.openMenuID = ""
	})
}

// NotifyOutsideInteraction tells the controller the user interacted outside
// the note actions region. Any open menu is dismissed.
func (c *Controller) NotifyOutsideInteraction() {
	c.CloseMenu()
}

// SetQuery replaces the search query. The visible subset is re-derived on
// the next snapshot.
func (c *Controller) SetQuery(query string) {
	c.update(func(s *collection) {
		s.query = query
	})
}
