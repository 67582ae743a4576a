// Package noteservice implements the remote store operations on top of the
// SQLite note store: input validation and change notification.
package noteservice

import (
	"context"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/bucket/internal/apperr"
	"github.com/starford/bucket/internal/models"
	"github.com/starford/bucket/internal/notestore"
)

// MaxTextLength bounds the size of a single note in runes.
const MaxTextLength = 100_000

// Change kinds passed to an EventCallback.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// EventCallback is called after a successful mutation.
type EventCallback func(kind, id string)

// Service coordinates validation, storage, and change events.
type Service struct {
	store    notestore.Store
	onChange EventCallback
}

// NewService creates a new note service. onChange may be nil.
func NewService(store notestore.Store, onChange EventCallback) *Service {
	return &Service{store: store, onChange: onChange}
}

// ListNotes returns every note in store order.
func (s *Service) ListNotes(ctx context.Context) ([]models.Note, error) {
	return s.store.List(ctx)
}

// CreateNote trims and validates text, then stores it under a new id.
func (s *Service) CreateNote(ctx context.Context, text string) (models.Note, error) {
	text, err := normalize(text)
	if err != nil {
		return models.Note{}, err
	}
	n, err := s.store.Create(ctx, text)
	if err != nil {
		return models.Note{}, err
	}
	s.emit(KindCreated, n.ID)
	return n, nil
}

// UpdateNote trims and validates text, then replaces the note's text.
func (s *Service) UpdateNote(ctx context.Context, id, text string) (models.Note, error) {
	text, err := normalize(text)
	if err != nil {
		return models.Note{}, err
	}
	n, err := s.store.Update(ctx, id, text)
	if err != nil {
		return models.Note{}, err
	}
	s.emit(KindUpdated, id)
	return n, nil
}

// DeleteNote removes a note.
func (s *Service) DeleteNote(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.emit(KindDeleted, id)
	return nil
}

func (s *Service) emit(kind, id string) {
	if s.onChange != nil {
		s.onChange(kind, id)
	}
}

func normalize(text string) (string, error) {
	text = strings.TrimSpace(text)
	err := validation.Validate(text,
		validation.Required.Error("note text is required"),
		validation.RuneLength(1, MaxTextLength),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	return text, nil
}
