package api

import "github.com/starford/bucket/internal/models"

// NoteRequest is the request body for creating or editing a note.
type NoteRequest struct {
	Item string `json:"item" example:"Buy milk" validate:"required"`
}

// Note is the wire representation of a note (aliased from the domain layer).
type Note = models.Note
