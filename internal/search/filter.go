// Package search derives the visible subset of the note list from a query.
package search

import (
	"strings"

	"github.com/starford/bucket/internal/models"
)

// Visible returns the notes whose text contains query, ignoring case, in
// their original order. An empty query matches every note.
func Visible(notes []models.Note, query string) []models.Note {
	if query == "" {
		return models.CloneNotes(notes)
	}
	needle := strings.ToLower(query)
	out := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		if strings.Contains(strings.ToLower(n.Text), needle) {
			out = append(out, n)
		}
	}
	return out
}
