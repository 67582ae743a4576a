package controller

import (
	"slices"

	"github.com/starford/bucket/internal/models"
	"github.com/starford/bucket/internal/search"
)

// Edit is the note currently in edit mode and its working text.
type Edit struct {
	ID    string
	Draft string
}

// State is an immutable snapshot of the collection and its selection state.
type State struct {
	Notes      []models.Note
	Visible    []models.Note
	Query      string
	Compose    string
	Editing    *Edit
	OpenMenuID string
}

// EditingID returns the id under edit, or "" when no note is being edited.
func (s State) EditingID() string {
	if s.Editing == nil {
		return ""
	}
	return s.Editing.ID
}

// collection is the mutable state owned by a Controller.
type collection struct {
	notes      []models.Note
	query      string
	compose    string
	editing    *Edit
	openMenuID string
}

func (c *collection) has(id string) bool {
	return slices.ContainsFunc(c.notes, func(n models.Note) bool { return n.ID == id })
}

func (c *collection) find(id string) (models.Note, bool) {
	for _, n := range c.notes {
		if n.ID == id {
			return n, true
		}
	}
	return models.Note{}, false
}

// replaceNotes installs a freshly fetched list and drops selection state that
// points at notes which no longer exist.
func (c *collection) replaceNotes(notes []models.Note) {
	c.notes = models.CloneNotes(notes)
	if c.editing != nil && !c.has(c.editing.ID) {
		c.editing = nil
	}
	if c.openMenuID != "" && !c.has(c.openMenuID) {
		c.openMenuID = ""
	}
}

// clearSelection drops edit and menu state referring to id.
func (c *collection) clearSelection(id string) {
	if c.editing != nil && c.editing.ID == id {
		c.editing = nil
	}
	if c.openMenuID == id {
		c.openMenuID = ""
	}
}

func (c *collection) snapshot() State {
	s := State{
		Notes:      models.CloneNotes(c.notes),
		Visible:    search.Visible(c.notes, c.query),
		Query:      c.query,
		Compose:    c.compose,
		OpenMenuID: c.openMenuID,
	}
	if c.editing != nil {
		e := *c.editing
		s.Editing = &e
	}
	return s
}
