// Package models defines the domain types for Bucket.
package models

// Note is a single user-authored text entry. The id is assigned by the
// remote store and never generated by the client.
type Note struct {
	ID   string `json:"id"`
	Text string `json:"item"`
}

// Section is a titled group of sidebar entries.
type Section struct {
	Title string    `json:"title" yaml:"title"`
	Items []NavItem `json:"items" yaml:"items"`
}

// NavItem is one sidebar entry. Icon is an opaque reference for the
// presentation layer; Color is optional.
type NavItem struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
	Icon  string `json:"icon" yaml:"icon"`
	Color string `json:"color,omitempty" yaml:"color,omitempty"`
}

// CloneNotes returns a copy of notes that never aliases the input.
func CloneNotes(notes []Note) []Note {
	out := make([]Note, len(notes))
	copy(out, notes)
	return out
}
