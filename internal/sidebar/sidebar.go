// Package sidebar holds the static navigation taxonomy shown next to the
// note list. The controller never reads it; only the presentation layer does.
package sidebar

import (
	"fmt"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/bucket/internal/models"
)

// HomeID is the entry selected on startup.
const HomeID = "home"

// Default returns the built-in sections.
func Default() []models.Section {
	return []models.Section{
		{
			Title: "Main",
			Items: []models.NavItem{
				{ID: HomeID, Label: "All Notes", Icon: "home"},
				{ID: "favorites", Label: "Favorites", Icon: "star"},
				{ID: "archived", Label: "Archived", Icon: "archive"},
			},
		},
		{
			Title: "Tags",
			Items: []models.NavItem{
				{ID: "personal", Label: "Personal", Icon: "tag", Color: "#A855F7"},
				{ID: "work", Label: "Work", Icon: "tag", Color: "#3B82F6"},
				{ID: "ideas", Label: "Ideas", Icon: "tag", Color: "#22C55E"},
			},
		},
		{
			Title: "Other",
			Items: []models.NavItem{
				{ID: "settings", Label: "Settings", Icon: "settings"},
				{ID: "help", Label: "Help & Support", Icon: "help"},
			},
		},
	}
}

type file struct {
	Sections []models.Section `yaml:"sections"`
}

// Load reads sections from a YAML file of the form
//
//	sections:
//	  - title: Main
//	    items:
//	      - {id: home, label: All Notes, icon: home}
func Load(path string) ([]models.Section, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sidebar: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML sidebar data.
func Parse(data []byte) ([]models.Section, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("sidebar: parse: %w", err)
	}
	if err := Validate(f.Sections); err != nil {
		return nil, err
	}
	return f.Sections, nil
}

// Validate checks that there is at least one section, every item has an id
// and label, and ids are unique.
func Validate(sections []models.Section) error {
	if len(sections) == 0 {
		return fmt.Errorf("sidebar: no sections defined")
	}
	seen := make(map[string]struct{})
	for i := range sections {
		s := &sections[i]
		if err := validation.ValidateStruct(s,
			validation.Field(&s.Title, validation.Required),
			validation.Field(&s.Items, validation.Required),
		); err != nil {
			return fmt.Errorf("sidebar: section %d: %w", i, err)
		}
		for j := range s.Items {
			it := &s.Items[j]
			if err := validation.ValidateStruct(it,
				validation.Field(&it.ID, validation.Required),
				validation.Field(&it.Label, validation.Required),
			); err != nil {
				return fmt.Errorf("sidebar: %s item %d: %w", s.Title, j, err)
			}
			if _, dup := seen[it.ID]; dup {
				return fmt.Errorf("sidebar: duplicate item id %q", it.ID)
			}
			seen[it.ID] = struct{}{}
		}
	}
	return nil
}

// Items flattens sections into display order.
func Items(sections []models.Section) []models.NavItem {
	var out []models.NavItem
	for _, s := range sections {
		out = append(out, s.Items...)
	}
	return out
}
