package tui

import "github.com/charmbracelet/lipgloss"

// Palette holds the colors a Theme is built from.
type Palette struct {
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Muted      lipgloss.Color
	Error      lipgloss.Color
	Foreground lipgloss.Color
	Background lipgloss.Color
	Surface    lipgloss.Color
}

var (
	lightPalette = Palette{
		Primary:    lipgloss.Color("#2563EB"), // Blue
		Secondary:  lipgloss.Color("#10B981"), // Green
		Muted:      lipgloss.Color("#6B7280"), // Gray
		Error:      lipgloss.Color("#DC2626"), // Red
		Foreground: lipgloss.Color("#111827"),
		Background: lipgloss.Color("#F9FAFB"),
		Surface:    lipgloss.Color("#E5E7EB"),
	}

	darkPalette = Palette{
		Primary:    lipgloss.Color("#60A5FA"),
		Secondary:  lipgloss.Color("#34D399"),
		Muted:      lipgloss.Color("#9CA3AF"),
		Error:      lipgloss.Color("#F87171"),
		Foreground: lipgloss.Color("#F3F4F6"),
		Background: lipgloss.Color("#111827"),
		Surface:    lipgloss.Color("#1F2937"),
	}
)

// Theme is the set of styles the client renders with.
type Theme struct {
	Palette Palette

	App      lipgloss.Style
	Title    lipgloss.Style
	Subtitle lipgloss.Style

	Sidebar        lipgloss.Style
	SectionTitle   lipgloss.Style
	NavItem        lipgloss.Style
	NavItemActive  lipgloss.Style
	InputField     lipgloss.Style
	InputFocused   lipgloss.Style
	Note           lipgloss.Style
	NoteSelected   lipgloss.Style
	Menu           lipgloss.Style
	MenuKey        lipgloss.Style
	StatusText     lipgloss.Style
	ErrorMsg       lipgloss.Style
	HelpKey        lipgloss.Style
	HelpDesc       lipgloss.Style
	HelpSeparator  lipgloss.Style
	Empty          lipgloss.Style
}

// NewTheme returns the dark theme when dark is set, the light one otherwise.
func NewTheme(dark bool) Theme {
	p := lightPalette
	if dark {
		p = darkPalette
	}

	return Theme{
		Palette: p,

		App: lipgloss.NewStyle().
			Padding(1, 2).
			Foreground(p.Foreground).
			Background(p.Background),

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Primary),

		Subtitle: lipgloss.NewStyle().
			Foreground(p.Muted).
			Italic(true),

		Sidebar: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(p.Surface).
			Padding(0, 2, 0, 0).
			MarginRight(2),

		SectionTitle: lipgloss.NewStyle().
			Foreground(p.Muted).
			Bold(true).
			MarginTop(1),

		NavItem: lipgloss.NewStyle().
			PaddingLeft(1),

		NavItemActive: lipgloss.NewStyle().
			PaddingLeft(1).
			Foreground(p.Primary).
			Bold(true),

		InputField: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Surface).
			Padding(0, 1),

		InputFocused: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Primary).
			Padding(0, 1),

		Note: lipgloss.NewStyle().
			PaddingLeft(2),

		NoteSelected: lipgloss.NewStyle().
			Border(lipgloss.ThickBorder(), false, false, false, true).
			BorderForeground(p.Primary).
			PaddingLeft(1).
			Bold(true),

		Menu: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Secondary).
			Padding(0, 1).
			MarginLeft(4),

		MenuKey: lipgloss.NewStyle().
			Foreground(p.Secondary).
			Bold(true),

		StatusText: lipgloss.NewStyle().
			Foreground(p.Muted),

		ErrorMsg: lipgloss.NewStyle().
			Foreground(p.Error).
			Bold(true),

		HelpKey: lipgloss.NewStyle().
			Foreground(p.Primary).
			Bold(true),

		HelpDesc: lipgloss.NewStyle().
			Foreground(p.Muted),

		HelpSeparator: lipgloss.NewStyle().
			Foreground(p.Muted).
			SetString(" • "),

		Empty: lipgloss.NewStyle().
			Foreground(p.Muted).
			Italic(true).
			PaddingLeft(2),
	}
}

// NavColor returns the accent of a sidebar item, falling back to the muted
// color when the item has none.
func (t Theme) NavColor(color string) lipgloss.Color {
	if color == "" {
		return t.Palette.Muted
	}
	return lipgloss.Color(color)
}
