// Package tui is the terminal client: a compose box, a searchable note list
// with per-note action menus, a section sidebar and a light/dark theme.
//
// All note state lives in a controller.Controller. The model only keeps
// presentation state (focus, cursor, theme, sidebar) and re-reads the
// controller's snapshot after every change.
package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/starford/bucket/internal/apperr"
	"github.com/starford/bucket/internal/controller"
	"github.com/starford/bucket/internal/models"
	"github.com/starford/bucket/internal/sidebar"
)

// DefaultBreakpoint is the width, in columns, above which the sidebar is
// always shown.
const DefaultBreakpoint = 100

type focusArea int

const (
	focusList focusArea = iota
	focusCompose
	focusSearch
	focusEdit
)

// SectionsMsg replaces the sidebar sections, e.g. after the sidebar file
// changed on disk.
type SectionsMsg struct {
	Sections []models.Section
}

type stateChangedMsg struct{}

type opDoneMsg struct {
	op  string
	id  string
	err error
}

// Option configures a Model.
type Option func(*Model)

// WithContext sets the context remote operations run under.
func WithContext(ctx context.Context) Option {
	return func(m *Model) {
		m.ctx = ctx
	}
}

// WithDarkMode sets the initial theme.
func WithDarkMode(dark bool) Option {
	return func(m *Model) {
		m.dark = dark
	}
}

// WithSections replaces the default sidebar sections.
func WithSections(sections []models.Section) Option {
	return func(m *Model) {
		m.sections = sections
	}
}

// WithBreakpoint sets the width above which the sidebar is always shown.
func WithBreakpoint(cols int) Option {
	return func(m *Model) {
		if cols > 0 {
			m.breakpoint = cols
		}
	}
}

// WithClipboard replaces the function used by the copy action.
func WithClipboard(fn func(string) error) Option {
	return func(m *Model) {
		m.copyText = fn
	}
}

// Model is the root bubbletea model.
type Model struct {
	ctrl     *controller.Controller
	ctx      context.Context
	copyText func(string) error

	state controller.State

	changes     chan struct{}
	unsubscribe func()

	focus   focusArea
	cursor  int
	compose textinput.Model
	search  textinput.Model
	draft   textarea.Model

	dark  bool
	theme Theme

	sections    []models.Section
	active      string
	sidebarOpen bool
	breakpoint  int

	status    string
	statusErr bool
	busy      int

	width  int
	height int
}

// New creates the client model over ctrl and subscribes to its changes.
// Call Close when the program exits.
func New(ctrl *controller.Controller, opts ...Option) *Model {
	m := &Model{
		ctrl:       ctrl,
		ctx:        context.Background(),
		copyText:   clipboard.WriteAll,
		changes:    make(chan struct{}, 1),
		sections:   sidebar.Default(),
		active:     sidebar.HomeID,
		breakpoint: DefaultBreakpoint,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.theme = NewTheme(m.dark)

	m.compose = newInput("Write a note and press enter…")
	m.search = newInput("Search notes…")
	m.draft = textarea.New()
	m.draft.ShowLineNumbers = false
	m.draft.CharLimit = 0
	m.draft.SetHeight(4)
	m.draft.Cursor.SetMode(cursor.CursorStatic)

	m.unsubscribe = ctrl.Subscribe(func(controller.State) {
		select {
		case m.changes <- struct{}{}:
		default:
		}
	})
	m.state = ctrl.Snapshot()
	m.ensureActive()
	return m
}

func newInput(placeholder string) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = 0
	in.Cursor.SetMode(cursor.CursorStatic)
	return in
}

// Close removes the controller subscription.
func (m *Model) Close() {
	m.unsubscribe()
}

// Init loads the note list and starts listening for controller changes.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.run(controller.OpFetch, "", m.ctrl.Initialize),
		m.waitForChange(),
	)
}

// waitForChange blocks until the controller reports a change. It gives up
// when the model's context ends so the goroutine does not outlive the program.
func (m *Model) waitForChange() tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case <-m.changes:
			return stateChangedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

// run executes a remote operation off the update loop.
func (m *Model) run(op, id string, fn func(context.Context) error) tea.Cmd {
	m.busy++
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, id: id, err: fn(ctx)}
	}
}

// Update handles messages for the application.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress {
			m.ctrl.NotifyOutsideInteraction()
			m.refresh()
		}
		return m, nil

	case stateChangedMsg:
		m.refresh()
		return m, m.waitForChange()

	case SectionsMsg:
		m.sections = msg.Sections
		m.ensureActive()
		return m, nil

	case opDoneMsg:
		m.finish(msg)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		var cmd tea.Cmd
		switch m.focus {
		case focusCompose:
			cmd = m.updateCompose(msg)
		case focusSearch:
			cmd = m.updateSearch(msg)
		case focusEdit:
			cmd = m.updateEdit(msg)
		default:
			cmd = m.updateList(msg)
		}
		m.refresh()
		return m, cmd
	}

	return m, nil
}

func (m *Model) updateList(msg tea.KeyMsg) tea.Cmd {
	menuID := m.state.OpenMenuID

	switch {
	case key.Matches(msg, Keys.Quit):
		return tea.Quit

	case key.Matches(msg, Keys.Cancel):
		m.ctrl.CloseMenu()

	case key.Matches(msg, Keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, Keys.Down):
		if m.cursor < len(m.state.Visible)-1 {
			m.cursor++
		}

	case menuID != "" && key.Matches(msg, Keys.Edit):
		if err := m.ctrl.BeginEdit(menuID); err != nil {
			m.setError(describe(controller.OpBeginEdit, err))
			return nil
		}
		m.startEdit()
		return nil

	case menuID != "" && key.Matches(msg, Keys.Delete):
		return m.run(controller.OpDelete, menuID, func(ctx context.Context) error {
			return m.ctrl.Remove(ctx, menuID)
		})

	case menuID != "" && key.Matches(msg, Keys.Copy):
		m.ctrl.CloseMenu()
		if n, ok := findNote(m.state.Notes, menuID); ok {
			if err := m.copyText(n.Text); err != nil {
				m.setError("Couldn't copy note: " + err.Error())
			} else {
				m.setStatus("Copied to clipboard")
			}
		}

	case key.Matches(msg, Keys.Menu):
		if id := m.selectedID(); id != "" {
			m.ctrl.ToggleMenu(id)
		}

	case key.Matches(msg, Keys.Compose):
		m.setFocus(focusCompose)

	case key.Matches(msg, Keys.Search):
		m.setFocus(focusSearch)

	case key.Matches(msg, Keys.DarkMode):
		m.dark = !m.dark
		m.theme = NewTheme(m.dark)

	case key.Matches(msg, Keys.Sidebar):
		m.sidebarOpen = !m.sidebarOpen

	case key.Matches(msg, Keys.PrevSection):
		m.stepSection(-1)

	case key.Matches(msg, Keys.NextSection):
		m.stepSection(1)

	case key.Matches(msg, Keys.Refresh):
		return m.run(controller.OpFetch, "", m.ctrl.Synchronize)
	}
	return nil
}

func (m *Model) updateCompose(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, Keys.Cancel):
		m.setFocus(focusList)
		return nil
	case key.Matches(msg, Keys.Submit):
		return m.run(controller.OpCreate, "", m.ctrl.Submit)
	}

	var cmd tea.Cmd
	m.compose, cmd = m.compose.Update(msg)
	if v := m.compose.Value(); v != m.state.Compose {
		m.ctrl.SetCompose(v)
	}
	return cmd
}

func (m *Model) updateSearch(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, Keys.Cancel) || key.Matches(msg, Keys.Submit) {
		m.setFocus(focusList)
		return nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if v := m.search.Value(); v != m.state.Query {
		m.ctrl.SetQuery(v)
		m.cursor = 0
	}
	return cmd
}

func (m *Model) updateEdit(msg tea.KeyMsg) tea.Cmd {
	id := m.state.EditingID()

	switch {
	case key.Matches(msg, Keys.Cancel):
		m.ctrl.CancelEdit()
		m.setFocus(focusList)
		return nil
	case key.Matches(msg, Keys.Save):
		return m.run(controller.OpUpdate, id, func(ctx context.Context) error {
			return m.ctrl.CommitEdit(ctx, id)
		})
	}

	var cmd tea.Cmd
	m.draft, cmd = m.draft.Update(msg)
	m.ctrl.SetDraft(m.draft.Value())
	return cmd
}

// finish applies the outcome of a remote operation.
func (m *Model) finish(msg opDoneMsg) {
	if m.busy > 0 {
		m.busy--
	}

	failedOp := msg.op
	var opErr *apperr.OpError
	if errors.As(msg.err, &opErr) {
		failedOp = opErr.Op
	}

	switch {
	case errors.Is(msg.err, apperr.ErrValidation):
		// Blank input never left the client; edit mode and compose text stay.
	case msg.err != nil && failedOp == controller.OpFetch && msg.op != controller.OpFetch:
		// The change was applied; only the refresh after it failed.
		if msg.op == controller.OpCreate {
			m.compose.SetValue("")
		}
		m.setError(doneLabel(msg.op) + ". " + describe(controller.OpFetch, msg.err))
	case msg.err != nil:
		m.setError(describe(failedOp, msg.err))
	case msg.op == controller.OpFetch:
		m.status = ""
	default:
		if msg.op == controller.OpCreate {
			m.compose.SetValue("")
		}
		m.setStatus(doneLabel(msg.op))
	}
	m.refresh()
}

// refresh re-reads the controller snapshot and reconciles presentation
// state with it.
func (m *Model) refresh() {
	m.state = m.ctrl.Snapshot()

	if n := len(m.state.Visible); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
	if m.focus == focusEdit && m.state.Editing == nil {
		m.setFocus(focusList)
	}
}

func (m *Model) startEdit() {
	m.state = m.ctrl.Snapshot()
	if m.state.Editing == nil {
		return
	}
	m.draft.SetValue(m.state.Editing.Draft)
	m.setFocus(focusEdit)
}

func (m *Model) setFocus(f focusArea) {
	m.compose.Blur()
	m.search.Blur()
	m.draft.Blur()

	m.focus = f
	switch f {
	case focusCompose:
		m.compose.Focus()
	case focusSearch:
		m.search.Focus()
	case focusEdit:
		m.draft.Focus()
	}
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(s string) {
	m.status = s
	m.statusErr = true
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	if width > m.breakpoint {
		m.sidebarOpen = false
	}

	inner := max(m.mainWidth()-6, 10)
	m.compose.Width = inner
	m.search.Width = inner
	m.draft.SetWidth(inner)
}

func (m *Model) selectedID() string {
	if m.cursor < 0 || m.cursor >= len(m.state.Visible) {
		return ""
	}
	return m.state.Visible[m.cursor].ID
}

func (m *Model) ensureActive() {
	items := sidebar.Items(m.sections)
	if slices.ContainsFunc(items, func(it models.NavItem) bool { return it.ID == m.active }) {
		return
	}
	m.active = ""
	if len(items) > 0 {
		m.active = items[0].ID
	}
}

func (m *Model) stepSection(delta int) {
	items := sidebar.Items(m.sections)
	if len(items) == 0 {
		return
	}
	i := slices.IndexFunc(items, func(it models.NavItem) bool { return it.ID == m.active })
	i = (i + delta + len(items)) % len(items)
	m.active = items[i].ID
}

func (m *Model) sidebarVisible() bool {
	return m.width > m.breakpoint || m.sidebarOpen
}

func (m *Model) mainWidth() int {
	w := m.width - 4
	if m.sidebarVisible() {
		w -= sidebarWidth
	}
	return w
}

func findNote(notes []models.Note, id string) (models.Note, bool) {
	i := slices.IndexFunc(notes, func(n models.Note) bool { return n.ID == id })
	if i < 0 {
		return models.Note{}, false
	}
	return notes[i], true
}

func describe(op string, err error) string {
	action := map[string]string{
		controller.OpFetch:     "load notes",
		controller.OpCreate:    "add note",
		controller.OpBeginEdit: "edit note",
		controller.OpUpdate:    "save note",
		controller.OpDelete:    "delete note",
	}[op]
	if action == "" {
		action = op
	}

	switch {
	case errors.Is(err, apperr.ErrNetwork):
		return fmt.Sprintf("Couldn't %s: the note store is unreachable", action)
	case errors.Is(err, apperr.ErrNotFound):
		return fmt.Sprintf("Couldn't %s: it no longer exists", action)
	case errors.Is(err, apperr.ErrRejected):
		return fmt.Sprintf("Couldn't %s: the note store rejected it", action)
	}
	return fmt.Sprintf("Couldn't %s: %v", action, err)
}

func doneLabel(op string) string {
	switch op {
	case controller.OpCreate:
		return "Note added"
	case controller.OpUpdate:
		return "Note saved"
	case controller.OpDelete:
		return "Note deleted"
	}
	return "Done"
}

const sidebarWidth = 24

// View renders the client.
func (m *Model) View() string {
	body := m.viewMain()
	if m.sidebarVisible() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.viewSidebar(), body)
	}
	return m.theme.App.Render(body)
}

func (m *Model) viewSidebar() string {
	t := m.theme
	var b strings.Builder

	b.WriteString(t.Title.Render("Bucket"))
	b.WriteString("\n")
	for _, sec := range m.sections {
		b.WriteString(t.SectionTitle.Render(strings.ToUpper(sec.Title)))
		b.WriteString("\n")
		for _, it := range sec.Items {
			marker := lipgloss.NewStyle().Foreground(t.NavColor(it.Color)).Render("•")
			style := t.NavItem
			if it.ID == m.active {
				style = t.NavItemActive
			}
			b.WriteString(style.Render(marker + " " + it.Label))
			b.WriteString("\n")
		}
	}
	return t.Sidebar.Width(sidebarWidth - 4).Render(b.String())
}

func (m *Model) viewMain() string {
	t := m.theme
	var b strings.Builder

	header := t.Title.Render("Notes") + "  " + t.Subtitle.Render(m.countLabel())
	if m.busy > 0 {
		header += "  " + t.StatusText.Render("syncing…")
	}
	b.WriteString(header)
	b.WriteString("\n")

	b.WriteString(m.inputBox(m.search.View(), m.focus == focusSearch))
	b.WriteString("\n")
	b.WriteString(m.inputBox(m.compose.View(), m.focus == focusCompose))
	b.WriteString("\n\n")

	b.WriteString(m.viewNotes())

	if m.status != "" {
		b.WriteString("\n")
		if m.statusErr {
			b.WriteString(t.ErrorMsg.Render(m.status))
		} else {
			b.WriteString(t.StatusText.Render(m.status))
		}
	}
	b.WriteString("\n\n")
	b.WriteString(m.viewHelp())
	return b.String()
}

func (m *Model) countLabel() string {
	total, shown := len(m.state.Notes), len(m.state.Visible)
	if m.state.Query != "" {
		return fmt.Sprintf("%d of %d", shown, total)
	}
	if total == 1 {
		return "1 note"
	}
	return fmt.Sprintf("%d notes", total)
}

func (m *Model) inputBox(content string, focused bool) string {
	if focused {
		return m.theme.InputFocused.Render(content)
	}
	return m.theme.InputField.Render(content)
}

func (m *Model) viewNotes() string {
	t := m.theme

	if len(m.state.Visible) == 0 {
		if len(m.state.Notes) == 0 {
			return t.Empty.Render("No notes yet. Press n to write one.")
		}
		return t.Empty.Render(fmt.Sprintf("No notes match %q.", m.state.Query))
	}

	editingID := m.state.EditingID()
	var b strings.Builder
	for i, n := range m.state.Visible {
		switch {
		case n.ID == editingID:
			b.WriteString(t.InputFocused.Render(m.draft.View()))
			b.WriteString("\n")
			b.WriteString(t.StatusText.Render("  ctrl+s save • esc cancel"))
		case i == m.cursor && m.focus == focusList:
			b.WriteString(t.NoteSelected.Render(n.Text))
		default:
			b.WriteString(t.Note.Render(n.Text))
		}
		b.WriteString("\n")

		if n.ID == m.state.OpenMenuID {
			b.WriteString(t.Menu.Render(
				t.MenuKey.Render("e") + " edit  " +
					t.MenuKey.Render("d") + " delete  " +
					t.MenuKey.Render("y") + " copy"))
			b.WriteString("\n")
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (m *Model) viewHelp() string {
	var bindings []key.Binding
	switch m.focus {
	case focusCompose:
		bindings = []key.Binding{Keys.Submit, Keys.Cancel}
	case focusSearch:
		bindings = []key.Binding{Keys.Cancel}
	case focusEdit:
		bindings = []key.Binding{Keys.Save, Keys.Cancel}
	default:
		bindings = []key.Binding{Keys.Compose, Keys.Search, Keys.Menu, Keys.DarkMode, Keys.Sidebar, Keys.Refresh, Keys.Quit}
	}

	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, m.theme.HelpKey.Render(h.Key)+" "+m.theme.HelpDesc.Render(h.Desc))
	}
	return strings.Join(parts, m.theme.HelpSeparator.String())
}
