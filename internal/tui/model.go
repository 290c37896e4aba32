// Package tui is the interactive single-view app: sign-in form, todo input,
// sorting options, todo list and footer.
//
// Model is the controller. It is the only writer of the session and store
// state; backend calls run as tea.Cmds and their results come back as
// messages.
package tui

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/Makepad-fr/tada/internal/backend"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/session"
	"github.com/Makepad-fr/tada/internal/store"
)

type focus int

const (
	focusEmail focus = iota
	focusPassword
	focusInput
	focusList
	focusEdit
)

// chrome is the number of rows around the list when signed in.
const chrome = 13

type Model struct {
	ctx     context.Context
	session *session.Manager
	store   *store.Store
	log     *log.Logger
	pick    func(n int) int

	auth    <-chan *backend.User
	unwatch func()

	focus    focus
	email    textinput.Model
	password textinput.Model
	input    textinput.Model
	edit     textinput.Model
	editID   string
	list     list.Model
	help     help.Model

	accent int
	status string
	width  int
	height int
}

type Option func(*Model)

// WithPicker replaces the random source used to choose the accent color.
func WithPicker(pick func(n int) int) Option {
	return func(m *Model) { m.pick = pick }
}

// New builds the controller and subscribes to auth changes. Call Close when
// the program exits.
func New(ctx context.Context, mgr *session.Manager, st *store.Store, logger *log.Logger, opts ...Option) Model {
	email := textinput.New()
	email.Placeholder = "email"
	email.Prompt = "email    "
	email.CharLimit = 254

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = "password "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 128

	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "What needs to be done?"
	input.CharLimit = 200

	edit := textinput.New()
	edit.Prompt = "> "
	edit.Placeholder = "Edit todo..."
	edit.CharLimit = 200

	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowPagination(true)
	l.Styles.PaginationStyle = helpStyle
	l.DisableQuitKeybindings()

	h := help.New()
	h.Styles.ShortKey = helpStyle
	h.Styles.ShortDesc = helpStyle

	m := Model{
		ctx:      ctx,
		session:  mgr,
		store:    st,
		log:      logger,
		pick:     rand.Intn,
		email:    email,
		password: password,
		input:    input,
		edit:     edit,
		list:     l,
		help:     h,
		width:    80,
		height:   24,
	}
	for _, o := range opts {
		o(&m)
	}
	m.accent = m.pick(len(accents))
	m.auth, m.unwatch = mgr.Watch()
	m.focusOn(focusEmail)
	m.resize()
	return m
}

// Close drops the auth subscription.
func (m Model) Close() {
	if m.unwatch != nil {
		m.unwatch()
	}
}

// Run starts the program on the alternate screen and blocks until it quits.
func Run(ctx context.Context, m Model) error {
	defer m.Close()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitAuth(m.auth), textinput.Blink)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case authMsg:
		change, err := m.session.Apply(session.Changed(msg.user))
		return m, tea.Batch(m.onSession(change, err), waitAuth(m.auth))

	case sessionMsg:
		r := session.Result(msg)
		change, err := m.session.Apply(r)
		if err == nil && r.Kind == session.SignInDone {
			m.email.SetValue("")
			m.password.SetValue("")
		}
		return m, m.onSession(change, err)

	case storeMsg:
		if err := m.store.Apply(store.Result(msg)); err != nil {
			m.status = err.Error()
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if key.Matches(msg, keys.SignOut) && m.session.State() == session.SignedIn {
			m.status = ""
			return m, runSession(m.ctx, m.session.SignOut())
		}
		switch m.focus {
		case focusEmail, focusPassword:
			return m.updateSignIn(msg)
		case focusInput:
			return m.updateInput(msg)
		case focusList:
			return m.updateList(msg)
		case focusEdit:
			return m.updateEdit(msg)
		}
	}
	return m.forward(msg)
}

func (m Model) updateSignIn(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Cancel):
		return m, tea.Quit
	case key.Matches(msg, keys.Next), key.Matches(msg, keys.Prev):
		if m.focus == focusEmail {
			return m, m.focusOn(focusPassword)
		}
		return m, m.focusOn(focusEmail)
	case key.Matches(msg, keys.Submit):
		if m.focus == focusEmail && m.password.Value() == "" {
			return m, m.focusOn(focusPassword)
		}
		m.status = ""
		op, err := m.session.SignIn(m.email.Value(), m.password.Value())
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		return m, runSession(m.ctx, op)
	}
	return m.forward(msg)
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Submit):
		m.status = ""
		_, op, err := m.store.Create(m.input.Value())
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.input.SetValue("")
		m.nextAccent()
		m.refresh()
		if n := len(m.list.Items()); n > 0 {
			m.list.Select(n - 1)
		}
		return m, runStore(m.ctx, op)
	case key.Matches(msg, keys.Next), key.Matches(msg, keys.Cancel):
		return m, m.focusOn(focusList)
	}
	return m.forward(msg)
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit), key.Matches(msg, keys.Cancel):
		return m, tea.Quit
	case key.Matches(msg, keys.Add):
		return m, m.focusOn(focusInput)
	case key.Matches(msg, keys.Filter):
		m.store.SetFilter(m.store.Filter().Next())
		m.refresh()
		return m, nil
	case key.Matches(msg, keys.Toggle):
		it, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.status = ""
		op, err := m.store.ToggleStatus(it.ID)
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.refresh()
		return m, runStore(m.ctx, op)
	case key.Matches(msg, keys.Delete):
		it, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.status = ""
		op, err := m.store.Delete(it.ID)
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		return m, runStore(m.ctx, op)
	case key.Matches(msg, keys.Edit):
		it, ok := m.selected()
		if !ok {
			return m, nil
		}
		if !it.Synced() {
			m.status = store.ErrNotSynced.Error()
			return m, nil
		}
		m.editID = it.ID
		m.edit.SetValue(it.Body)
		m.edit.CursorEnd()
		return m, m.focusOn(focusEdit)
	}
	return m.forward(msg)
}

func (m Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Cancel):
		m.editID = ""
		return m, m.focusOn(focusList)
	case key.Matches(msg, keys.Submit):
		m.status = ""
		op, err := m.store.Edit(m.editID, m.edit.Value())
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.editID = ""
		m.refresh()
		return m, tea.Batch(runStore(m.ctx, op), m.focusOn(focusList))
	}
	return m.forward(msg)
}

// forward hands msg to the focused component.
func (m Model) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusEmail:
		m.email, cmd = m.email.Update(msg)
	case focusPassword:
		m.password, cmd = m.password.Update(msg)
	case focusInput:
		m.input, cmd = m.input.Update(msg)
	case focusEdit:
		m.edit, cmd = m.edit.Update(msg)
	case focusList:
		m.list, cmd = m.list.Update(msg)
	}
	return m, cmd
}

// onSession reacts to a session transition: load on sign-in, clear on
// sign-out.
func (m *Model) onSession(change session.Change, err error) tea.Cmd {
	if err != nil {
		m.status = err.Error()
	}
	if change != session.NoChange {
		m.log.Debug("session changed", "state", m.session.State(), "uid", m.session.Session().UID)
	}
	switch change {
	case session.BecameSignedIn:
		m.status = ""
		op := m.store.Load(m.session.Session().UID)
		m.refresh()
		return tea.Batch(runStore(m.ctx, op), m.focusOn(focusInput))
	case session.BecameSignedOut:
		m.store.Clear()
		m.editID = ""
		m.input.SetValue("")
		m.refresh()
		return m.focusOn(focusEmail)
	}
	return nil
}

func (m *Model) focusOn(f focus) tea.Cmd {
	m.focus = f
	m.email.Blur()
	m.password.Blur()
	m.input.Blur()
	m.edit.Blur()
	switch f {
	case focusEmail:
		return m.email.Focus()
	case focusPassword:
		return m.password.Focus()
	case focusInput:
		return m.input.Focus()
	case focusEdit:
		return m.edit.Focus()
	}
	return nil
}

func (m *Model) selected() (listItem, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	return it, ok
}

// refresh copies the displayed set into the list, keeping the cursor in
// range.
func (m *Model) refresh() {
	idx := m.list.Index()
	shown := m.store.Displayed()
	m.list.SetItems(toListItems(shown))
	if idx >= len(shown) {
		idx = len(shown) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}
}

// nextAccent draws a new accent color, never the current one.
func (m *Model) nextAccent() {
	i := m.pick(len(accents) - 1)
	if i >= m.accent {
		i++
	}
	m.accent = i
}

func (m *Model) resize() {
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	h := m.height - chrome
	if h < 3 {
		h = 3
	}
	m.list.SetSize(w, h)
	m.input.Width = w - 6
	m.edit.Width = w - 6
}

func (m Model) View() string {
	accent := accents[m.accent]

	var b strings.Builder
	b.WriteString(m.viewNavigation(accent))
	b.WriteString("\n\n")

	switch m.session.State() {
	case session.Unknown:
		b.WriteString(mutedStyle.Render("Loading..."))
	case session.SignedOut:
		b.WriteString(m.viewSignIn(accent))
	case session.SignedIn:
		b.WriteString(inputBox(m.focus == focusInput, accent).Render(m.input.View()))
		b.WriteString("\n")
		b.WriteString(m.viewSorting(accent))
		b.WriteString("\n\n")
		b.WriteString(m.viewList())
		if m.focus == focusEdit {
			b.WriteString("\n")
			b.WriteString(inputBox(true, accent).Render(titleStyle.Render("Edit todo") + "\n" + m.edit.View()))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(m.viewFooter())
	return panelStyle(accent).Render(b.String())
}

func (m Model) viewNavigation(accent lipgloss.Color) string {
	title := accentStyle(accent).Render("tada")
	if s := m.session.Session(); s.SignedIn() {
		return title + "  " + mutedStyle.Render(s.Email)
	}
	return title
}

func (m Model) viewSignIn(accent lipgloss.Color) string {
	lines := []string{
		titleStyle.Render("Sign in"),
		mutedStyle.Render("A new account is created if the email is unknown."),
		inputBox(m.focus == focusEmail, accent).Render(m.email.View()),
		inputBox(m.focus == focusPassword, accent).Render(m.password.View()),
	}
	return strings.Join(lines, "\n")
}

// viewSorting renders the filter choices with their counts.
func (m Model) viewSorting(accent lipgloss.Color) string {
	active, done := m.store.Counts()
	counts := map[model.Filter]int{
		model.FilterAll:    active + done,
		model.FilterActive: active,
		model.FilterDone:   done,
	}
	parts := make([]string, 0, len(model.Filters))
	for _, f := range model.Filters {
		label := fmt.Sprintf("%s (%d)", f, counts[f])
		if f == m.store.Filter() {
			parts = append(parts, accentStyle(accent).Underline(true).Render(label))
		} else {
			parts = append(parts, mutedStyle.Render(label))
		}
	}
	return strings.Join(parts, "  ")
}

func (m Model) viewList() string {
	switch {
	case m.store.Loading():
		return mutedStyle.Render("Loading...")
	case len(m.list.Items()) == 0:
		return mutedStyle.Render("Nothing to do.")
	}
	return m.list.View()
}

func (m Model) viewFooter() string {
	active, _ := m.store.Counts()
	var lines []string
	if m.status != "" {
		lines = append(lines, errorStyle.Render("✖ "+m.status))
	}
	if m.session.State() == session.SignedIn {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("%d item(s) left", active)))
	}
	lines = append(lines, m.help.ShortHelpView(m.helpKeys()))
	return strings.Join(lines, "\n")
}
