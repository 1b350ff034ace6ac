// Package tui is the interactive reconciliation screen: the uncleared
// postings of one account, the target balance and the distance to it.
package tui

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/plenert/reconcile"
	"github.com/plenert/reconcile/reconcile/balance"
)

const updateFailed = "Failed to update postings (file may have changed externally)"

// PickFunc asks the user for an account on a released terminal. An empty
// account with a nil error means the user gave up.
type PickFunc func(ctx context.Context, accounts []string, in io.Reader, out io.Writer) (string, error)

// Options configures the screen.
type Options struct {
	Provider reconcile.Provider
	Editor   *reconcile.Editor
	Account  string
	Target   decimal.Decimal

	// EditorCommand opens the ledger at a posting; {file} and {line} are
	// replaced in every word.
	EditorCommand string
	Pick          PickFunc

	PendingColor colorful.Color
	ClearedColor colorful.Color
	Log          zerolog.Logger
}

// FileChangedMsg tells the screen that the ledger was modified by another
// program.
type FileChangedMsg struct{}

type mode int

const (
	browsing mode = iota
	confirmingClear
	editingTarget
)

type row struct {
	date        string
	code        string
	description string
	posting     reconcile.Posting
}

type (
	loadedMsg struct {
		rows    []row
		balance decimal.Decimal
		err     error
		// line of the posting the cursor should land on, 0 to keep the index
		follow int
	}
	updatedMsg struct {
		msg    string
		err    error
		follow int
	}
	accountPickedMsg struct {
		account string
		err     error
	}
	editorDoneMsg struct{ err error }
	tickMsg       time.Time
)

// Model is the bubbletea model of the screen.
type Model struct {
	opts   Options
	keys   keyMap
	help   help.Model
	input  textinput.Model
	styles styles

	mode    mode
	account string
	target  decimal.Decimal
	balance decimal.Decimal

	rows    []row
	cursor  int
	offset  int
	reverse bool

	status   string
	loadedAt time.Time
	width    int
	height   int
}

// New returns the screen for opts.Account.
func New(opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "Target: "
	ti.CharLimit = 32

	return Model{
		opts:    opts,
		keys:    newKeyMap(),
		help:    help.New(),
		input:   ti,
		styles:  newStyles(opts.PendingColor, opts.ClearedColor),
		account: opts.Account,
		target:  opts.Target,
		height:  24,
		width:   80,
	}
}

// Account returns the account on screen.
func (m Model) Account() string {
	return m.account
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(0), tick())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// load fetches the postings and balance of the current account.
func (m Model) load(follow int) tea.Cmd {
	p, account := m.opts.Provider, m.account
	return func() tea.Msg {
		ctx := context.Background()
		entries, err := p.Uncleared(ctx, account)
		if err != nil {
			return loadedMsg{err: err}
		}
		total, err := p.ClearedPendingBalance(ctx, account)
		if err != nil {
			return loadedMsg{err: err}
		}
		return loadedMsg{rows: rowsOf(entries, account), balance: total, follow: follow}
	}
}

func rowsOf(entries []reconcile.Entry, account string) []row {
	var rows []row
	for _, e := range entries {
		for _, p := range e.Postings {
			if p.Account != account || p.Status == reconcile.Cleared {
				continue
			}
			rows = append(rows, row{
				date:        e.Date,
				code:        e.Code,
				description: e.Description,
				posting:     p,
			})
		}
	}
	return rows
}

func (m *Model) sortRows() {
	sort.SliceStable(m.rows, func(i, j int) bool {
		a, b := m.rows[i], m.rows[j]
		if a.date != b.date {
			return (a.date < b.date) != m.reverse
		}
		return (a.posting.Line < b.posting.Line) != m.reverse
	})
}

// mutate changes the status of the postings at lines from one status to
// another.
func (m Model) mutate(lines []int, from, to reconcile.Status, done string, follow int) tea.Cmd {
	e := m.opts.Editor
	return func() tea.Msg {
		if err := e.UpdatePostingsStatus(lines, from, to); err != nil {
			return updatedMsg{err: err, follow: follow}
		}
		return updatedMsg{msg: done, follow: follow}
	}
}

func (m Model) currentLine() int {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return 0
	}
	return m.rows[m.cursor].posting.Line
}

func (m Model) linesWith(s reconcile.Status) []int {
	var lines []int
	for _, r := range m.rows {
		if r.posting.Status == s {
			lines = append(lines, r.posting.Line)
		}
	}
	return lines
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.scroll()
		return m, nil

	case tickMsg:
		return m, tick()

	case loadedMsg:
		if msg.err != nil {
			m.opts.Log.Error().Err(msg.err).Str("account", m.account).Msg("load failed")
			m.status = fmt.Sprintf("Error loading transactions: %v", msg.err)
			return m, nil
		}
		follow := msg.follow
		if follow == 0 {
			follow = m.currentLine()
		}
		m.rows = msg.rows
		m.balance = msg.balance
		m.loadedAt = time.Now()
		m.sortRows()
		m.moveTo(follow)
		return m, nil

	case updatedMsg:
		if msg.err != nil {
			m.opts.Log.Warn().Err(msg.err).Str("file", m.opts.Editor.Path()).Msg("update refused")
			m.status = updateFailed
		} else {
			m.opts.Log.Info().Str("account", m.account).Msg(msg.msg)
			m.status = msg.msg
		}
		return m, m.load(msg.follow)

	case FileChangedMsg:
		invalidate(m.opts.Provider)
		m.status = "File updated externally - data refreshed"
		return m, m.load(0)

	case accountPickedMsg:
		switch {
		case msg.err == nil && msg.account == "":
			m.status = "Account selection cancelled"
		case msg.err != nil:
			m.status = fmt.Sprintf("Error switching account: %v", msg.err)
		case msg.account == m.account:
			m.status = "Already on account " + m.account
		default:
			m.account = msg.account
			m.rows = nil
			m.cursor, m.offset = 0, 0
			m.status = "Switched to account: " + m.account
			return m, m.load(0)
		}
		return m, nil

	case editorDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Failed to open editor: %v", msg.err)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case confirmingClear:
			return m.updateConfirm(msg)
		case editingTarget:
			return m.updateTarget(msg)
		}
		return m.updateBrowse(msg)
	}

	if m.mode == editingTarget {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.scroll()
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
			m.scroll()
		}

	case key.Matches(msg, m.keys.Toggle):
		if len(m.rows) == 0 {
			return m, nil
		}
		p := m.rows[m.cursor].posting
		to := reconcile.Pending
		if p.Status == reconcile.Pending {
			to = reconcile.Unset
		}
		follow := p.Line
		if m.cursor+1 < len(m.rows) {
			follow = m.rows[m.cursor+1].posting.Line
		}
		done := fmt.Sprintf("Updated posting status to '%s'", to)
		return m, m.mutate([]int{p.Line}, p.Status, to, done, follow)

	case key.Matches(msg, m.keys.ClearAll):
		if len(m.linesWith(reconcile.Pending)) == 0 {
			m.status = "No pending postings to reconcile"
			return m, nil
		}
		m.mode = confirmingClear

	case key.Matches(msg, m.keys.PendingAll):
		if lines := m.linesWith(reconcile.Unset); len(lines) > 0 {
			done := fmt.Sprintf("Set %d postings to pending", len(lines))
			return m, m.mutate(lines, reconcile.Unset, reconcile.Pending, done, m.currentLine())
		}
		if lines := m.linesWith(reconcile.Pending); len(lines) > 0 {
			done := fmt.Sprintf("Set %d postings to uncleared", len(lines))
			return m, m.mutate(lines, reconcile.Pending, reconcile.Unset, done, m.currentLine())
		}
		m.status = "No postings to toggle"

	case key.Matches(msg, m.keys.Target):
		m.mode = editingTarget
		m.input.SetValue(balance.Format(m.target))
		m.input.CursorEnd()
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Sort):
		line := m.currentLine()
		m.reverse = !m.reverse
		m.sortRows()
		m.moveTo(line)

	case key.Matches(msg, m.keys.Refresh):
		invalidate(m.opts.Provider)
		m.status = "Refreshed from file"
		return m, m.load(0)

	case key.Matches(msg, m.keys.Account):
		return m, m.pickAccount()

	case key.Matches(msg, m.keys.Open):
		if len(m.rows) == 0 {
			return m, nil
		}
		return m, m.openEditor(m.rows[m.cursor].posting.Line)

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.mode = browsing
		lines := m.linesWith(reconcile.Pending)
		done := fmt.Sprintf("Reconciled %d postings", len(lines))
		return m, m.mutate(lines, reconcile.Pending, reconcile.Cleared, done, m.currentLine())
	case key.Matches(msg, m.keys.Cancel):
		m.mode = browsing
		m.status = "Reconciliation cancelled"
	}
	return m, nil
}

func (m Model) updateTarget(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = browsing
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		v, err := balance.Parse(m.input.Value())
		if err != nil {
			m.status = fmt.Sprintf("Invalid amount: %v", err)
			return m, nil
		}
		m.mode = browsing
		m.input.Blur()
		m.target = v
		m.status = "Target balance updated to " + balance.Format(v)
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// moveTo puts the cursor on the row of the posting at line, or keeps the
// index within bounds when that posting is gone.
func (m *Model) moveTo(line int) {
	for i, r := range m.rows {
		if r.posting.Line == line {
			m.cursor = i
			m.scroll()
			return
		}
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.scroll()
}

// scroll keeps the cursor inside the visible window of the table.
func (m *Model) scroll() {
	n := m.tableHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+n {
		m.offset = m.cursor - n + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m Model) pickAccount() tea.Cmd {
	if m.opts.Pick == nil {
		return nil
	}
	c := &pickCommand{provider: m.opts.Provider, pick: m.opts.Pick}
	return tea.Exec(c, func(err error) tea.Msg {
		if err == nil {
			err = c.err
		}
		return accountPickedMsg{account: c.account, err: err}
	})
}

func (m Model) openEditor(line int) tea.Cmd {
	args := editorArgs(m.opts.EditorCommand, m.opts.Editor.Path(), line)
	if len(args) == 0 {
		return nil
	}
	cmd := exec.Command(args[0], args[1:]...)
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return editorDoneMsg{err: err}
	})
}

// editorArgs expands the editor command template.
func editorArgs(template, file string, line int) []string {
	fields := strings.Fields(template)
	r := strings.NewReplacer("{file}", file, "{line}", strconv.Itoa(line))
	for i, f := range fields {
		fields[i] = r.Replace(f)
	}
	return fields
}

func invalidate(p reconcile.Provider) {
	if i, ok := p.(interface{ Invalidate() }); ok {
		i.Invalidate()
	}
}
