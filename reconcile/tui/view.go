package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/hako/durafmt"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/plenert/reconcile"
	"github.com/plenert/reconcile/reconcile/balance"
)

// lines used by everything but the table rows
const chromeHeight = 7

type styles struct {
	label    lipgloss.Style
	header   lipgloss.Style
	pending  lipgloss.Style
	cursor   lipgloss.Style
	balanced lipgloss.Style
	off      lipgloss.Style
	status   lipgloss.Style
	dialog   lipgloss.Style
}

func newStyles(pending, cleared colorful.Color) styles {
	return styles{
		label:    lipgloss.NewStyle().Bold(true),
		header:   lipgloss.NewStyle().Bold(true).Underline(true),
		pending:  lipgloss.NewStyle().Background(lipgloss.Color(pending.Hex())).Foreground(lipgloss.Color("#ffffff")),
		cursor:   lipgloss.NewStyle().Reverse(true),
		balanced: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(cleared.Hex())),
		off:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ef4444")),
		status:   lipgloss.NewStyle().Faint(true),
		dialog:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	}
}

func (m Model) tableHeight() int {
	n := m.height - chromeHeight
	if m.help.ShowAll {
		n -= 3
	}
	if n < 1 {
		n = 1
	}
	return n
}

func (m Model) View() string {
	var b strings.Builder

	delta := balance.Delta(m.target, m.balance)
	deltaStyle := m.styles.off
	if delta.IsZero() {
		deltaStyle = m.styles.balanced
	}
	fmt.Fprintf(&b, "%s %-40s %s %s\n",
		m.styles.label.Render("Account:"), m.account,
		m.styles.label.Render("Target:"), balance.Format(m.target))
	fmt.Fprintf(&b, "%s %-32s %s %s\n\n",
		m.styles.label.Render("Cleared+Pending:"), balance.Format(m.balance),
		m.styles.label.Render("Delta:"), deltaStyle.Render(balance.Format(delta)))

	b.WriteString(m.viewTable())

	switch m.mode {
	case confirmingClear:
		n := len(m.linesWith(reconcile.Pending))
		b.WriteString(m.styles.dialog.Render(fmt.Sprintf(
			"Are you sure you want to reconcile all pending transactions?\n%d postings will be marked cleared. (y/n)", n)))
		b.WriteString("\n")
	case editingTarget:
		b.WriteString(m.styles.dialog.Render(m.input.View() + "\nenter to apply, esc to cancel"))
		b.WriteString("\n")
	}

	b.WriteString(m.styles.status.Render(m.statusLine()))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) statusLine() string {
	if m.loadedAt.IsZero() {
		return "loading..."
	}
	ago := time.Since(m.loadedAt).Truncate(time.Second)
	loaded := "loaded just now"
	if ago >= time.Second {
		loaded = "loaded " + durafmt.Parse(ago).LimitFirstN(1).String() + " ago"
	}
	if m.status == "" {
		return loaded
	}
	return m.status + " · " + loaded
}

func (m Model) viewTable() string {
	if len(m.rows) == 0 {
		if m.loadedAt.IsZero() {
			return "\n"
		}
		return "No uncleared postings for this account.\n"
	}

	cells := make([][]string, len(m.rows))
	for i, r := range m.rows {
		mark := "·"
		if r.posting.Status != reconcile.Unset {
			mark = string(r.posting.Status)
		}
		amount := r.posting.Amount
		if v, err := balance.Parse(amount); err == nil {
			amount = balance.FormatAligned(v)
		}
		cells[i] = []string{mark, strconv.Itoa(r.posting.Line), r.date, r.code, amount, r.description}
	}

	heading := []string{"", "Line", "Date", "Check", "Amount", "Description"}
	widths := make([]int, len(heading))
	for _, row := range append([][]string{heading}, cells...) {
		for c, s := range row {
			widths[c] = max(widths[c], lipgloss.Width(s))
		}
	}

	var b strings.Builder
	b.WriteString(m.styles.header.Render(m.fit(joinCells(heading, widths))))
	b.WriteString("\n")

	end := min(m.offset+m.tableHeight(), len(cells))
	for i := m.offset; i < end; i++ {
		line := m.fit(joinCells(cells[i], widths))
		switch {
		case i == m.cursor:
			line = m.styles.cursor.Render(line)
		case m.rows[i].posting.Status == reconcile.Pending:
			line = m.styles.pending.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// fit cuts s to the terminal width.
func (m Model) fit(s string) string {
	if m.width <= 0 {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(s)
}

func joinCells(cells []string, widths []int) string {
	padded := make([]string, len(cells))
	for i, s := range cells {
		if i == len(cells)-1 {
			padded[i] = s
			break
		}
		padded[i] = s + strings.Repeat(" ", widths[i]-lipgloss.Width(s))
	}
	return strings.Join(padded, "  ")
}
