package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/betbot/transferdesk/internal/session"
	"github.com/betbot/transferdesk/internal/units"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
)

var modelLog = logrus.WithField("module", "tui.model")

// Session is the part of *session.Manager the terminal UI drives.
type Session interface {
	Snapshot() session.Snapshot
	Subscribe() (<-chan session.Snapshot, func())
	RequestAccess(ctx context.Context, mode session.AccessMode) error
	RefreshHistory(ctx context.Context) error
	UpdateDraftField(field, value string) error
	SubmitTransfer(ctx context.Context) error
}

var draftFields = []struct {
	name  string
	label string
}{
	{session.FieldAddressTo, "Address To"},
	{session.FieldAmount, "Amount (ETH)"},
	{session.FieldKeyword, "Keyword (Gif)"},
	{session.FieldMessage, "Enter Message"},
}

type snapshotMsg struct {
	snapshot session.Snapshot
	ok       bool
}

type actionDoneMsg struct {
	action string
	err    error
}

type model struct {
	ctx      context.Context
	session  Session
	updates  <-chan session.Snapshot
	prompts  <-chan approvalRequest
	pending  *approvalRequest
	snapshot session.Snapshot
	focus    int
	status   string
	width    int
	height   int
}

// prompter may be nil, then access requests are never shown.
func newModel(ctx context.Context, sess Session, updates <-chan session.Snapshot, prompter *Prompter) model {
	m := model{
		ctx:      ctx,
		session:  sess,
		updates:  updates,
		snapshot: sess.Snapshot(),
	}
	if prompter != nil {
		m.prompts = prompter.requests
	}
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.waitForUpdate(), m.waitForPrompt())
}

func (m model) waitForPrompt() tea.Cmd {
	ch := m.prompts
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		return approvalMsg{req: <-ch}
	}
}

// answer replies to the pending access prompt and waits for the next one.
func (m model) answer(ok bool) (model, tea.Cmd) {
	if m.pending == nil {
		return m, nil
	}
	m.pending.reply <- ok
	m.pending = nil
	if ok {
		m.status = "wallet access granted"
	} else {
		m.status = "wallet access declined"
	}
	return m, m.waitForPrompt()
}

func (m model) waitForUpdate() tea.Cmd {
	ch := m.updates
	return func() tea.Msg {
		snap, ok := <-ch
		return snapshotMsg{snapshot: snap, ok: ok}
	}
}

// run executes a session operation off the UI goroutine.
func (m model) run(action string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{action: action, err: fn(ctx)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case snapshotMsg:
		if !msg.ok {
			return m, nil
		}
		m.snapshot = msg.snapshot
		return m, m.waitForUpdate()
	case approvalMsg:
		req := msg.req
		m.pending = &req
		return m, nil
	case actionDoneMsg:
		if msg.err != nil {
			modelLog.Warnf("%s: %v", msg.action, msg.err)
			m.status = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
		} else {
			m.status = msg.action + " done"
		}
		m.snapshot = m.session.Snapshot()
		return m, nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.pending != nil {
		switch msg.String() {
		case "y", "Y":
			return m.answer(true)
		case "n", "N", "esc":
			return m.answer(false)
		case "ctrl+c":
			m, _ = m.answer(false)
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "ctrl+o":
		m.status = "connecting wallet..."
		return m, m.run("connect", func(ctx context.Context) error {
			return m.session.RequestAccess(ctx, session.AccessInteractive)
		})
	case "ctrl+r":
		m.status = "refreshing history..."
		return m, m.run("refresh", m.session.RefreshHistory)
	case "tab", "down":
		m.focus = (m.focus + 1) % len(draftFields)
		return m, nil
	case "shift+tab", "up":
		m.focus = (m.focus + len(draftFields) - 1) % len(draftFields)
		return m, nil
	case "enter":
		m.status = "sending..."
		return m, m.run("submit", m.session.SubmitTransfer)
	case "backspace":
		value := []rune(m.fieldValue(m.focus))
		if len(value) == 0 {
			return m, nil
		}
		m.setField(string(value[:len(value)-1]))
		return m, nil
	}

	switch msg.Type {
	case tea.KeyRunes:
		m.setField(m.fieldValue(m.focus) + string(msg.Runes))
	case tea.KeySpace:
		m.setField(m.fieldValue(m.focus) + " ")
	}
	return m, nil
}

func (m *model) setField(value string) {
	if err := m.session.UpdateDraftField(draftFields[m.focus].name, value); err != nil {
		m.status = err.Error()
		return
	}
	m.snapshot = m.session.Snapshot()
}

func (m model) fieldValue(i int) string {
	d := m.snapshot.Draft
	switch draftFields[i].name {
	case session.FieldAddressTo:
		return d.AddressTo
	case session.FieldAmount:
		return d.Amount
	case session.FieldKeyword:
		return d.Keyword
	default:
		return d.Message
	}
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Padding(0, 1)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("39")).Padding(0, 1)
	focusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

func (m model) View() string {
	width := m.width - 4
	if width < 70 {
		width = 70
	}
	sections := []string{m.renderHeader()}
	if m.pending != nil {
		prompt := fmt.Sprintf("Allow this session to use account %s? [y/n]", m.pending.account.Hex())
		sections = append(sections, boxStyle.Width(width).BorderForeground(lipgloss.Color("214")).Render(warnStyle.Render(prompt)))
	}
	sections = append(sections,
		boxStyle.Width(width).Render(m.renderForm()),
		boxStyle.Width(width).Render(m.renderTransfers(width-4)),
		m.renderFooter(),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m model) renderHeader() string {
	snap := m.snapshot
	account := snap.Account
	if account == "" {
		account = "not connected"
	}
	line := fmt.Sprintf("Transfers | Account: %s | %s | Time: %s",
		account, accountStatus(snap), time.Now().Format("15:04:05"))
	return titleStyle.Render(line)
}

func accountStatus(snap session.Snapshot) string {
	switch {
	case !snap.ProviderPresent:
		return warnStyle.Render("no wallet")
	case snap.AccountStatus == session.AccountConnected:
		return okStyle.Render("connected")
	case snap.AccountStatus == session.AccountFetching:
		return warnStyle.Render("connecting")
	}
	return dimStyle.Render(string(snap.AccountStatus))
}

func (m model) renderForm() string {
	var lines []string
	for i, f := range draftFields {
		label := fmt.Sprintf("%-14s", f.label)
		value := m.fieldValue(i)
		if i == m.focus {
			lines = append(lines, focusStyle.Render("> "+label)+" "+value+"_")
		} else {
			lines = append(lines, "  "+label+" "+value)
		}
	}
	lines = append(lines, "", m.renderSubmission())
	return strings.Join(lines, "\n")
}

func (m model) renderSubmission() string {
	snap := m.snapshot
	switch snap.SubmissionStatus {
	case session.SubmissionSending:
		return warnStyle.Render("Sending transfer...")
	case session.SubmissionConfirming:
		hash := ""
		if snap.LastSubmission != nil {
			hash = snap.LastSubmission.RecordTxHash
		}
		return warnStyle.Render("Waiting for confirmation " + hash)
	case session.SubmissionSucceeded:
		return okStyle.Render("Transfer recorded")
	case session.SubmissionFailed:
		msg := "Transfer failed"
		if snap.LastSubmission != nil && snap.LastSubmission.Error != "" {
			msg += ": " + snap.LastSubmission.Error
		}
		return errorStyle.Render(msg)
	}
	return dimStyle.Render("[enter] Send now")
}

func (m model) renderTransfers(width int) string {
	snap := m.snapshot
	title := "Latest Transactions"
	switch snap.HistoryStatus {
	case session.HistoryLoading:
		title += dimStyle.Render(" (loading)")
	case session.HistoryFailed:
		title += errorStyle.Render(" (refresh failed)")
	}
	if snap.Account == "" {
		return title + "\n" + dimStyle.Render("Connect your wallet to see the latest transactions")
	}
	if len(snap.Transfers) == 0 {
		return title + "\n" + dimStyle.Render("No transactions yet")
	}

	lines := []string{title, headerStyle.Render(fmt.Sprintf("%-13s %-13s %-12s %-22s %s", "From", "To", "Amount", "Time", "Message"))}
	// newest first
	for i := len(snap.Transfers) - 1; i >= 0; i-- {
		t := snap.Transfers[i]
		row := fmt.Sprintf("%-13s %-13s %-12s %-22s %s",
			shortAddress(t.AddressFrom),
			shortAddress(t.AddressTo),
			units.FormatEther(t.Amount),
			t.Timestamp,
			t.Message)
		if t.Keyword != "" {
			row += " #" + t.Keyword
		}
		if width > 3 {
			row = truncate(row, width)
		}
		lines = append(lines, row)
	}
	return strings.Join(lines, "\n")
}

func (m model) renderFooter() string {
	var parts []string
	if m.status != "" {
		parts = append(parts, m.status)
	}
	if n := len(m.snapshot.Notices); n > 0 {
		parts = append(parts, warnStyle.Render(m.snapshot.Notices[n-1].Message))
	}
	parts = append(parts, dimStyle.Render("ctrl+o connect | ctrl+r refresh | tab next field | enter send | esc quit"))
	return strings.Join(parts, "\n")
}

// shortAddress renders 0x1234...abcd.
func shortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:5] + "..." + addr[len(addr)-4:]
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}
