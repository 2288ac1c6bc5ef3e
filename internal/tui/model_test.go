package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/betbot/transferdesk/internal/session"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	snap      session.Snapshot
	accesses  []session.AccessMode
	refreshes int
	submits   int
	submitErr error
}

func (f *fakeSession) Snapshot() session.Snapshot { return f.snap }

func (f *fakeSession) Subscribe() (<-chan session.Snapshot, func()) {
	ch := make(chan session.Snapshot, 1)
	ch <- f.snap
	return ch, func() {}
}

func (f *fakeSession) RequestAccess(_ context.Context, mode session.AccessMode) error {
	f.accesses = append(f.accesses, mode)
	f.snap.Account = "0x5409ed021d9299bf6814279a6a1411a7e866a631"
	f.snap.AccountStatus = session.AccountConnected
	return nil
}

func (f *fakeSession) RefreshHistory(context.Context) error {
	f.refreshes++
	return nil
}

func (f *fakeSession) UpdateDraftField(field, value string) error {
	switch field {
	case session.FieldAddressTo:
		f.snap.Draft.AddressTo = value
	case session.FieldAmount:
		f.snap.Draft.Amount = value
	case session.FieldKeyword:
		f.snap.Draft.Keyword = value
	case session.FieldMessage:
		f.snap.Draft.Message = value
	default:
		return session.ErrUnknownField
	}
	return nil
}

func (f *fakeSession) SubmitTransfer(context.Context) error {
	f.submits++
	return f.submitErr
}

func newTestModel(f *fakeSession) model {
	ch, _ := f.Subscribe()
	return newModel(context.Background(), f, ch, nil)
}

// press feeds a key and runs the resulting command once, like the program loop.
func press(t *testing.T, m model, key tea.KeyMsg) model {
	t.Helper()
	next, cmd := m.Update(key)
	m = next.(model)
	if cmd != nil {
		if msg := cmd(); msg != nil {
			if _, quit := msg.(tea.QuitMsg); !quit {
				next, _ = m.Update(msg)
				m = next.(model)
			}
		}
	}
	return m
}

func typeText(t *testing.T, m model, s string) model {
	for _, r := range s {
		m = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestModel_TypingEditsFocusedField(t *testing.T) {
	f := &fakeSession{}
	m := newTestModel(f)

	m = typeText(t, m, "0xabc")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "1.25")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "hi")
	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	m = typeText(t, m, "there")

	assert.Equal(t, session.TransferDraft{AddressTo: "0xabc", Amount: "1.2", Message: "hi there"}, f.snap.Draft)
	assert.Equal(t, 3, m.focus)
}

func TestModel_FocusWraps(t *testing.T) {
	m := newTestModel(&fakeSession{})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, len(draftFields)-1, m.focus)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 0, m.focus)
}

func TestModel_ConnectRefreshSubmit(t *testing.T) {
	f := &fakeSession{}
	m := newTestModel(f)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	assert.Equal(t, []session.AccessMode{session.AccessInteractive}, f.accesses)
	assert.Equal(t, session.AccountConnected, m.snapshot.AccountStatus)
	assert.Equal(t, "connect done", m.status)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Equal(t, 1, f.refreshes)

	f.submitErr = errors.New("boom")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, 1, f.submits)
	assert.Contains(t, m.status, "submit failed: boom")
}

func TestModel_QuitKeys(t *testing.T) {
	m := newTestModel(&fakeSession{})
	for _, key := range []tea.KeyMsg{{Type: tea.KeyEsc}, {Type: tea.KeyCtrlC}} {
		_, cmd := m.Update(key)
		require.NotNil(t, cmd)
		_, ok := cmd().(tea.QuitMsg)
		assert.True(t, ok)
	}
}

func TestModel_SnapshotUpdates(t *testing.T) {
	f := &fakeSession{}
	m := newTestModel(f)

	next, cmd := m.Update(snapshotMsg{snapshot: session.Snapshot{Account: "0x1"}, ok: true})
	m = next.(model)
	assert.Equal(t, "0x1", m.snapshot.Account)
	assert.NotNil(t, cmd)

	_, cmd = m.Update(snapshotMsg{ok: false})
	assert.Nil(t, cmd)
}

func TestModel_View(t *testing.T) {
	f := &fakeSession{snap: session.Snapshot{
		Account:         "0x5409ed021d9299bf6814279a6a1411a7e866a631",
		AccountStatus:   session.AccountConnected,
		ProviderPresent: true,
		Transfers: []session.TransferRecord{{
			AddressFrom: "0x000000000000000000000000000000000000000A",
			AddressTo:   "0x000000000000000000000000000000000000000B",
			Amount:      decimal.NewFromInt(1),
			Timestamp:   "11/14/2023, 10:13:20 PM",
			Message:     "hello",
			Keyword:     "gift",
		}},
		Notices: []session.Notice{{Message: session.NoticeInstallWallet}},
	}}
	m := newTestModel(f)
	m.width = 160

	view := m.View()
	assert.Contains(t, view, "Latest Transactions")
	assert.Contains(t, view, "0x000...000A")
	assert.Contains(t, view, "1.0")
	assert.Contains(t, view, "hello")
	assert.Contains(t, view, session.NoticeInstallWallet)
	assert.True(t, strings.Contains(view, "Address To"))
}

func TestModel_ViewDisconnected(t *testing.T) {
	m := newTestModel(&fakeSession{})
	assert.Contains(t, m.View(), "Connect your wallet")
	assert.Contains(t, m.View(), "no wallet")
}

func TestShortAddress(t *testing.T) {
	assert.Equal(t, "0x540...a631", shortAddress("0x5409ed021d9299bf6814279a6a1411a7e866a631"))
	assert.Equal(t, "0x1", shortAddress("0x1"))
}

// promptFor starts an Approve call and delivers its prompt to the model.
func promptFor(t *testing.T, m model, p *Prompter, account common.Address) (model, <-chan bool) {
	t.Helper()
	answers := make(chan bool, 1)
	go func() {
		ok, err := p.Approve(context.Background(), account)
		assert.NoError(t, err)
		answers <- ok
	}()
	next, _ := m.Update(m.waitForPrompt()())
	m = next.(model)
	require.NotNil(t, m.pending)
	return m, answers
}

func TestModel_AccessPrompt(t *testing.T) {
	account := common.HexToAddress("0x5409ed021d9299bf6814279a6a1411a7e866a631")
	cases := []struct {
		key  tea.KeyMsg
		want bool
	}{
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")}, true},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")}, false},
		{tea.KeyMsg{Type: tea.KeyEsc}, false},
	}
	for _, tc := range cases {
		f := &fakeSession{}
		ch, _ := f.Subscribe()
		p := NewPrompter()
		m, answers := promptFor(t, newModel(context.Background(), f, ch, p), p, account)

		assert.Contains(t, m.View(), account.Hex())
		assert.Contains(t, m.View(), "[y/n]")

		// other keys do not reach the draft while the prompt is open
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
		m = next.(model)
		assert.Empty(t, f.snap.Draft.AddressTo)

		next, cmd := m.Update(tc.key)
		m = next.(model)
		assert.Nil(t, m.pending)
		assert.NotNil(t, cmd)
		select {
		case ok := <-answers:
			assert.Equal(t, tc.want, ok)
		case <-time.After(time.Second):
			t.Fatal("approver did not return")
		}
	}
}

func TestPrompter_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok, err := NewPrompter().Approve(ctx, common.Address{})
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestModel_NoPrompter(t *testing.T) {
	m := newTestModel(&fakeSession{})
	assert.Nil(t, m.waitForPrompt())
}
