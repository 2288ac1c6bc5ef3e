package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/betbot/transferdesk/internal/contract"
	"github.com/betbot/transferdesk/internal/metrics"
	"github.com/betbot/transferdesk/internal/provider"
	"github.com/betbot/transferdesk/internal/units"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var sessionLog = logrus.WithField("module", "session")

// NoticeInstallWallet is recorded when an operation needs a wallet and none is injected.
const NoticeInstallWallet = "Please install a wallet provider."

const defaultMaxNotices = 20

// Ledger is the transfer contract as seen by the session.
// *contract.Transactions implements it.
type Ledger interface {
	ListTransfers(ctx context.Context) ([]contract.RawTransfer, error)
	RecordTransfer(ctx context.Context, from common.Address, req contract.RecordRequest) (common.Hash, error)
	WaitForTransaction(ctx context.Context, hash common.Hash) (*contract.Receipt, error)
}

// Options session display and notification settings
type Options struct {
	Location        *time.Location // timestamp display zone, nil = local
	TimestampLayout string         // "" = units.DefaultTimestampLayout
	Notifier        func(Notice)   // called for every user-facing notice
	MaxNotices      int            // notices kept in the snapshot
}

// Manager mediates every interaction with the wallet provider and the
// Transactions contract and owns the session state shown to presentation layers.
//
// All methods are safe for concurrent use. The state lock is never held
// across provider or contract calls.
type Manager struct {
	provider provider.Provider
	ledger   Ledger
	opts     Options

	mu               sync.Mutex
	account          string
	accountStatus    AccountStatus
	transfers        []TransferRecord
	historyStatus    HistoryStatus
	historyLoads     int    // refreshes in flight
	historySeq       uint64 // last started refresh
	historyApplied   uint64 // last refresh whose result was applied
	draft            TransferDraft
	submissionStatus SubmissionStatus
	lastSubmission   *Submission
	notices          []Notice

	subMu   sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
}

// New creates a session. p may be nil (no wallet installed); when it is not,
// ledger must be the contract bound to the same provider.
func New(p provider.Provider, ledger Ledger, opts Options) *Manager {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.TimestampLayout == "" {
		opts.TimestampLayout = units.DefaultTimestampLayout
	}
	if opts.MaxNotices <= 0 {
		opts.MaxNotices = defaultMaxNotices
	}
	return &Manager{
		provider:         p,
		ledger:           ledger,
		opts:             opts,
		accountStatus:    AccountUnknown,
		transfers:        []TransferRecord{},
		historyStatus:    HistoryIdle,
		submissionStatus: SubmissionIdle,
		subs:             make(map[int]chan Snapshot),
	}
}

func (m *Manager) hasProvider() bool {
	return m.provider != nil && m.ledger != nil
}

// Start restores a previously approved account without prompting.
func (m *Manager) Start(ctx context.Context) error {
	return m.RequestAccess(ctx, AccessSilent)
}

// RequestAccess asks the wallet for accounts. Silent mode never prompts.
// Without a provider a notice is recorded and nil is returned.
// On success the first account becomes the session account and history is refreshed.
func (m *Manager) RequestAccess(ctx context.Context, mode AccessMode) error {
	const op = "requestAccess"
	metrics.AccessRequests.Add(1)

	method := provider.MethodRequestAccounts
	if mode == AccessSilent {
		method = provider.MethodAccounts
	}

	m.mu.Lock()
	prev := m.accountStatus
	if prev == AccountFetching {
		prev = AccountUnknown
	}
	m.accountStatus = AccountFetching
	m.mu.Unlock()
	m.publish()

	defer func() {
		m.mu.Lock()
		if m.accountStatus == AccountFetching {
			m.accountStatus = prev
		}
		m.mu.Unlock()
		m.publish()
	}()

	if !m.hasProvider() {
		m.mu.Lock()
		m.accountStatus = AccountAbsent
		m.mu.Unlock()
		m.notify(NoticeInstallWallet)
		return nil
	}

	raw, err := m.provider.Request(ctx, method)
	if err != nil {
		metrics.AccessFailures.Add(1)
		sessionLog.Errorf("%s (%s) failed: %v", op, mode, err)
		return newError(KindProviderRejected, op, err)
	}
	var accounts []string
	if err := provider.DecodeResult(raw, &accounts); err != nil {
		metrics.AccessFailures.Add(1)
		sessionLog.Errorf("%s: bad accounts result: %v", op, err)
		return newError(KindRPCFailure, op, err)
	}

	if len(accounts) == 0 || accounts[0] == "" {
		m.mu.Lock()
		if m.account == "" {
			m.accountStatus = AccountAbsent
		} else {
			m.accountStatus = AccountConnected
		}
		m.mu.Unlock()
		sessionLog.Infof("%s (%s): no authorized account", op, mode)
		return nil
	}

	m.mu.Lock()
	m.account = accounts[0]
	m.accountStatus = AccountConnected
	m.mu.Unlock()
	m.publish()
	sessionLog.Infof("wallet connected: %s", accounts[0])

	if err := m.RefreshHistory(ctx); err != nil {
		sessionLog.Warnf("history refresh after connect failed: %v", err)
	}
	return nil
}

// RefreshHistory replaces the transfer list with the contract's current records.
// On failure the previous list is kept. Without a provider it does nothing.
func (m *Manager) RefreshHistory(ctx context.Context) error {
	const op = "refreshHistory"

	m.mu.Lock()
	m.historyLoads++
	m.historySeq++
	seq := m.historySeq
	m.historyStatus = HistoryLoading
	m.mu.Unlock()
	m.publish()

	final := HistoryIdle
	defer func() {
		m.mu.Lock()
		m.historyLoads--
		if m.historyLoads == 0 {
			m.historyStatus = final
		}
		m.mu.Unlock()
		m.publish()
	}()

	if !m.hasProvider() {
		sessionLog.Debug("no wallet provider, skip history refresh")
		return nil
	}

	metrics.HistoryRefreshes.Add(1)
	raw, err := m.ledger.ListTransfers(ctx)
	if err != nil {
		metrics.HistoryFailures.Add(1)
		final = HistoryFailed
		sessionLog.Errorf("%s failed: %v", op, err)
		if errors.Is(err, contract.ErrMalformedRecord) {
			return newError(KindMalformedRecord, op, err)
		}
		return newError(KindRPCFailure, op, err)
	}

	records := make([]TransferRecord, 0, len(raw))
	for _, r := range raw {
		records = append(records, m.toRecord(r))
	}

	m.mu.Lock()
	if seq > m.historyApplied {
		m.transfers = records
		m.historyApplied = seq
	}
	m.mu.Unlock()
	final = HistoryLoaded
	sessionLog.Debugf("%s: %d transfers", op, len(records))
	return nil
}

func (m *Manager) toRecord(r contract.RawTransfer) TransferRecord {
	ts := r.Timestamp.Int64()
	return TransferRecord{
		AddressFrom:     r.Sender.Hex(),
		AddressTo:       r.Receiver.Hex(),
		Timestamp:       units.FormatTimestamp(ts, m.opts.Location, m.opts.TimestampLayout),
		TimestampUnix:   ts,
		Message:         r.Message,
		Keyword:         r.Keyword,
		Amount:          units.FromBaseUnits(r.Amount),
		AmountBaseUnits: r.Amount.String(),
	}
}

// UpdateDraftField sets one draft field. Values are not validated here;
// bad values fail at submission.
func (m *Manager) UpdateDraftField(field, value string) error {
	m.mu.Lock()
	switch field {
	case FieldAddressTo:
		m.draft.AddressTo = value
	case FieldAmount:
		m.draft.Amount = value
	case FieldKeyword:
		m.draft.Keyword = value
	case FieldMessage:
		m.draft.Message = value
	default:
		m.mu.Unlock()
		return newError(KindInvalidDraft, "updateDraftField", ErrUnknownField)
	}
	m.mu.Unlock()
	m.publish()
	return nil
}

// SubmitTransfer sends the draft amount to the draft receiver, records the
// transfer in the contract and waits for the record to be mined.
//
// Only one submission runs at a time: the in-flight check and the status
// change happen under one lock before any provider request, so a concurrent
// call returns ErrSubmissionInFlight without side effects.
// On success the draft is cleared and history refreshed once; on failure the
// draft and the transfer list are left as they were.
func (m *Manager) SubmitTransfer(ctx context.Context) error {
	const op = "submitTransfer"

	if !m.hasProvider() {
		m.notify(NoticeInstallWallet)
		return nil
	}

	m.mu.Lock()
	if m.submissionStatus.InFlight() {
		m.mu.Unlock()
		metrics.SubmissionRejects.Add(1)
		sessionLog.Warn("submission already in flight, ignoring")
		return newError(KindSubmissionInFlight, op, ErrSubmissionInFlight)
	}
	if m.account == "" {
		m.mu.Unlock()
		return newError(KindNotConnected, op, ErrNotConnected)
	}
	from := m.account
	draft := m.draft
	sub := &Submission{
		ID:        uuid.NewString(),
		Status:    SubmissionSending,
		StartedAt: time.Now(),
	}
	m.submissionStatus = SubmissionSending
	m.lastSubmission = sub
	m.mu.Unlock()
	m.publish()
	metrics.Submissions.Add(1)

	log := sessionLog.WithField("submission", sub.ID)
	completed := false
	defer func() {
		if !completed {
			m.completeSubmission(sub, draft, errors.New("submission aborted"))
		}
	}()

	err := m.send(ctx, log, from, draft, sub)
	m.completeSubmission(sub, draft, err)
	completed = true
	if err != nil {
		metrics.SubmissionFailures.Add(1)
		log.Errorf("%s failed: %v", op, err)
		return err
	}

	if err := m.RefreshHistory(ctx); err != nil {
		log.Warnf("history refresh after submission failed: %v", err)
	}
	return nil
}

func (m *Manager) send(ctx context.Context, log *logrus.Entry, from string, draft TransferDraft, sub *Submission) error {
	const op = "submitTransfer"

	if !common.IsHexAddress(draft.AddressTo) {
		return newError(KindInvalidDraft, op, errors.New("invalid receiver address: "+draft.AddressTo))
	}
	amount, err := units.ParseEther(draft.Amount)
	if err != nil {
		return newError(KindInvalidDraft, op, err)
	}
	receiver := common.HexToAddress(draft.AddressTo)

	raw, err := m.provider.Request(ctx, provider.MethodSendTransaction, provider.TxRequest{
		From:  from,
		To:    draft.AddressTo,
		Gas:   provider.TransferGas,
		Value: units.HexQuantity(amount),
	})
	if err != nil {
		return newError(classify(err), op, err)
	}
	var txHash common.Hash
	if err := provider.DecodeResult(raw, &txHash); err != nil {
		return newError(KindRPCFailure, op, err)
	}
	m.mu.Lock()
	sub.TxHash = txHash.Hex()
	m.mu.Unlock()
	log.Infof("value transfer sent: %s", txHash.Hex())

	recordHash, err := m.ledger.RecordTransfer(ctx, common.HexToAddress(from), contract.RecordRequest{
		Receiver: receiver,
		Amount:   amount.ToBig(),
		Message:  draft.Message,
		Keyword:  draft.Keyword,
	})
	if err != nil {
		return newError(classify(err), op, err)
	}

	m.mu.Lock()
	sub.RecordTxHash = recordHash.Hex()
	sub.Status = SubmissionConfirming
	m.submissionStatus = SubmissionConfirming
	m.mu.Unlock()
	m.publish()
	log.Infof("Loading - %s", recordHash.Hex())

	if _, err := m.ledger.WaitForTransaction(ctx, recordHash); err != nil {
		return newError(KindRPCFailure, op, err)
	}
	log.Infof("Success - %s", recordHash.Hex())
	return nil
}

// completeSubmission ends the in-flight state. The draft is cleared only on
// success and only if nobody edited it meanwhile.
func (m *Manager) completeSubmission(sub *Submission, sent TransferDraft, err error) {
	m.mu.Lock()
	sub.FinishedAt = time.Now()
	if err != nil {
		sub.Status = SubmissionFailed
		sub.Error = err.Error()
	} else {
		sub.Status = SubmissionSucceeded
		if m.draft == sent {
			m.draft = TransferDraft{}
		}
	}
	m.submissionStatus = sub.Status
	m.mu.Unlock()
	m.publish()
}

func classify(err error) Kind {
	if provider.IsUserRejected(err) {
		return KindProviderRejected
	}
	return KindRPCFailure
}

// Snapshot returns a copy of the session state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	s := Snapshot{
		Account:          m.account,
		AccountStatus:    m.accountStatus,
		Transfers:        append([]TransferRecord(nil), m.transfers...),
		HistoryStatus:    m.historyStatus,
		Draft:            m.draft,
		SubmissionStatus: m.submissionStatus,
		Notices:          append([]Notice(nil), m.notices...),
		ProviderPresent:  m.hasProvider(),
	}
	if s.Transfers == nil {
		s.Transfers = []TransferRecord{}
	}
	if s.Notices == nil {
		s.Notices = []Notice{}
	}
	if m.lastSubmission != nil {
		sub := *m.lastSubmission
		s.LastSubmission = &sub
	}
	return s
}

// Subscribe returns a channel that receives the latest snapshot after every
// state change. Slow readers only see the newest snapshot.
func (m *Manager) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	// under subMu so a concurrent publish cannot fill the slot first
	ch <- m.Snapshot()
	m.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subs, id)
			m.subMu.Unlock()
			close(ch)
		})
	}
}

func (m *Manager) publish() {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	if len(m.subs) == 0 {
		return
	}
	snap := m.Snapshot()
	for _, ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (m *Manager) notify(message string) {
	n := Notice{Message: message, At: time.Now()}
	m.mu.Lock()
	m.notices = append(m.notices, n)
	if over := len(m.notices) - m.opts.MaxNotices; over > 0 {
		m.notices = append([]Notice(nil), m.notices[over:]...)
	}
	m.mu.Unlock()
	sessionLog.Warn(message)
	if m.opts.Notifier != nil {
		m.opts.Notifier(n)
	}
	m.publish()
}
