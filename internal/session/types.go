package session

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccessMode account discovery mode
type AccessMode string

const (
	// AccessSilent only returns accounts the wallet already approved (eth_accounts).
	AccessSilent AccessMode = "silent"
	// AccessInteractive prompts the wallet user (eth_requestAccounts).
	AccessInteractive AccessMode = "interactive"
)

// AccountStatus wallet account connection state
type AccountStatus string

const (
	AccountUnknown   AccountStatus = "unknown"
	AccountFetching  AccountStatus = "fetching"
	AccountConnected AccountStatus = "connected"
	AccountAbsent    AccountStatus = "absent"
)

// SubmissionStatus transfer submission state
type SubmissionStatus string

const (
	SubmissionIdle       SubmissionStatus = "idle"
	SubmissionSending    SubmissionStatus = "sending"
	SubmissionConfirming SubmissionStatus = "confirming"
	SubmissionSucceeded  SubmissionStatus = "succeeded"
	SubmissionFailed     SubmissionStatus = "failed"
)

// InFlight reports whether a submission is between start and completion.
func (s SubmissionStatus) InFlight() bool {
	return s == SubmissionSending || s == SubmissionConfirming
}

// HistoryStatus transfer history loading state
type HistoryStatus string

const (
	HistoryIdle    HistoryStatus = "idle"
	HistoryLoading HistoryStatus = "loading"
	HistoryLoaded  HistoryStatus = "loaded"
	HistoryFailed  HistoryStatus = "failed"
)

// Draft field names
const (
	FieldAddressTo = "addressTo"
	FieldAmount    = "amount"
	FieldKeyword   = "keyword"
	FieldMessage   = "message"
)

// TransferRecord one on-chain transfer, ready for display
type TransferRecord struct {
	AddressFrom     string          `json:"addressFrom"`
	AddressTo       string          `json:"addressTo"`
	Timestamp       string          `json:"timestamp"`
	TimestampUnix   int64           `json:"timestampUnix"`
	Message         string          `json:"message"`
	Keyword         string          `json:"keyword"`
	Amount          decimal.Decimal `json:"amount"`
	AmountBaseUnits string          `json:"amountBaseUnits"`
}

// TransferDraft the transfer form being edited
type TransferDraft struct {
	AddressTo string `json:"addressTo"`
	Amount    string `json:"amount"`
	Keyword   string `json:"keyword"`
	Message   string `json:"message"`
}

// IsEmpty reports whether every field is blank.
func (d TransferDraft) IsEmpty() bool {
	return d == TransferDraft{}
}

// Notice a user-facing message
type Notice struct {
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Submission describes the latest submission attempt.
type Submission struct {
	ID           string           `json:"id"`
	Status       SubmissionStatus `json:"status"`
	TxHash       string           `json:"txHash,omitempty"`
	RecordTxHash string           `json:"recordTxHash,omitempty"`
	Error        string           `json:"error,omitempty"`
	StartedAt    time.Time        `json:"startedAt"`
	FinishedAt   time.Time        `json:"finishedAt"`
}

// Snapshot read-only view of the session for presentation layers
type Snapshot struct {
	Account          string           `json:"account"`
	AccountStatus    AccountStatus    `json:"accountStatus"`
	Transfers        []TransferRecord `json:"transfers"`
	HistoryStatus    HistoryStatus    `json:"historyStatus"`
	Draft            TransferDraft    `json:"draft"`
	SubmissionStatus SubmissionStatus `json:"submissionStatus"`
	LastSubmission   *Submission      `json:"lastSubmission,omitempty"`
	Notices          []Notice         `json:"notices"`
	ProviderPresent  bool             `json:"providerPresent"`
}
