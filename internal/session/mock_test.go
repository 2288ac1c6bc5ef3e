package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/betbot/transferdesk/internal/contract"
	"github.com/betbot/transferdesk/internal/provider"
	"github.com/ethereum/go-ethereum/common"
)

// mockProvider records every request and answers from canned results.
type mockProvider struct {
	mu sync.Mutex

	accounts         []string
	requestAccounts  []string
	requestAccessErr error
	sendHash         common.Hash
	sendErr          error
	sendGate         chan struct{} // when set, eth_sendTransaction blocks until closed

	calls []string
	sent  []provider.TxRequest
}

func (m *mockProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	m.mu.Lock()
	m.calls = append(m.calls, method)
	gate := m.sendGate
	m.mu.Unlock()

	switch method {
	case provider.MethodAccounts:
		return json.Marshal(orEmpty(m.accounts))
	case provider.MethodRequestAccounts:
		if m.requestAccessErr != nil {
			return nil, m.requestAccessErr
		}
		return json.Marshal(orEmpty(m.requestAccounts))
	case provider.MethodSendTransaction:
		if gate != nil {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		m.mu.Lock()
		m.sent = append(m.sent, params[0].(provider.TxRequest))
		m.mu.Unlock()
		if m.sendErr != nil {
			return nil, m.sendErr
		}
		return json.Marshal(m.sendHash)
	}
	return json.RawMessage("null"), nil
}

func (m *mockProvider) count(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == method {
			n++
		}
	}
	return n
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// mockLedger serves a fixed record list and tracks calls.
type mockLedger struct {
	mu sync.Mutex

	records   []contract.RawTransfer
	listErr   error
	recordErr error
	waitErr   error

	listCalls   int
	recordCalls int
	waitCalls   int
	recorded    []contract.RecordRequest
}

func (l *mockLedger) ListTransfers(context.Context) ([]contract.RawTransfer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listCalls++
	if l.listErr != nil {
		return nil, l.listErr
	}
	return append([]contract.RawTransfer(nil), l.records...), nil
}

func (l *mockLedger) RecordTransfer(_ context.Context, _ common.Address, req contract.RecordRequest) (common.Hash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recordCalls++
	if l.recordErr != nil {
		return common.Hash{}, l.recordErr
	}
	l.recorded = append(l.recorded, req)
	return common.HexToHash("0xbeef"), nil
}

func (l *mockLedger) WaitForTransaction(_ context.Context, hash common.Hash) (*contract.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.waitCalls++
	if l.waitErr != nil {
		return nil, l.waitErr
	}
	return &contract.Receipt{TxHash: hash, Status: 1}, nil
}

func (l *mockLedger) lists() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.listCalls
}

func (l *mockLedger) set(records []contract.RawTransfer, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = records
	l.listErr = err
}
