package tui

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

type approvalRequest struct {
	account common.Address
	reply   chan bool
}

type approvalMsg struct {
	req approvalRequest
}

// Prompter turns wallet account requests into a y/n prompt in the UI.
// Its Approve method is a provider.Approver.
type Prompter struct {
	requests chan approvalRequest
}

func NewPrompter() *Prompter {
	return &Prompter{requests: make(chan approvalRequest)}
}

// Approve blocks until the user answers the prompt or ctx ends.
func (p *Prompter) Approve(ctx context.Context, account common.Address) (bool, error) {
	req := approvalRequest{account: account, reply: make(chan bool, 1)}
	select {
	case p.requests <- req:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case ok := <-req.reply:
		modelLog.Infof("wallet access for %s answered: %v", account.Hex(), ok)
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
