package provider

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var rpcLog = logrus.WithField("module", "provider.rpc")

// Upstream is the subset of *rpc.Client the providers need.
type Upstream interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// RPCProvider forwards every request to a node that manages its own accounts
// (geth --dev, hardhat, anvil). Node accounts count as approved, so
// eth_requestAccounts is served by eth_accounts.
type RPCProvider struct {
	client Upstream
	closer func()
}

// DialRPC connects to an upstream JSON-RPC endpoint.
func DialRPC(ctx context.Context, url string) (*RPCProvider, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "dial rpc %s", url)
	}
	return &RPCProvider{client: c, closer: c.Close}, nil
}

// NewRPCProvider wraps an existing upstream client.
func NewRPCProvider(client Upstream) *RPCProvider {
	return &RPCProvider{client: client}
}

func (p *RPCProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if method == MethodRequestAccounts {
		method = MethodAccounts
	}
	var out json.RawMessage
	if err := p.client.CallContext(ctx, &out, method, params...); err != nil {
		rpcLog.Debugf("%s failed: %v", method, err)
		return nil, err
	}
	return out, nil
}

func (p *RPCProvider) Close() {
	if p.closer != nil {
		p.closer()
	}
}
