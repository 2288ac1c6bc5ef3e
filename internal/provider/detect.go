package provider

import (
	"context"
	"math/big"

	"github.com/betbot/transferdesk/pkg/config"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
)

// Detect builds the provider described by the wallet configuration.
// It returns a nil Provider when no wallet is configured; callers treat that as
// "no wallet installed". The returned close func is never nil.
// A non-nil approver answers account requests of key wallets; otherwise
// auto_approve decides.
func Detect(ctx context.Context, cfg *config.Config, approver Approver) (Provider, func(), error) {
	noop := func() {}
	if cfg == nil || cfg.Wallet.Mode == "" || cfg.Wallet.Mode == config.WalletModeNone {
		return nil, noop, nil
	}

	client, err := rpc.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, noop, errors.Wrapf(err, "dial rpc %s", cfg.RPCURL)
	}

	opts := KeyWalletOptions{PreApproved: cfg.Wallet.PreApproved}
	if cfg.ChainID > 0 {
		opts.ChainID = big.NewInt(cfg.ChainID)
	}
	switch {
	case approver != nil:
		opts.Approver = approver
	case cfg.Wallet.AutoApprove:
		opts.Approver = ApproveAlways
	}

	var p Provider
	switch cfg.Wallet.Mode {
	case config.WalletModeRPC:
		p = &RPCProvider{client: client, closer: client.Close}
	case config.WalletModeKey:
		p, err = NewKeyWalletFromHex(client, cfg.Wallet.PrivateKey, opts)
	case config.WalletModeMnemonic:
		p, err = NewKeyWalletFromMnemonic(client, cfg.Wallet.Mnemonic, cfg.Wallet.DerivationPath, opts)
	default:
		err = errors.Errorf("unknown wallet mode: %s", cfg.Wallet.Mode)
	}
	if err != nil {
		client.Close()
		return nil, noop, err
	}
	return p, client.Close, nil
}
