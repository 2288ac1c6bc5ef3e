package app

import (
	"context"

	"github.com/betbot/transferdesk/internal/contract"
	"github.com/betbot/transferdesk/internal/provider"
	"github.com/betbot/transferdesk/internal/session"
	"github.com/betbot/transferdesk/pkg/config"
	"github.com/betbot/transferdesk/pkg/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// NewSession wires the configured wallet provider and contract into a session
// manager. With no wallet configured the session runs provider-less.
// The returned close func releases the provider connection. approver may be nil.
func NewSession(ctx context.Context, cfg *config.Config, opts session.Options, approver provider.Approver) (*session.Manager, func(), error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	opts.Location = loc
	if opts.TimestampLayout == "" {
		opts.TimestampLayout = cfg.TimestampLayout
	}

	p, closeProvider, err := provider.Detect(ctx, cfg, approver)
	if err != nil {
		return nil, nil, errors.Wrap(err, "wallet provider")
	}
	if p == nil {
		logger.Warn("no wallet provider configured")
		return session.New(nil, nil, opts), closeProvider, nil
	}

	ledger, err := contract.New(p, common.HexToAddress(cfg.ContractAddress), cfg.ReceiptPollInterval)
	if err != nil {
		closeProvider()
		return nil, nil, err
	}
	logger.Infof("wallet mode %s, contract %s, rpc %s", cfg.Wallet.Mode, ledger.Address().Hex(), cfg.RPCURL)
	return session.New(p, ledger, opts), closeProvider, nil
}

// InitLogger applies the logging section of cfg.
func InitLogger(cfg *config.Config, console bool) error {
	return logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   true,
		Console:    console,
	})
}
