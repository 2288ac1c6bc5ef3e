package contract

import (
	"context"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/betbot/transferdesk/internal/provider"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var contractLog = logrus.WithField("module", "contract")

// DefaultPollInterval receipt polling interval
const DefaultPollInterval = time.Second

var (
	// ErrMalformedRecord a record returned by getAllTransactions failed validation.
	ErrMalformedRecord = errors.New("malformed transfer record")
	// ErrReverted the transaction was mined with status 0.
	ErrReverted = errors.New("transaction reverted")
)

// RawTransfer is one TransferStruct as returned by getAllTransactions.
// Field names match the ABI component names.
type RawTransfer struct {
	Sender    common.Address
	Receiver  common.Address
	Amount    *big.Int
	Message   string
	Timestamp *big.Int
	Keyword   string
}

// Validate checks a decoded record before it crosses into the session.
func (r RawTransfer) Validate() error {
	if r.Sender == (common.Address{}) {
		return errors.Wrap(ErrMalformedRecord, "zero sender")
	}
	if r.Amount == nil || r.Amount.Sign() < 0 {
		return errors.Wrap(ErrMalformedRecord, "missing amount")
	}
	if _, overflow := uint256.FromBig(r.Amount); overflow {
		return errors.Wrap(ErrMalformedRecord, "amount overflows uint256")
	}
	if r.Timestamp == nil || r.Timestamp.Sign() < 0 || !r.Timestamp.IsInt64() || r.Timestamp.Int64() > math.MaxInt64/1000 {
		return errors.Wrapf(ErrMalformedRecord, "timestamp out of range: %v", r.Timestamp)
	}
	return nil
}

// RecordRequest addToBlockchain arguments
type RecordRequest struct {
	Receiver common.Address
	Amount   *big.Int
	Message  string
	Keyword  string
}

// Receipt the receipt fields the session needs
type Receipt struct {
	TxHash      common.Hash    `json:"transactionHash"`
	Status      hexutil.Uint64 `json:"status"`
	BlockNumber *hexutil.Big   `json:"blockNumber"`
	GasUsed     hexutil.Uint64 `json:"gasUsed"`
}

// Transactions client of the Transactions contract; every call goes through the wallet provider
type Transactions struct {
	provider     provider.Provider
	address      common.Address
	abi          abi.ABI
	pollInterval time.Duration
}

// New creates a contract client bound to address.
func New(p provider.Provider, address common.Address, pollInterval time.Duration) (*Transactions, error) {
	if p == nil {
		return nil, errors.New("provider is required")
	}
	parsed, err := abi.JSON(strings.NewReader(TransactionsABI))
	if err != nil {
		return nil, errors.Wrap(err, "parse Transactions ABI")
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Transactions{
		provider:     p,
		address:      address,
		abi:          parsed,
		pollInterval: pollInterval,
	}, nil
}

// Address contract address
func (c *Transactions) Address() common.Address {
	return c.address
}

// ListTransfers calls getAllTransactions and validates every record.
// Any malformed record fails the whole call.
func (c *Transactions) ListTransfers(ctx context.Context) ([]RawTransfer, error) {
	out, err := c.call(ctx, "getAllTransactions")
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, errors.Errorf("getAllTransactions: unexpected output count %d", len(out))
	}
	records := *abi.ConvertType(out[0], new([]RawTransfer)).(*[]RawTransfer)
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return nil, errors.Wrapf(err, "record %d", i)
		}
	}
	contractLog.Debugf("getAllTransactions returned %d records", len(records))
	return records, nil
}

// TransactionCount calls getTransactionCount.
func (c *Transactions) TransactionCount(ctx context.Context) (*big.Int, error) {
	out, err := c.call(ctx, "getTransactionCount")
	if err != nil {
		return nil, err
	}
	count, ok := out[0].(*big.Int)
	if !ok {
		return nil, errors.Errorf("getTransactionCount: unexpected type %T", out[0])
	}
	return count, nil
}

// RecordTransfer sends addToBlockchain from the given account and returns the tx hash.
func (c *Transactions) RecordTransfer(ctx context.Context, from common.Address, req RecordRequest) (common.Hash, error) {
	data, err := c.abi.Pack("addToBlockchain", req.Receiver, req.Amount, req.Message, req.Keyword)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "pack addToBlockchain")
	}
	raw, err := c.provider.Request(ctx, provider.MethodSendTransaction, provider.TxRequest{
		From: from.Hex(),
		To:   c.address.Hex(),
		Data: hexutil.Encode(data),
	})
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "send addToBlockchain")
	}
	var hash common.Hash
	if err := provider.DecodeResult(raw, &hash); err != nil {
		return common.Hash{}, errors.Wrap(err, "decode tx hash")
	}
	contractLog.Infof("addToBlockchain sent: %s", hash.Hex())
	return hash, nil
}

// WaitForTransaction polls for the receipt until it exists or ctx ends.
// A reverted receipt is returned together with ErrReverted.
func (c *Transactions) WaitForTransaction(ctx context.Context, hash common.Hash) (*Receipt, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		raw, err := c.provider.Request(ctx, provider.MethodGetReceipt, hash)
		if err != nil {
			return nil, errors.Wrapf(err, "get receipt %s", hash.Hex())
		}
		var receipt *Receipt
		if err := provider.DecodeResult(raw, &receipt); err != nil {
			return nil, errors.Wrap(err, "decode receipt")
		}
		if receipt != nil {
			if receipt.Status == 0 {
				return receipt, errors.Wrapf(ErrReverted, "tx %s", hash.Hex())
			}
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Transactions) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "pack %s", method)
	}
	raw, err := c.provider.Request(ctx, provider.MethodCall, map[string]any{
		"to":   c.address,
		"data": hexutil.Bytes(data),
	}, "latest")
	if err != nil {
		return nil, errors.Wrapf(err, "call %s", method)
	}
	var result hexutil.Bytes
	if err := provider.DecodeResult(raw, &result); err != nil {
		return nil, errors.Wrapf(err, "decode %s result", method)
	}
	out, err := c.abi.Unpack(method, result)
	if err != nil {
		return nil, errors.Wrapf(err, "unpack %s", method)
	}
	return out, nil
}
