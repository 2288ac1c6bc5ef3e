package provider

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	hdwallet "github.com/miguelmota/go-ethereum-hdwallet"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var walletLog = logrus.WithField("module", "provider.keywallet")

// DefaultDerivationPath first account of the standard Ethereum BIP-44 path.
const DefaultDerivationPath = "m/44'/60'/0'/0/0"

// Approver decides whether an interactive account request is granted.
type Approver func(ctx context.Context, account common.Address) (bool, error)

// ApproveAlways grants every request.
func ApproveAlways(context.Context, common.Address) (bool, error) { return true, nil }

// ApproveNever declines every request.
func ApproveNever(context.Context, common.Address) (bool, error) { return false, nil }

// KeyWalletOptions key wallet settings
type KeyWalletOptions struct {
	ChainID     *big.Int // nil = ask the upstream node once
	Approver    Approver // nil = ApproveNever
	PreApproved bool     // eth_accounts returns the account without a prior eth_requestAccounts
}

// KeyWalletProvider is an in-process wallet holding one private key.
// Account requests go through an Approver; transactions are signed locally and
// submitted as raw transactions. Everything else is forwarded upstream.
type KeyWalletProvider struct {
	upstream Upstream
	key      *ecdsa.PrivateKey
	address  common.Address
	approver Approver

	mu       sync.Mutex
	approved bool
	chainID  *big.Int
	sendMu   sync.Mutex // serialises nonce assignment
}

// NewKeyWalletFromHex builds a wallet from a hex private key (0x prefix optional).
func NewKeyWalletFromHex(upstream Upstream, privateKeyHex string, opts KeyWalletOptions) (*KeyWalletProvider, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid private key")
	}
	return newKeyWallet(upstream, key, opts), nil
}

// NewKeyWalletFromMnemonic derives the wallet key from a BIP-39 mnemonic.
func NewKeyWalletFromMnemonic(upstream Upstream, mnemonic, derivationPath string, opts KeyWalletOptions) (*KeyWalletProvider, error) {
	mnemonic = strings.TrimSpace(mnemonic)
	if mnemonic == "" {
		return nil, errors.New("mnemonic is required")
	}
	if strings.TrimSpace(derivationPath) == "" {
		derivationPath = DefaultDerivationPath
	}

	w, err := hdwallet.NewFromMnemonic(mnemonic)
	if err != nil {
		return nil, errors.Wrap(err, "invalid mnemonic")
	}
	path, err := hdwallet.ParseDerivationPath(derivationPath)
	if err != nil {
		return nil, errors.Wrap(err, "invalid derivation path")
	}
	acct, err := w.Derive(path, false)
	if err != nil {
		return nil, errors.Wrap(err, "derive account")
	}
	key, err := w.PrivateKey(acct)
	if err != nil {
		return nil, errors.Wrap(err, "derive private key")
	}
	return newKeyWallet(upstream, key, opts), nil
}

func newKeyWallet(upstream Upstream, key *ecdsa.PrivateKey, opts KeyWalletOptions) *KeyWalletProvider {
	approver := opts.Approver
	if approver == nil {
		approver = ApproveNever
	}
	return &KeyWalletProvider{
		upstream: upstream,
		key:      key,
		address:  crypto.PubkeyToAddress(key.PublicKey),
		approver: approver,
		approved: opts.PreApproved,
		chainID:  opts.ChainID,
	}
}

// Address the wallet account.
func (p *KeyWalletProvider) Address() common.Address {
	return p.address
}

func (p *KeyWalletProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	switch method {
	case MethodAccounts:
		return json.Marshal(p.accounts())
	case MethodRequestAccounts:
		return p.requestAccounts(ctx)
	case MethodSendTransaction:
		if len(params) != 1 {
			return nil, &RequestError{Code: -32602, Message: "eth_sendTransaction expects one transaction object"}
		}
		return p.sendTransaction(ctx, params[0])
	default:
		var out json.RawMessage
		if err := p.upstream.CallContext(ctx, &out, method, params...); err != nil {
			return nil, err
		}
		return out, nil
	}
}

func (p *KeyWalletProvider) accounts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.approved {
		return []string{}
	}
	return []string{strings.ToLower(p.address.Hex())}
}

func (p *KeyWalletProvider) requestAccounts(ctx context.Context) (json.RawMessage, error) {
	p.mu.Lock()
	approved := p.approved
	p.mu.Unlock()

	if !approved {
		ok, err := p.approver(ctx, p.address)
		if err != nil {
			return nil, errors.Wrap(err, "approver")
		}
		if !ok {
			walletLog.Infof("account request declined for %s", p.address.Hex())
			return nil, ErrUserRejected
		}
		p.mu.Lock()
		p.approved = true
		p.mu.Unlock()
	}
	return json.Marshal(p.accounts())
}

func (p *KeyWalletProvider) sendTransaction(ctx context.Context, param any) (json.RawMessage, error) {
	req, err := toTxRequest(param)
	if err != nil {
		return nil, &RequestError{Code: -32602, Message: err.Error()}
	}
	if !common.IsHexAddress(req.From) || common.HexToAddress(req.From) != p.address {
		return nil, &RequestError{Code: 4100, Message: "from address is not authorized: " + req.From}
	}
	if !p.isApproved() {
		return nil, &RequestError{Code: 4100, Message: "account not approved"}
	}
	if !common.IsHexAddress(req.To) {
		return nil, &RequestError{Code: -32602, Message: "invalid to address: " + req.To}
	}
	to := common.HexToAddress(req.To)

	value := new(big.Int)
	if req.Value != "" {
		if value, err = hexutil.DecodeBig(req.Value); err != nil {
			return nil, &RequestError{Code: -32602, Message: "invalid value: " + err.Error()}
		}
	}
	var data []byte
	if req.Data != "" {
		if data, err = hexutil.Decode(req.Data); err != nil {
			return nil, &RequestError{Code: -32602, Message: "invalid data: " + err.Error()}
		}
	}

	chainID, err := p.resolveChainID(ctx)
	if err != nil {
		return nil, err
	}

	p.sendMu.Lock()
	defer p.sendMu.Unlock()

	var gas uint64
	if req.Gas != "" {
		if gas, err = hexutil.DecodeUint64(req.Gas); err != nil {
			return nil, &RequestError{Code: -32602, Message: "invalid gas: " + err.Error()}
		}
	} else {
		var est hexutil.Uint64
		callArgs := map[string]any{"from": p.address, "to": to, "value": (*hexutil.Big)(value)}
		if len(data) > 0 {
			callArgs["data"] = hexutil.Bytes(data)
		}
		if err := p.upstream.CallContext(ctx, &est, MethodEstimateGas, callArgs); err != nil {
			return nil, errors.Wrap(err, "estimate gas")
		}
		gas = uint64(est)
	}

	var nonce hexutil.Uint64
	if err := p.upstream.CallContext(ctx, &nonce, MethodGetTxCount, p.address, "pending"); err != nil {
		return nil, errors.Wrap(err, "get nonce")
	}
	var gasPrice hexutil.Big
	if err := p.upstream.CallContext(ctx, &gasPrice, MethodGasPrice); err != nil {
		return nil, errors.Wrap(err, "get gas price")
	}

	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    uint64(nonce),
		GasPrice: gasPrice.ToInt(),
		Gas:      gas,
		To:       &to,
		Value:    value,
		Data:     data,
	})
	signed, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(chainID), p.key)
	if err != nil {
		return nil, errors.Wrap(err, "sign transaction")
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "encode transaction")
	}

	var hash common.Hash
	if err := p.upstream.CallContext(ctx, &hash, MethodSendRawTransaction, hexutil.Encode(raw)); err != nil {
		return nil, errors.Wrap(err, "send raw transaction")
	}
	walletLog.Infof("sent tx %s nonce=%d to=%s", hash.Hex(), uint64(nonce), to.Hex())
	return json.Marshal(hash)
}

func (p *KeyWalletProvider) isApproved() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.approved
}

func (p *KeyWalletProvider) resolveChainID(ctx context.Context) (*big.Int, error) {
	p.mu.Lock()
	if p.chainID != nil {
		id := p.chainID
		p.mu.Unlock()
		return id, nil
	}
	p.mu.Unlock()

	var id hexutil.Big
	if err := p.upstream.CallContext(ctx, &id, MethodChainID); err != nil {
		return nil, errors.Wrap(err, "get chain id")
	}
	p.mu.Lock()
	p.chainID = id.ToInt()
	p.mu.Unlock()
	return id.ToInt(), nil
}

func toTxRequest(param any) (TxRequest, error) {
	switch v := param.(type) {
	case TxRequest:
		return v, nil
	case *TxRequest:
		if v == nil {
			return TxRequest{}, errors.New("nil transaction object")
		}
		return *v, nil
	}
	b, err := json.Marshal(param)
	if err != nil {
		return TxRequest{}, errors.Wrap(err, "encode transaction object")
	}
	var req TxRequest
	if err := json.Unmarshal(b, &req); err != nil {
		return TxRequest{}, errors.Wrap(err, "decode transaction object")
	}
	return req, nil
}
