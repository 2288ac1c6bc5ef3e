package provider

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ethereum/go-ethereum/rpc"
)

// Wallet provider methods (EIP-1193 / Ethereum JSON-RPC)
const (
	MethodAccounts           = "eth_accounts"
	MethodRequestAccounts    = "eth_requestAccounts"
	MethodSendTransaction    = "eth_sendTransaction"
	MethodSendRawTransaction = "eth_sendRawTransaction"
	MethodCall               = "eth_call"
	MethodEstimateGas        = "eth_estimateGas"
	MethodGasPrice           = "eth_gasPrice"
	MethodChainID            = "eth_chainId"
	MethodGetTxCount         = "eth_getTransactionCount"
	MethodGetReceipt         = "eth_getTransactionReceipt"
)

// TransferGas is the fixed gas limit of a plain value transfer (21000).
const TransferGas = "0x5208"

// UserRejectedCode is the EIP-1193 error code for a request the user declined.
const UserRejectedCode = 4001

// ErrUserRejected the user (or the approver) declined the request.
var ErrUserRejected = &RequestError{Code: UserRejectedCode, Message: "user rejected the request"}

// Provider is the wallet capability injected into the session.
// Implementations must be safe for concurrent use.
type Provider interface {
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// TxRequest eth_sendTransaction parameter object. Quantities are 0x-prefixed hex.
type TxRequest struct {
	From  string `json:"from"`
	To    string `json:"to,omitempty"`
	Gas   string `json:"gas,omitempty"`
	Value string `json:"value,omitempty"`
	Data  string `json:"data,omitempty"`
}

// RequestError is a JSON-RPC / EIP-1193 error with a code.
type RequestError struct {
	Code    int
	Message string
}

func (e *RequestError) Error() string { return e.Message }

// ErrorCode implements rpc.Error.
func (e *RequestError) ErrorCode() int { return e.Code }

// IsUserRejected reports whether err carries the EIP-1193 user rejection code.
func IsUserRejected(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode() == UserRejectedCode
	}
	return false
}

// DecodeResult unmarshals a raw provider result into out.
func DecodeResult(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return errors.New("empty provider result")
	}
	return json.Unmarshal(raw, out)
}
