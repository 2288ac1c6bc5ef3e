package provider

import (
	"context"
	"testing"

	"github.com/betbot/transferdesk/pkg/config"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyWalletConfig(autoApprove bool) *config.Config {
	return &config.Config{
		RPCURL:  "http://127.0.0.1:1",
		ChainID: 31337,
		Wallet: config.WalletConfig{
			Mode:        config.WalletModeKey,
			PrivateKey:  testKey,
			AutoApprove: autoApprove,
		},
	}
}

func TestDetect_NoWallet(t *testing.T) {
	p, closeFn, err := Detect(context.Background(), &config.Config{}, nil)
	require.NoError(t, err)
	require.NotNil(t, closeFn)
	assert.Nil(t, p)
}

func TestDetect_ApproverOverridesAutoApprove(t *testing.T) {
	var asked []common.Address
	approver := func(_ context.Context, account common.Address) (bool, error) {
		asked = append(asked, account)
		return false, nil
	}

	p, closeFn, err := Detect(context.Background(), keyWalletConfig(true), approver)
	require.NoError(t, err)
	defer closeFn()

	_, err = p.Request(context.Background(), MethodRequestAccounts)
	assert.ErrorIs(t, err, ErrUserRejected)
	require.Len(t, asked, 1)
	assert.Equal(t, common.HexToAddress(testAddress), asked[0])
}

func TestDetect_AutoApprove(t *testing.T) {
	p, closeFn, err := Detect(context.Background(), keyWalletConfig(true), nil)
	require.NoError(t, err)
	defer closeFn()

	raw, err := p.Request(context.Background(), MethodRequestAccounts)
	require.NoError(t, err)
	var accounts []string
	require.NoError(t, DecodeResult(raw, &accounts))
	assert.Len(t, accounts, 1)
}
