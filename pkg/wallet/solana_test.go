package wallet

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-convert/config"
	"token-convert/pkg/types"
)

func newSolanaTestWallet(t *testing.T) *SolanaWallet {
	t.Helper()

	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	w, err := NewSolanaWallet(
		config.NetworkConfig{RPCUrl: "http://127.0.0.1:1", PrivateKey: key.String()},
		config.SolanaConfig{Commitment: "finalized"},
	)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey().String(), w.Address())
	return w
}

func TestSolanaWalletGas(t *testing.T) {
	w := newSolanaTestWallet(t)
	ctx := context.Background()

	price, err := w.GasPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), price.Int64())

	gas, err := w.EstimateGas(ctx, &types.TransactionRequest{})
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), gas)
}

func TestSolanaWalletRejectsBadTransfers(t *testing.T) {
	w := newSolanaTestWallet(t)

	_, err := w.SendTransaction(context.Background(), &types.TransactionRequest{To: "not base58!"})
	assert.ErrorContains(t, err, "invalid recipient")

	_, err = w.SendTransaction(context.Background(), &types.TransactionRequest{To: w.Address()})
	assert.ErrorContains(t, err, "invalid transfer amount")

	_, err = w.TokenBalance(context.Background(), types.Token{Address: "not base58!"})
	assert.ErrorContains(t, err, "invalid token mint")
}

func TestNewSolanaWalletValidatesConfig(t *testing.T) {
	_, err := NewSolanaWallet(config.NetworkConfig{}, config.SolanaConfig{})
	assert.ErrorContains(t, err, "RPC URL")

	_, err = NewSolanaWallet(config.NetworkConfig{RPCUrl: "http://127.0.0.1:1"}, config.SolanaConfig{})
	assert.ErrorContains(t, err, "private key")
}

func TestParseCommitment(t *testing.T) {
	assert.Equal(t, rpc.CommitmentFinalized, parseCommitment("FINALIZED"))
	assert.Equal(t, rpc.CommitmentProcessed, parseCommitment("processed"))
	assert.Equal(t, rpc.CommitmentConfirmed, parseCommitment(""))
}

func TestReachedCommitment(t *testing.T) {
	assert.True(t, reachedCommitment(rpc.ConfirmationStatusFinalized, rpc.CommitmentConfirmed))
	assert.True(t, reachedCommitment(rpc.ConfirmationStatusConfirmed, rpc.CommitmentConfirmed))
	assert.False(t, reachedCommitment(rpc.ConfirmationStatusProcessed, rpc.CommitmentConfirmed))
	assert.False(t, reachedCommitment("", rpc.CommitmentProcessed))
}

func TestOpenRejectsUnknownFamily(t *testing.T) {
	_, err := Open(config.Config{Network: config.NetworkConfig{Family: "cosmos"}})
	assert.ErrorContains(t, err, "not supported")
}
