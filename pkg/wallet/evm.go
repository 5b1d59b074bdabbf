package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"token-convert/config"
	"token-convert/pkg/types"
)

// balanceOf(address) function ABI
const balanceOfABI = `[{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"}]`

// receiptPollInterval is how often WaitMined asks for a receipt
var receiptPollInterval = 2 * time.Second

// evmBackend is the subset of ethclient.Client the wallet uses
type evmBackend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
	Close()
}

// EVMWallet signs and sends transactions on an EVM-compatible chain
type EVMWallet struct {
	network    config.NetworkConfig
	client     evmBackend
	privateKey *ecdsa.PrivateKey
	address    common.Address
	signer     ethtypes.Signer
	balanceABI abi.ABI
}

// NewEVMWallet connects to the network's RPC endpoint
func NewEVMWallet(network config.NetworkConfig) (*EVMWallet, error) {
	// Validate configuration
	if network.RPCUrl == "" {
		return nil, fmt.Errorf("RPC URL not configured for network %s", network.Chain)
	}
	if network.PrivateKey == "" {
		return nil, fmt.Errorf("private key not configured for network %s", network.Chain)
	}

	// Parse private key
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(network.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	// Connect to the RPC endpoint
	client, err := ethclient.Dial(network.RPCUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	return newEVMWallet(network, client, privateKey)
}

func newEVMWallet(network config.NetworkConfig, client evmBackend, privateKey *ecdsa.PrivateKey) (*EVMWallet, error) {
	parsedABI, err := abi.JSON(strings.NewReader(balanceOfABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse balanceOf ABI: %w", err)
	}

	return &EVMWallet{
		network:    network,
		client:     client,
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		signer:     ethtypes.NewEIP155Signer(big.NewInt(network.ChainID)),
		balanceABI: parsedABI,
	}, nil
}

// Address returns the checksummed account address
func (e *EVMWallet) Address() string {
	return e.address.Hex()
}

// NativeBalance returns the account balance in wei
func (e *EVMWallet) NativeBalance(ctx context.Context) (*big.Int, error) {
	balance, err := e.client.BalanceAt(ctx, e.address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// TokenBalance returns the account's balance of token in its smallest unit
func (e *EVMWallet) TokenBalance(ctx context.Context, token types.Token) (*big.Int, error) {
	if token.IsNative() {
		return e.NativeBalance(ctx)
	}
	if !common.IsHexAddress(token.Address) {
		return nil, fmt.Errorf("invalid token contract address: %s", token.Address)
	}

	data, err := e.balanceABI.Pack("balanceOf", e.address)
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf data: %w", err)
	}

	tokenAddress := common.HexToAddress(token.Address)
	result, err := e.client.CallContract(ctx, ethereum.CallMsg{To: &tokenAddress, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call balanceOf: %w", err)
	}

	return new(big.Int).SetBytes(result), nil
}

// GasPrice returns the configured gas price, or the network's suggestion
func (e *EVMWallet) GasPrice(ctx context.Context) (*big.Int, error) {
	if e.network.GasPrice != nil {
		return big.NewInt(*e.network.GasPrice), nil
	}

	gasPrice, err := e.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	return gasPrice, nil
}

// EstimateGas returns the configured gas limit, or the node's estimate plus 20%
func (e *EVMWallet) EstimateGas(ctx context.Context, tx *types.TransactionRequest) (uint64, error) {
	if e.network.GasLimit != nil {
		return *e.network.GasLimit, nil
	}

	msg, err := e.callMsg(tx)
	if err != nil {
		return 0, err
	}

	estimated, err := e.client.EstimateGas(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("failed to estimate gas: %w", err)
	}

	return estimated * 120 / 100, nil
}

// SendTransaction signs tx with the wallet key and broadcasts it
func (e *EVMWallet) SendTransaction(ctx context.Context, tx *types.TransactionRequest) (string, error) {
	if !common.IsHexAddress(tx.To) {
		return "", fmt.Errorf("invalid recipient address: %s", tx.To)
	}

	nonce, err := e.client.PendingNonceAt(ctx, e.address)
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice := tx.GasPrice
	if gasPrice == nil {
		if gasPrice, err = e.GasPrice(ctx); err != nil {
			return "", err
		}
	}

	gasLimit := tx.Gas
	if gasLimit == 0 {
		if gasLimit, err = e.EstimateGas(ctx, tx); err != nil {
			return "", err
		}
	}

	value := tx.Value
	if value == nil {
		value = new(big.Int)
	}

	unsigned := ethtypes.NewTransaction(nonce, common.HexToAddress(tx.To), value, gasLimit, gasPrice, tx.Data)

	signedTx, err := ethtypes.SignTx(unsigned, e.signer, e.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := e.client.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	return signedTx.Hash().Hex(), nil
}

// WaitMined blocks until the transaction has a receipt.
// A reverted transaction is an error.
func (e *EVMWallet) WaitMined(ctx context.Context, hash string) error {
	txHash := common.HexToHash(hash)

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := e.client.TransactionReceipt(ctx, txHash)
		switch {
		case err == nil:
			if receipt.Status != ethtypes.ReceiptStatusSuccessful {
				return fmt.Errorf("transaction %s reverted", hash)
			}
			return nil
		case !errors.Is(err, ethereum.NotFound):
			return fmt.Errorf("failed to get transaction receipt: %w", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close closes the client connection
func (e *EVMWallet) Close() {
	if e.client != nil {
		e.client.Close()
	}
}

func (e *EVMWallet) callMsg(tx *types.TransactionRequest) (ethereum.CallMsg, error) {
	if !common.IsHexAddress(tx.To) {
		return ethereum.CallMsg{}, fmt.Errorf("invalid recipient address: %s", tx.To)
	}

	to := common.HexToAddress(tx.To)
	return ethereum.CallMsg{
		From:  e.address,
		To:    &to,
		Value: tx.Value,
		Data:  tx.Data,
	}, nil
}
