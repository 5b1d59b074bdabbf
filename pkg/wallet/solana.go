package wallet

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	"token-convert/config"
	"token-convert/pkg/types"
)

// lamportsPerSignature is the base fee Solana charges per transaction signature
const lamportsPerSignature = 5000

// signaturePollInterval is how often WaitMined asks for a signature status
var signaturePollInterval = time.Second

// SolanaWallet handles transfers on the Solana blockchain.
// Gas is expressed as lamports with a gas price of 1.
type SolanaWallet struct {
	config     config.SolanaConfig
	client     *rpc.Client
	privateKey solana.PrivateKey
	publicKey  solana.PublicKey
}

// NewSolanaWallet creates a new Solana wallet
func NewSolanaWallet(network config.NetworkConfig, cfg config.SolanaConfig) (*SolanaWallet, error) {
	// Validate configuration
	if network.RPCUrl == "" {
		return nil, fmt.Errorf("RPC URL not configured for Solana")
	}
	if network.PrivateKey == "" {
		return nil, fmt.Errorf("private key not configured for Solana")
	}

	// Parse private key (Base58 encoded)
	privateKey, err := solana.PrivateKeyFromBase58(network.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &SolanaWallet{
		config:     cfg,
		client:     rpc.New(network.RPCUrl),
		privateKey: privateKey,
		publicKey:  privateKey.PublicKey(),
	}, nil
}

// Address returns the base58 public key
func (s *SolanaWallet) Address() string {
	return s.publicKey.String()
}

// NativeBalance returns the SOL balance in lamports
func (s *SolanaWallet) NativeBalance(ctx context.Context) (*big.Int, error) {
	balance, err := s.client.GetBalance(ctx, s.publicKey, s.getCommitment())
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return new(big.Int).SetUint64(balance.Value), nil
}

// TokenBalance returns the SPL balance of the wallet's associated token account.
// A missing account holds nothing.
func (s *SolanaWallet) TokenBalance(ctx context.Context, tok types.Token) (*big.Int, error) {
	if tok.IsNative() {
		return s.NativeBalance(ctx)
	}

	mint, err := solana.PublicKeyFromBase58(tok.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid token mint address: %w", err)
	}

	account, err := s.getAssociatedTokenAddress(s.publicKey, mint)
	if err != nil {
		return nil, err
	}

	exists, err := s.accountExists(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to check token account: %w", err)
	}
	if !exists {
		return new(big.Int), nil
	}

	balance, err := s.getTokenBalance(ctx, account)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetUint64(balance), nil
}

// GasPrice is always one lamport per gas unit
func (s *SolanaWallet) GasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

// EstimateGas returns the signature fee of a single-signer transaction
func (s *SolanaWallet) EstimateGas(ctx context.Context, tx *types.TransactionRequest) (uint64, error) {
	return lamportsPerSignature, nil
}

// SendTransaction sends native SOL, or an SPL token when tx.TokenMint is set
func (s *SolanaWallet) SendTransaction(ctx context.Context, tx *types.TransactionRequest) (string, error) {
	recipient, err := solana.PublicKeyFromBase58(tx.To)
	if err != nil {
		return "", fmt.Errorf("invalid recipient address: %w", err)
	}
	if tx.Value == nil || !tx.Value.IsUint64() {
		return "", fmt.Errorf("invalid transfer amount: %v", tx.Value)
	}
	amount := tx.Value.Uint64()

	var signature solana.Signature
	if tx.TokenMint == "" {
		signature, err = s.sendNativeSOL(ctx, recipient, amount)
	} else {
		signature, err = s.sendSPLToken(ctx, recipient, tx.TokenMint, amount)
	}
	if err != nil {
		return "", err
	}

	return signature.String(), nil
}

// WaitMined blocks until the signature reaches the configured commitment
func (s *SolanaWallet) WaitMined(ctx context.Context, hash string) error {
	sig, err := solana.SignatureFromBase58(hash)
	if err != nil {
		return fmt.Errorf("invalid transaction signature: %w", err)
	}

	ticker := time.NewTicker(signaturePollInterval)
	defer ticker.Stop()

	for {
		statuses, err := s.client.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			return fmt.Errorf("failed to get signature status: %w", err)
		}

		if len(statuses.Value) > 0 && statuses.Value[0] != nil {
			status := statuses.Value[0]
			if status.Err != nil {
				return fmt.Errorf("transaction %s failed: %v", hash, status.Err)
			}
			if reachedCommitment(status.ConfirmationStatus, s.getCommitment()) {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close is a no-op; the Solana RPC client doesn't require explicit cleanup
func (s *SolanaWallet) Close() {}

// sendNativeSOL sends lamports to recipient
func (s *SolanaWallet) sendNativeSOL(ctx context.Context, recipient solana.PublicKey, lamports uint64) (solana.Signature, error) {
	instruction := system.NewTransferInstruction(
		lamports,
		s.publicKey,
		recipient,
	).Build()

	return s.signAndSend(ctx, []solana.Instruction{instruction})
}

// sendSPLToken sends amount (smallest unit) of the mint, creating the recipient's token account when missing
func (s *SolanaWallet) sendSPLToken(ctx context.Context, recipient solana.PublicKey, tokenMintStr string, amount uint64) (solana.Signature, error) {
	tokenMint, err := solana.PublicKeyFromBase58(tokenMintStr)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("invalid token mint address: %w", err)
	}

	sourceTokenAccount, err := s.getAssociatedTokenAddress(s.publicKey, tokenMint)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get source token account: %w", err)
	}

	destTokenAccount, err := s.getAssociatedTokenAddress(recipient, tokenMint)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get destination token account: %w", err)
	}

	destAccountExists, err := s.accountExists(ctx, destTokenAccount)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to check destination account: %w", err)
	}

	instructions := []solana.Instruction{}
	if !destAccountExists {
		instructions = append(instructions, associatedtokenaccount.NewCreateInstruction(
			s.publicKey, // payer
			recipient,   // wallet
			tokenMint,   // mint
		).Build())
	}

	instructions = append(instructions, token.NewTransferInstruction(
		amount,
		sourceTokenAccount,
		destTokenAccount,
		s.publicKey,
		[]solana.PublicKey{}, // no multisig
	).Build())

	return s.signAndSend(ctx, instructions)
}

func (s *SolanaWallet) signAndSend(ctx context.Context, instructions []solana.Instruction) (solana.Signature, error) {
	recent, err := s.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		instructions,
		recent.Value.Blockhash,
		solana.TransactionPayer(s.publicKey),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to create transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.publicKey) {
			return &s.privateKey
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	opts := rpc.TransactionOpts{
		SkipPreflight:       s.config.SkipPreflight,
		PreflightCommitment: s.getCommitment(),
	}

	sig, err := s.client.SendTransactionWithOpts(ctx, tx, opts)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	return sig, nil
}

// getTokenBalance returns the token balance for a token account
func (s *SolanaWallet) getTokenBalance(ctx context.Context, tokenAccount solana.PublicKey) (uint64, error) {
	accountInfo, err := s.client.GetTokenAccountBalance(ctx, tokenAccount, s.getCommitment())
	if err != nil {
		return 0, fmt.Errorf("failed to get token balance: %w", err)
	}

	amount, err := strconv.ParseUint(accountInfo.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token balance: %w", err)
	}

	return amount, nil
}

// getAssociatedTokenAddress derives the associated token account address
func (s *SolanaWallet) getAssociatedTokenAddress(wallet solana.PublicKey, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(wallet, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive associated token address: %w", err)
	}
	return addr, nil
}

// accountExists checks if an account exists on-chain
func (s *SolanaWallet) accountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	accountInfo, err := s.client.GetAccountInfo(ctx, account)
	if err != nil {
		// If the error indicates account doesn't exist, return false
		if strings.Contains(err.Error(), "not found") {
			return false, nil
		}
		return false, err
	}

	return accountInfo.Value != nil, nil
}

// getCommitment returns the commitment level from config
func (s *SolanaWallet) getCommitment() rpc.CommitmentType {
	return parseCommitment(s.config.Commitment)
}

func parseCommitment(commitment string) rpc.CommitmentType {
	switch strings.ToLower(commitment) {
	case "finalized":
		return rpc.CommitmentFinalized
	case "confirmed":
		return rpc.CommitmentConfirmed
	case "processed":
		return rpc.CommitmentProcessed
	default:
		return rpc.CommitmentConfirmed
	}
}

// reachedCommitment reports whether status is at least as final as want
func reachedCommitment(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	rank := map[string]int{"processed": 1, "confirmed": 2, "finalized": 3}
	return rank[string(status)] >= rank[string(want)] && rank[string(status)] > 0
}
