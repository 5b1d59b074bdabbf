package wallet

import (
	"fmt"
	"strings"

	"token-convert/config"
	"token-convert/pkg/convert"
)

// Wallet is a connected account that can also wait for its transactions
type Wallet interface {
	convert.Wallet
	convert.TransactionWaiter
	Close()
}

// Open connects the wallet configured for the network's chain family
func Open(cfg config.Config) (Wallet, error) {
	switch strings.ToLower(cfg.Network.Family) {
	case config.FamilyEVM:
		w, err := NewEVMWallet(cfg.Network)
		if err != nil {
			return nil, err
		}
		return w, nil
	case config.FamilySolana:
		w, err := NewSolanaWallet(cfg.Network, cfg.Solana)
		if err != nil {
			return nil, err
		}
		return w, nil
	default:
		return nil, fmt.Errorf("wallet not supported for chain family: %s", cfg.Network.Family)
	}
}
