package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/params"
	clierr "github.com/ethkit/ethkit/internal/errors"
)

const (
	devAccountCount   = 10
	devAccountBalance = 10000 // whole ether per account
)

// NewSandbox builds an ephemeral in-memory backend with freshly generated,
// genesis-funded dev accounts. The backend lives only for the session.
func NewSandbox() (*Provider, []Account, error) {
	balance := new(big.Int).Mul(big.NewInt(devAccountBalance), big.NewInt(params.Ether))
	alloc := make(types.GenesisAlloc, devAccountCount)
	accounts := make([]Account, 0, devAccountCount)
	for i := 0; i < devAccountCount; i++ {
		key, err := crypto.GenerateKey()
		if err != nil {
			return nil, nil, clierr.Wrap(clierr.CodeInternal, "generate dev account key", err)
		}
		address := crypto.PubkeyToAddress(key.PublicKey)
		alloc[address] = types.Account{Balance: new(big.Int).Set(balance)}
		accounts = append(accounts, Account{Address: address, Key: key})
	}

	backend := simulated.NewBackend(alloc)
	client := backend.Client()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	chainID, err := client.ChainID(ctx)
	if err != nil {
		_ = backend.Close()
		return nil, nil, clierr.Wrap(clierr.CodeInternal, "detect sandbox chain id", err)
	}

	provider := &Provider{
		Client:  client,
		ChainID: chainID,
		Label:   "sandbox",
		closeFn: backend.Close,
	}
	return provider, accounts, nil
}
