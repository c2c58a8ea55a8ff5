// Package chain connects the session to an EVM node, either a live JSON-RPC
// endpoint or an ephemeral in-memory backend.
package chain

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethkit/ethkit/internal/cache"
	clierr "github.com/ethkit/ethkit/internal/errors"
)

// Client is the narrow node surface the session consumes. Both a live
// *ethclient.Client and the simulated backend's client satisfy it.
type Client interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// Account is a session-owned key pair. Live sessions carry none; sandbox
// sessions are pre-funded.
type Account struct {
	Address common.Address
	Key     *ecdsa.PrivateKey
}

// Provider is a connected node plus the network label shown in the session
// prompt.
type Provider struct {
	Client  Client
	ChainID *big.Int
	Label   string

	closeFn func() error
}

func (p *Provider) Close() error {
	if p == nil || p.closeFn == nil {
		return nil
	}
	return p.closeFn()
}

const chainIDTTL = 24 * time.Hour

// Dial connects to rpcURL and labels the network mainnet or testnet by its
// chain ID. The detected chain ID is remembered in store so later runs skip
// the round trip; cache failures fall back to a live query.
func Dial(ctx context.Context, rpcURL string, store *cache.Store) (*Provider, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, "connect rpc", err)
	}

	chainID := cachedChainID(store, rpcURL)
	if chainID == nil {
		chainID, err = client.ChainID(ctx)
		if err != nil {
			client.Close()
			return nil, clierr.Wrap(clierr.CodeUnavailable, "detect network", err)
		}
		storeChainID(store, rpcURL, chainID)
	}

	return &Provider{
		Client:  client,
		ChainID: chainID,
		Label:   networkLabel(chainID),
		closeFn: func() error { client.Close(); return nil },
	}, nil
}

func networkLabel(chainID *big.Int) string {
	if chainID != nil && chainID.Cmp(big.NewInt(1)) == 0 {
		return "mainnet"
	}
	return "testnet"
}

func cachedChainID(store *cache.Store, rpcURL string) *big.Int {
	if store == nil {
		return nil
	}
	value, hit, err := store.Get(chainIDKey(rpcURL))
	if err != nil || !hit {
		return nil
	}
	chainID, ok := new(big.Int).SetString(string(value), 10)
	if !ok {
		return nil
	}
	return chainID
}

func storeChainID(store *cache.Store, rpcURL string, chainID *big.Int) {
	if store == nil || chainID == nil {
		return
	}
	_ = store.Set(chainIDKey(rpcURL), []byte(chainID.String()), chainIDTTL)
}

func chainIDKey(rpcURL string) string { return "chainid|" + rpcURL }
