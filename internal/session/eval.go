package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
	"github.com/ethkit/ethkit/internal/chain"
	"github.com/ethkit/ethkit/internal/ens"
	"github.com/ethkit/ethkit/internal/normalize"
)

// Env is the session-scoped environment: every name an expression can
// reference, plus the single last-result slot `_`. The slot holds the most
// recent pending or settled value only; there is no result history.
type Env struct {
	names   map[string]any
	last    any
	timeout time.Duration
}

type callable struct {
	name string
	fn   func(args []any) (any, error)
}

// NewEnv binds the provider handle, the providers namespace, the session
// accounts, the ethers top-level namespace, the contract/interface/wallet
// conveniences, the utils namespace and its flat aliases. All conveniences
// forward to go-ethereum.
func NewEnv(provider *chain.Provider, accounts []chain.Account, timeout time.Duration) *Env {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	e := &Env{timeout: timeout}

	addresses := make([]any, 0, len(accounts))
	for _, account := range accounts {
		addresses = append(addresses, account.Address)
	}

	providerNS := map[string]any{
		"getBlockNumber": e.futureCall("provider.getBlockNumber", 0, func(ctx context.Context, _ []any) (any, error) {
			n, err := provider.Client.BlockNumber(ctx)
			if err != nil {
				return nil, err
			}
			return new(big.Int).SetUint64(n), nil
		}),
		"getBalance": e.futureCall("provider.getBalance", 1, func(ctx context.Context, args []any) (any, error) {
			address, err := valueToAddress(args[0])
			if err != nil {
				return nil, err
			}
			return provider.Client.BalanceAt(ctx, address, nil)
		}),
		"getTransactionCount": e.futureCall("provider.getTransactionCount", 1, func(ctx context.Context, args []any) (any, error) {
			address, err := valueToAddress(args[0])
			if err != nil {
				return nil, err
			}
			nonce, err := provider.Client.NonceAt(ctx, address, nil)
			if err != nil {
				return nil, err
			}
			return new(big.Int).SetUint64(nonce), nil
		}),
		"getGasPrice": e.futureCall("provider.getGasPrice", 0, func(ctx context.Context, _ []any) (any, error) {
			return provider.Client.SuggestGasPrice(ctx)
		}),
		"getNetwork": newCall("provider.getNetwork", 0, func(_ []any) (any, error) {
			return map[string]any{"chainId": provider.ChainID, "name": provider.Label}, nil
		}),
	}

	aliases := map[string]*callable{
		"keccak256":    newCall("keccak256", 1, fnKeccak256),
		"sha256":       newCall("sha256", 1, fnSha256),
		"id":           newCall("id", 1, fnID),
		"namehash":     newCall("namehash", 1, fnNamehash),
		"toUtf8Bytes":  newCall("toUtf8Bytes", 1, fnToUtf8Bytes),
		"toUtf8String": newCall("toUtf8String", 1, fnToUtf8String),
		"hexlify":      newCall("hexlify", 1, fnHexlify),
		"getAddress":   newCall("getAddress", 1, fnGetAddress),
		"bigNumberify": newCall("bigNumberify", 1, fnBigNumberify),
		"parseEther":   newCall("parseEther", 1, fnParseEther),
		"formatEther":  newCall("formatEther", 1, fnFormatEther),
		"randomBytes":  newCall("randomBytes", 1, fnRandomBytes),
	}

	walletNS := map[string]any{
		"createRandom": newCall("wallet.createRandom", 0, fnCreateRandom),
	}
	providersNS := map[string]any{
		"provider": providerNS,
	}
	contractFn := newCall("contract", 2, fnContract)
	interfaceFn := newCall("interface", 1, fnInterface)

	utilsNS := make(map[string]any, len(aliases))
	names := map[string]any{
		"provider":  providerNS,
		"providers": providersNS,
		"accounts":  addresses,
		"wallet":    walletNS,
		"contract":  contractFn,
		"interface": interfaceFn,
	}
	for name, fn := range aliases {
		utilsNS[name] = fn
		names[name] = fn
	}
	names["utils"] = utilsNS
	names["ethers"] = map[string]any{
		"utils":     utilsNS,
		"providers": providersNS,
		"wallet":    walletNS,
		"contract":  contractFn,
		"interface": interfaceFn,
	}
	e.names = names
	return e
}

// Eval evaluates one expression against the session bindings.
func (e *Env) Eval(src string) (any, error) {
	p := &parser{src: []rune(src), env: e}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, fmt.Errorf("unexpected trailing input: %q", string(p.src[p.pos:]))
	}
	return value, nil
}

func (e *Env) lookup(name string) (any, error) {
	if name == "_" {
		return e.last, nil
	}
	if value, ok := e.names[name]; ok {
		return value, nil
	}
	return nil, fmt.Errorf("%s is not defined", name)
}

func (e *Env) setLast(value any) { e.last = value }

func newCall(name string, argc int, fn func(args []any) (any, error)) *callable {
	return &callable{name: name, fn: func(args []any) (any, error) {
		if len(args) != argc {
			return nil, fmt.Errorf("%s expects %d argument(s), got %d", name, argc, len(args))
		}
		return fn(args)
	}}
}

func (e *Env) futureCall(name string, argc int, run func(ctx context.Context, args []any) (any, error)) *callable {
	return &callable{name: name, fn: func(args []any) (any, error) {
		if len(args) != argc {
			return nil, fmt.Errorf("%s expects %d argument(s), got %d", name, argc, len(args))
		}
		captured := append([]any(nil), args...)
		return newFuture(name, func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
			defer cancel()
			return run(ctx, captured)
		}), nil
	}}
}

func fnKeccak256(args []any) (any, error) {
	data, err := valueToBytes(args[0])
	if err != nil {
		return nil, err
	}
	return hexutil.Encode(crypto.Keccak256(data)), nil
}

func fnSha256(args []any) (any, error) {
	data, err := valueToBytes(args[0])
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	return hexutil.Encode(sum[:]), nil
}

func fnID(args []any) (any, error) {
	text, err := valueToString(args[0])
	if err != nil {
		return nil, err
	}
	return hexutil.Encode(crypto.Keccak256([]byte(text))), nil
}

func fnNamehash(args []any) (any, error) {
	name, err := valueToString(args[0])
	if err != nil {
		return nil, err
	}
	return ens.Namehash(name).Hex(), nil
}

func fnToUtf8Bytes(args []any) (any, error) {
	text, err := valueToString(args[0])
	if err != nil {
		return nil, err
	}
	return []byte(text), nil
}

func fnToUtf8String(args []any) (any, error) {
	switch t := args[0].(type) {
	case []byte:
		return string(t), nil
	case string:
		data, err := normalize.HexData(t)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	default:
		return nil, fmt.Errorf("cannot interpret %T as bytes", args[0])
	}
}

func fnHexlify(args []any) (any, error) {
	data, err := valueToBytes(args[0])
	if err != nil {
		return nil, err
	}
	return hexutil.Encode(data), nil
}

func fnGetAddress(args []any) (any, error) {
	return valueToAddress(args[0])
}

func fnBigNumberify(args []any) (any, error) {
	return valueToBig(args[0])
}

func fnParseEther(args []any) (any, error) {
	text, err := valueToString(args[0])
	if err != nil {
		return nil, err
	}
	return parseEther(text)
}

func fnFormatEther(args []any) (any, error) {
	wei, err := valueToBig(args[0])
	if err != nil {
		return nil, err
	}
	return formatEther(wei), nil
}

func fnRandomBytes(args []any) (any, error) {
	n, err := valueToInt(args[0])
	if err != nil {
		return nil, err
	}
	if n < 0 || n > 1024 {
		return nil, fmt.Errorf("randomBytes length out of range: %d", n)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// fnInterface parses a JSON fragment ABI and maps each function's canonical
// signature to its 4-byte selector.
func fnInterface(args []any) (any, error) {
	text, err := valueToString(args[0])
	if err != nil {
		return nil, err
	}
	parsed, err := abi.JSON(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	methods := make(map[string]any, len(parsed.Methods))
	for _, method := range parsed.Methods {
		methods[method.Sig] = hexutil.Encode(method.ID)
	}
	return methods, nil
}

func fnContract(args []any) (any, error) {
	address, err := valueToAddress(args[0])
	if err != nil {
		return nil, err
	}
	methods, err := fnInterface(args[1:])
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"address": address,
		"methods": methods,
	}, nil
}

func fnCreateRandom(_ []any) (any, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"address":    crypto.PubkeyToAddress(key.PublicKey),
		"privateKey": hexutil.Encode(crypto.FromECDSA(key)),
	}, nil
}

func valueToBytes(value any) ([]byte, error) {
	switch t := value.(type) {
	case []byte:
		return t, nil
	case string:
		payload, err := normalize.Normalize(t, false, false)
		if err != nil {
			return nil, err
		}
		return payload.Data, nil
	case common.Address:
		return t.Bytes(), nil
	case common.Hash:
		return t.Bytes(), nil
	default:
		return nil, fmt.Errorf("cannot interpret %T as bytes", value)
	}
}

func valueToString(value any) (string, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("expected a string, got %T", value)
}

func valueToBig(value any) (*big.Int, error) {
	switch t := value.(type) {
	case *big.Int:
		return t, nil
	case string:
		n, ok := math.ParseBig256(strings.TrimSpace(t))
		if !ok {
			return nil, fmt.Errorf("invalid number: %q", t)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("cannot interpret %T as a number", value)
	}
}

func valueToInt(value any) (int, error) {
	n, err := valueToBig(value)
	if err != nil {
		return 0, err
	}
	if !n.IsInt64() {
		return 0, fmt.Errorf("number out of range: %s", n)
	}
	return int(n.Int64()), nil
}

func valueToAddress(value any) (common.Address, error) {
	switch t := value.(type) {
	case common.Address:
		return t, nil
	case string:
		if !common.IsHexAddress(t) {
			return common.Address{}, fmt.Errorf("invalid address: %q", t)
		}
		return common.HexToAddress(t), nil
	default:
		return common.Address{}, fmt.Errorf("cannot interpret %T as an address", value)
	}
}

func parseEther(value string) (*big.Int, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(value))
	if !ok {
		return nil, fmt.Errorf("invalid decimal value: %q", value)
	}
	r.Mul(r, new(big.Rat).SetInt64(params.Ether))
	if !r.IsInt() {
		return nil, fmt.Errorf("%q has more than 18 decimal places", value)
	}
	return new(big.Int).Set(r.Num()), nil
}

func formatEther(wei *big.Int) string {
	v := new(big.Int).Set(wei)
	sign := ""
	if v.Sign() < 0 {
		sign = "-"
		v.Neg(v)
	}
	quo, rem := new(big.Int).QuoRem(v, big.NewInt(params.Ether), new(big.Int))
	frac := strings.TrimRight(fmt.Sprintf("%018d", rem), "0")
	if frac == "" {
		frac = "0"
	}
	return sign + quo.String() + "." + frac
}
