package session

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethkit/ethkit/internal/chain"
)

type fakeClient struct {
	delay       time.Duration
	blockNumber uint64
	err         error
}

func (f *fakeClient) ChainID(ctx context.Context) (*big.Int, error) { return big.NewInt(1337), nil }

func (f *fakeClient) BlockNumber(ctx context.Context) (uint64, error) {
	time.Sleep(f.delay)
	if f.err != nil {
		return 0, f.err
	}
	return f.blockNumber, nil
}

func (f *fakeClient) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	time.Sleep(f.delay)
	if f.err != nil {
		return nil, f.err
	}
	return big.NewInt(42), nil
}

func (f *fakeClient) NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error) {
	return 7, nil
}

func (f *fakeClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1000000000), nil
}

func newTestSession(t *testing.T, client chain.Client, input string, echoDelay time.Duration) (*Session, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	provider := &chain.Provider{Client: client, ChainID: big.NewInt(1337), Label: "sandbox"}
	accounts := []chain.Account{{Address: common.HexToAddress("0x00000000000000000000000000000000deadbeef")}}
	var stdout, stderr bytes.Buffer
	s := New(provider, accounts, Options{
		Input:     strings.NewReader(input),
		Stdout:    &stdout,
		Stderr:    &stderr,
		Timeout:   5 * time.Second,
		EchoDelay: echoDelay,
	})
	return s, &stdout, &stderr
}

const helloKeccak = "0x1c8aff950685c2ed4bc3174f3472287b56d9517b9c948127319a09a7a36deac8"

func TestEnvEvalConveniences(t *testing.T) {
	env := NewEnv(&chain.Provider{Label: "sandbox", ChainID: big.NewInt(1337)}, nil, time.Second)

	cases := []struct {
		expr string
		want string
	}{
		{`keccak256("hello")`, helloKeccak},
		{`utils.keccak256("0x68656c6c6f")`, helloKeccak},
		{`sha256("hello")`, "0x2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"},
		{`namehash("eth")`, "0x93cdeb708b7545dc668eb9280176169d1c33cfd8ed6f04690a0bcc88a93fc4ae"},
		{`toUtf8String("0x68656c6c6f")`, "hello"},
		{`hexlify(toUtf8Bytes("hello"))`, "0x68656c6c6f"},
		{`id("transfer(address,uint256)")`, "0xa9059cbb2ab09eb219583f4a59a5d0623ade346d962bcd4e46b11da047c9049b"},
	}
	for _, tc := range cases {
		got, err := env.Eval(tc.expr)
		if err != nil {
			t.Fatalf("Eval(%s) failed: %v", tc.expr, err)
		}
		if got != tc.want {
			t.Fatalf("Eval(%s) = %v, want %s", tc.expr, got, tc.want)
		}
	}
}

func TestEnvEvalEther(t *testing.T) {
	env := NewEnv(&chain.Provider{Label: "sandbox"}, nil, time.Second)

	wei, err := env.Eval(`parseEther("1.5")`)
	if err != nil {
		t.Fatalf("parseEther failed: %v", err)
	}
	if wei.(*big.Int).String() != "1500000000000000000" {
		t.Fatalf("unexpected wei: %v", wei)
	}

	text, err := env.Eval(`formatEther(parseEther("1.5"))`)
	if err != nil {
		t.Fatalf("formatEther failed: %v", err)
	}
	if text != "1.5" {
		t.Fatalf("unexpected ether string: %v", text)
	}

	whole, err := env.Eval(`formatEther(bigNumberify("1000000000000000000"))`)
	if err != nil {
		t.Fatalf("formatEther failed: %v", err)
	}
	if whole != "1.0" {
		t.Fatalf("unexpected ether string: %v", whole)
	}
}

func TestEnvEvalAccountsAndNetwork(t *testing.T) {
	accounts := []chain.Account{{Address: common.HexToAddress("0x00000000000000000000000000000000deadbeef")}}
	env := NewEnv(&chain.Provider{Label: "sandbox", ChainID: big.NewInt(1337)}, accounts, time.Second)

	addr, err := env.Eval(`accounts[0]`)
	if err != nil {
		t.Fatalf("accounts[0] failed: %v", err)
	}
	if addr.(common.Address) != accounts[0].Address {
		t.Fatalf("unexpected address: %v", addr)
	}

	network, err := env.Eval(`provider.getNetwork()`)
	if err != nil {
		t.Fatalf("getNetwork failed: %v", err)
	}
	m := network.(map[string]any)
	if m["name"] != "sandbox" {
		t.Fatalf("unexpected network: %v", m)
	}
}

func TestEnvEvalLibraryNamespace(t *testing.T) {
	env := NewEnv(&chain.Provider{Label: "sandbox", ChainID: big.NewInt(1337)}, nil, time.Second)

	for _, name := range []string{"ethers", "providers", "contract", "interface", "wallet", "utils"} {
		if _, err := env.Eval(name); err != nil {
			t.Fatalf("%s is not bound: %v", name, err)
		}
	}

	got, err := env.Eval(`ethers.utils.keccak256("hello")`)
	if err != nil {
		t.Fatalf("ethers.utils.keccak256 failed: %v", err)
	}
	if got != helloKeccak {
		t.Fatalf("ethers.utils.keccak256 = %v, want %s", got, helloKeccak)
	}

	const erc20 = `'[{"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}]}]'`

	methods, err := env.Eval(`interface(` + erc20 + `)`)
	if err != nil {
		t.Fatalf("interface failed: %v", err)
	}
	if sel := methods.(map[string]any)["transfer(address,uint256)"]; sel != "0xa9059cbb" {
		t.Fatalf("unexpected selector: %v", sel)
	}

	c, err := env.Eval(`contract("0x00000000000000000000000000000000deadbeef", ` + erc20 + `)`)
	if err != nil {
		t.Fatalf("contract failed: %v", err)
	}
	cm := c.(map[string]any)
	if cm["address"].(common.Address) != common.HexToAddress("0x00000000000000000000000000000000deadbeef") {
		t.Fatalf("unexpected contract address: %v", cm["address"])
	}
	if sel := cm["methods"].(map[string]any)["transfer(address,uint256)"]; sel != "0xa9059cbb" {
		t.Fatalf("unexpected contract selector: %v", sel)
	}
}

func TestEnvEvalErrors(t *testing.T) {
	env := NewEnv(&chain.Provider{Label: "sandbox"}, nil, time.Second)

	for _, expr := range []string{
		`nosuchname`,
		`keccak256()`,
		`keccak256("a", "b")`,
		`provider.nosuchmethod()`,
		`accounts[99]`,
		`getAddress("not-an-address")`,
	} {
		if _, err := env.Eval(expr); err == nil {
			t.Fatalf("Eval(%s): expected error", expr)
		}
	}
}

func TestBalanced(t *testing.T) {
	cases := []struct {
		src  string
		want bool
	}{
		{`keccak256("hello")`, true},
		{`keccak256(`, false},
		{`keccak256("hel`, false},
		{`keccak256(")")`, true},
		{`accounts[0`, false},
		{`"escaped \" quote"`, true},
	}
	for _, tc := range cases {
		if got := balanced(tc.src); got != tc.want {
			t.Fatalf("balanced(%q) = %v, want %v", tc.src, got, tc.want)
		}
	}
}

func TestSessionImmediateValue(t *testing.T) {
	s, stdout, stderr := newTestSession(t, &fakeClient{}, "keccak256(\"hello\")\n", 200*time.Millisecond)
	if err := s.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	output := stdout.String()
	if !strings.Contains(output, helloKeccak) {
		t.Fatalf("missing hash in output: %q", output)
	}
	if strings.Contains(output, "<pending>") || strings.Contains(output, "Resolved:") {
		t.Fatalf("immediate value should have no async framing: %q", output)
	}
	if !strings.Contains(output, "sandbox> ") {
		t.Fatalf("missing prompt: %q", output)
	}
	if stderr.Len() != 0 {
		t.Fatalf("unexpected stderr: %q", stderr.String())
	}
}

func TestSessionFastFutureSkipsEcho(t *testing.T) {
	s, stdout, _ := newTestSession(t, &fakeClient{blockNumber: 7}, "provider.getBlockNumber()\n", 500*time.Millisecond)
	if err := s.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	output := stdout.String()
	if strings.Contains(output, "<pending>") || strings.Contains(output, "Resolved:") {
		t.Fatalf("fast future should settle silently: %q", output)
	}
	if !strings.Contains(output, "7\n") {
		t.Fatalf("missing block number: %q", output)
	}
}

func TestSessionSlowFutureEchoesOnce(t *testing.T) {
	client := &fakeClient{blockNumber: 7, delay: 60 * time.Millisecond}
	s, stdout, _ := newTestSession(t, client, "provider.getBlockNumber()\n", 5*time.Millisecond)
	if err := s.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	output := stdout.String()
	if got := strings.Count(output, "<pending>"); got != 1 {
		t.Fatalf("expected exactly one pending echo, got %d: %q", got, output)
	}
	if got := strings.Count(output, "Resolved:"); got != 1 {
		t.Fatalf("expected exactly one Resolved marker, got %d: %q", got, output)
	}
	if !strings.Contains(output, "7\n") {
		t.Fatalf("missing block number: %q", output)
	}
}

func TestSessionSlowFutureRejection(t *testing.T) {
	client := &fakeClient{err: errors.New("node unavailable"), delay: 60 * time.Millisecond}
	s, stdout, stderr := newTestSession(t, client, "provider.getBlockNumber()\n", 5*time.Millisecond)
	if err := s.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := strings.Count(stdout.String(), "Rejected:"); got != 1 {
		t.Fatalf("expected exactly one Rejected marker: %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "node unavailable") {
		t.Fatalf("missing evaluation error: %q", stderr.String())
	}
	if _, ok := s.env.last.(error); !ok {
		t.Fatalf("expected rejection stored in last slot, got %T", s.env.last)
	}
}

func TestSessionLastResultSlot(t *testing.T) {
	s, _, _ := newTestSession(t, &fakeClient{}, "", time.Second)
	s.evalAndPrint(`keccak256("hello")`)
	value, err := s.env.Eval("_")
	if err != nil {
		t.Fatalf("Eval(_) failed: %v", err)
	}
	if value != helloKeccak {
		t.Fatalf("unexpected last result: %v", value)
	}
}

func TestMetaCommandResetsBuffer(t *testing.T) {
	s, stdout, _ := newTestSession(t, &fakeClient{}, "", time.Second)

	s.handleLine(`keccak256(`)
	if len(s.buffer) != 1 {
		t.Fatalf("expected buffered partial expression, got %d lines", len(s.buffer))
	}
	s.handleLine("ls " + t.TempDir())
	if len(s.buffer) != 0 {
		t.Fatal("meta-command should clear the buffered expression")
	}
	s.handleLine(`keccak256("hello")`)
	if !strings.Contains(stdout.String(), helloKeccak) {
		t.Fatalf("loop should accept a fresh expression after a meta-command: %q", stdout.String())
	}
}

func TestMetaLsAndCat(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("file body"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	s, stdout, stderr := newTestSession(t, &fakeClient{}, "", time.Second)

	s.handleLine("ls " + dir)
	if !strings.Contains(stdout.String(), "  a.txt\n") {
		t.Fatalf("unexpected ls output: %q", stdout.String())
	}

	s.handleLine("cat " + filepath.Join(dir, "a.txt"))
	if !strings.Contains(stdout.String(), "file body") {
		t.Fatalf("unexpected cat output: %q", stdout.String())
	}

	s.handleLine("cat")
	if stderr.Len() != 0 {
		t.Fatalf("cat with no argument should be a no-op: %q", stderr.String())
	}
}

func TestMultiLineExpression(t *testing.T) {
	s, stdout, _ := newTestSession(t, &fakeClient{}, "keccak256(\n\"hello\"\n)\n", time.Second)
	if err := s.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	output := stdout.String()
	if !strings.Contains(output, helloKeccak) {
		t.Fatalf("missing hash in output: %q", output)
	}
	if !strings.Contains(output, "... ") {
		t.Fatalf("missing continuation prompt: %q", output)
	}
}
