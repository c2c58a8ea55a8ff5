// Package sig canonicalizes human-readable function signatures and derives
// the 4-byte selector used to dispatch contract calls.
package sig

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	clierr "github.com/ethkit/ethkit/internal/errors"
)

var signaturePattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\(([^()]*)\)$`)

// Canonicalize reduces a signature such as
// "transfer(address to, uint256 amount)" to its canonical form
// "transfer(address,uint256)": parameter names are dropped (each parameter
// keeps only its leading whitespace-delimited token) and all spacing is
// removed.
func Canonicalize(signature string) (string, error) {
	match := signaturePattern.FindStringSubmatch(strings.TrimSpace(signature))
	if match == nil {
		return "", clierr.New(clierr.CodeUsage, fmt.Sprintf("invalid function signature: %q", signature))
	}
	name, params := match[1], strings.TrimSpace(match[2])
	if params == "" {
		return name + "()", nil
	}
	parts := strings.Split(params, ",")
	types := make([]string, 0, len(parts))
	for _, part := range parts {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			return "", clierr.New(clierr.CodeUsage, fmt.Sprintf("invalid function signature: %q", signature))
		}
		types = append(types, fields[0])
	}
	return name + "(" + strings.Join(types, ",") + ")", nil
}

// Selector returns the 0x-prefixed first 4 bytes of the Keccak-256 hash of
// the canonical signature.
func Selector(signature string) (string, error) {
	canonical, err := Canonicalize(signature)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(crypto.Keccak256([]byte(canonical))[:4]), nil
}
