// Package out renders evaluated session values as text lines.
package out

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Render writes value to w, one line per element for slices and a single
// line for everything else.
func Render(w io.Writer, value any) error {
	if items, ok := value.([]any); ok {
		if len(items) == 0 {
			_, err := fmt.Fprintln(w, "[]")
			return err
		}
		for _, item := range items {
			if _, err := fmt.Fprintln(w, Line(item)); err != nil {
				return err
			}
		}
		return nil
	}
	_, err := fmt.Fprintln(w, Line(value))
	return err
}

// Line formats a single value. Byte strings render as 0x-hex, addresses and
// hashes in their checksummed/hex form, maps as sorted key=value pairs.
func Line(value any) string {
	switch t := value.(type) {
	case nil:
		return "null"
	case string:
		return t
	case []byte:
		return hexutil.Encode(t)
	case *big.Int:
		return t.String()
	case common.Address:
		return t.Hex()
	case common.Hash:
		return t.Hex()
	case bool:
		return fmt.Sprintf("%v", t)
	case error:
		return t.Error()
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", k, Line(t[k])))
		}
		return strings.Join(parts, " ")
	case fmt.Stringer:
		return t.String()
	default:
		buf, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(buf)
	}
}
