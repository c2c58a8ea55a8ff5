// Package normalize turns ambiguous command-line text into a tagged byte
// payload, either by decoding it as hexadecimal or by taking its UTF-8
// encoding.
package normalize

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	clierr "github.com/ethkit/ethkit/internal/errors"
)

// Kind tags which interpretation produced a payload.
type Kind int

const (
	KindHex Kind = iota
	KindUTF8
)

func (k Kind) String() string {
	if k == KindHex {
		return "hex"
	}
	return "utf8"
}

// Payload is an immutable normalized byte string. Data always holds a whole
// number of bytes; odd-length hex input is left-padded with a zero nibble.
type Payload struct {
	Data []byte
	Kind Kind
}

var hexPattern = regexp.MustCompile(`^(0x)?[0-9A-Fa-f]*$`)

// Normalize classifies raw as hex or UTF-8 text. With neither mode forced it
// tries the hex interpretation first and only then falls back to UTF-8, so a
// string composed entirely of hex digits is always treated as bytes even if
// the user meant literal text. Downstream tooling depends on that precedence;
// do not reorder it.
func Normalize(raw string, hexMode, utf8Mode bool) (Payload, error) {
	if hexMode && utf8Mode {
		return Payload{}, clierr.New(clierr.CodeUsage, "cannot combine --hex and --utf8")
	}
	if hexMode {
		data, err := HexData(raw)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Data: data, Kind: KindHex}, nil
	}
	if utf8Mode {
		return Payload{Data: []byte(raw), Kind: KindUTF8}, nil
	}
	if hexPattern.MatchString(raw) {
		if data, err := HexData(raw); err == nil {
			return Payload{Data: data, Kind: KindHex}, nil
		}
	}
	return Payload{Data: []byte(raw), Kind: KindUTF8}, nil
}

// HexData decodes a hex string with an optional 0x prefix. An odd number of
// digits is padded to a whole byte with a leading zero nibble.
func HexData(raw string) ([]byte, error) {
	if !hexPattern.MatchString(raw) {
		return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("invalid hex data: %q", raw))
	}
	digits := strings.TrimPrefix(raw, "0x")
	if len(digits)%2 == 1 {
		digits = "0" + digits
	}
	data, err := hex.DecodeString(digits)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, fmt.Sprintf("invalid hex data: %q", raw), err)
	}
	return data, nil
}
