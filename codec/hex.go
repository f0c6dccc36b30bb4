// Package codec implements the encodings nostrkit needs at its edges:
// lowercase hex and the NIP-19 bech32 forms (npub/nsec/note), plus the
// canonical JSON preimage used to derive an event id.
package codec

import (
	"encoding/hex"
	"fmt"

	"nostrkit/nostrerr"
)

// DecodeHex decodes a lowercase hex string into exactly n bytes.
func DecodeHex(s string, n int) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", nostrerr.BadHex, err)
	}
	if len(b) != n {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", nostrerr.BadHex, n, len(b))
	}
	return b, nil
}

// EncodeHex lowercase-hex-encodes b.
func EncodeHex(b []byte) string {
	return hex.EncodeToString(b)
}
