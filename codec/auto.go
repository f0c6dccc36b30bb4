package codec

import (
	"encoding/hex"
	"fmt"
	"strings"

	"nostrkit/nostrerr"
)

// AutoToHex accepts either a raw 64-char hex string or a bech32-encoded
// npub/nsec/note string and returns the 64-char hex payload. It is used
// everywhere the API accepts a pubkey or event id in either form.
func AutoToHex(s string) (string, error) {
	switch {
	case len(s) == 64 && isHex(s):
		return strings.ToLower(s), nil
	case strings.HasPrefix(s, "npub1"):
		b, err := DecodeBech32("npub", s)
		if err != nil {
			return "", err
		}
		return hex.EncodeToString(b), nil
	case strings.HasPrefix(s, "nsec1"):
		b, err := DecodeBech32("nsec", s)
		if err != nil {
			return "", err
		}
		return hex.EncodeToString(b), nil
	case strings.HasPrefix(s, "note1"):
		b, err := DecodeBech32("note", s)
		if err != nil {
			return "", err
		}
		return hex.EncodeToString(b), nil
	default:
		return "", fmt.Errorf("%w: %q is neither 64-char hex nor npub/nsec/note bech32", nostrerr.BadEncoding, s)
	}
}

func isHex(s string) bool {
	_, err := hex.DecodeString(s)
	return err == nil
}
