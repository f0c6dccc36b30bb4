package codec

import (
	"bytes"
	"encoding/json"
)

// CanonicalPreimage serializes the NIP-01 id preimage array
// [0, pubkey, created_at, kind, tags, content] with no insignificant
// whitespace and without HTML-escaping, the way a relay itself computes
// it. Tag order is preserved exactly as given.
func CanonicalPreimage(pubkey string, createdAt uint64, kind uint16, tags [][]string, content string) ([]byte, error) {
	arr := []interface{}{0, pubkey, createdAt, kind, tags, content}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(arr); err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
