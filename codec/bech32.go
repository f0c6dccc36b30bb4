package codec

import (
	"fmt"
	"strings"

	"nostrkit/nostrerr"
)

const bech32Charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// bech32Decode splits a bech32 string into its human-readable part and
// data bytes (5-bit groups), stripping the 6-byte checksum.
func bech32Decode(bech string) (string, []byte, error) {
	if len(bech) < 8 {
		return "", nil, fmt.Errorf("%w: too short", nostrerr.BadBech32)
	}
	bech = strings.ToLower(bech)

	pos := strings.LastIndex(bech, "1")
	if pos < 1 || pos+7 > len(bech) {
		return "", nil, fmt.Errorf("%w: invalid separator position", nostrerr.BadBech32)
	}

	hrp := bech[:pos]
	data := bech[pos+1:]

	values := make([]byte, 0, len(data))
	for _, c := range data {
		idx := strings.IndexRune(bech32Charset, c)
		if idx == -1 {
			return "", nil, fmt.Errorf("%w: invalid character %q", nostrerr.BadBech32, c)
		}
		values = append(values, byte(idx))
	}

	if len(values) < 6 {
		return "", nil, fmt.Errorf("%w: too short for checksum", nostrerr.BadBech32)
	}
	if !bech32VerifyChecksum(hrp, values) {
		return "", nil, fmt.Errorf("%w: checksum mismatch", nostrerr.BadBech32)
	}

	return hrp, values[:len(values)-6], nil
}

// bech32Encode encodes data (5-bit groups) under hrp, appending the
// checksum and separator.
func bech32Encode(hrp string, data []byte) string {
	checksum := bech32CreateChecksum(hrp, data)
	combined := append(append([]byte{}, data...), checksum...)

	var sb strings.Builder
	sb.WriteString(hrp)
	sb.WriteByte('1')
	for _, v := range combined {
		sb.WriteByte(bech32Charset[v])
	}
	return sb.String()
}

// bech32ConvertBits re-groups data from fromBits-wide values to
// toBits-wide values, used to move between 8-bit bytes and the 5-bit
// groups bech32 encodes.
func bech32ConvertBits(data []byte, fromBits, toBits int, pad bool) ([]byte, error) {
	acc := 0
	bits := 0
	var ret []byte
	maxv := (1 << toBits) - 1

	for _, value := range data {
		acc = (acc << fromBits) | int(value)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			ret = append(ret, byte((acc>>bits)&maxv))
		}
	}

	if pad {
		if bits > 0 {
			ret = append(ret, byte((acc<<(toBits-bits))&maxv))
		}
	} else if bits >= fromBits || ((acc<<(toBits-bits))&maxv) != 0 {
		return nil, fmt.Errorf("%w: invalid padding", nostrerr.BadBech32)
	}

	return ret, nil
}

func bech32Polymod(values []int) int {
	gen := []int{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}
	chk := 1
	for _, v := range values {
		top := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ v
		for i := 0; i < 5; i++ {
			if (top>>i)&1 != 0 {
				chk ^= gen[i]
			}
		}
	}
	return chk
}

func bech32HrpExpand(hrp string) []int {
	ret := make([]int, 0, len(hrp)*2+1)
	for _, c := range hrp {
		ret = append(ret, int(c>>5))
	}
	ret = append(ret, 0)
	for _, c := range hrp {
		ret = append(ret, int(c&31))
	}
	return ret
}

func bech32CreateChecksum(hrp string, data []byte) []byte {
	values := bech32HrpExpand(hrp)
	for _, d := range data {
		values = append(values, int(d))
	}
	for i := 0; i < 6; i++ {
		values = append(values, 0)
	}
	polymod := bech32Polymod(values) ^ 1
	checksum := make([]byte, 6)
	for i := 0; i < 6; i++ {
		checksum[i] = byte((polymod >> (5 * (5 - i))) & 31)
	}
	return checksum
}

func bech32VerifyChecksum(hrp string, data []byte) bool {
	values := bech32HrpExpand(hrp)
	for _, d := range data {
		values = append(values, int(d))
	}
	return bech32Polymod(values) == 1
}

// EncodeBech32 bech32-encodes a 32-byte payload under hrp (one of
// "npub", "nsec", "note").
func EncodeBech32(hrp string, payload []byte) (string, error) {
	if len(payload) != 32 {
		return "", fmt.Errorf("%w: payload must be 32 bytes", nostrerr.BadBech32)
	}
	data, err := bech32ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32Encode(hrp, data), nil
}

// DecodeBech32 decodes a bech32 string with the expected hrp, returning
// its 32-byte payload.
func DecodeBech32(hrp, s string) ([]byte, error) {
	gotHRP, data, err := bech32Decode(s)
	if err != nil {
		return nil, err
	}
	if gotHRP != hrp {
		return nil, fmt.Errorf("%w: expected hrp %q, got %q", nostrerr.BadBech32, hrp, gotHRP)
	}
	payload, err := bech32ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, err
	}
	if len(payload) != 32 {
		return nil, fmt.Errorf("%w: payload must be 32 bytes", nostrerr.BadBech32)
	}
	return payload, nil
}
