package codec

import "testing"

func TestBech32RoundTrip(t *testing.T) {
	hexes := []string{
		"2f4fa408d85b962d1fe717daae148a4c98424ab2e10c7dd11927e101ed3257b2",
		"67dea2ed018072d675f5415ecfaed7d2597555e202d85b3d65ea4e58d2d92ffa",
	}
	for _, hrp := range []string{"npub", "nsec", "note"} {
		for _, h := range hexes {
			b, err := DecodeHex(h, 32)
			if err != nil {
				t.Fatalf("DecodeHex(%s): %v", h, err)
			}
			enc, err := EncodeBech32(hrp, b)
			if err != nil {
				t.Fatalf("EncodeBech32: %v", err)
			}
			got, err := AutoToHex(enc)
			if err != nil {
				t.Fatalf("AutoToHex(%s): %v", enc, err)
			}
			if got != h {
				t.Errorf("round trip mismatch: got %s want %s", got, h)
			}
		}
	}
}

func TestAutoToHexPassesThroughHex(t *testing.T) {
	h := "2f4fa408d85b962d1fe717daae148a4c98424ab2e10c7dd11927e101ed3257b2"
	got, err := AutoToHex(h)
	if err != nil {
		t.Fatalf("AutoToHex: %v", err)
	}
	if got != h {
		t.Errorf("got %s want %s", got, h)
	}
}

func TestAutoToHexRejectsGarbage(t *testing.T) {
	if _, err := AutoToHex("not-a-valid-key"); err == nil {
		t.Fatal("expected error for malformed input")
	}
}

func TestBech32DecodeRejectsBadChecksum(t *testing.T) {
	good, _ := EncodeBech32("npub", make([]byte, 32))
	bad := good[:len(good)-1] + "x"
	if _, err := DecodeBech32("npub", bad); err == nil {
		t.Fatal("expected checksum error")
	}
}
