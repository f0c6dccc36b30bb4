package identity

import (
	"testing"

	"nostrkit/codec"
)

func TestFromHexKnownVector(t *testing.T) {
	id, err := FromHex("67dea2ed018072d675f5415ecfaed7d2597555e202d85b3d65ea4e58d2d92ffa")
	if err != nil {
		t.Fatalf("FromHex: %v", err)
	}
	want := "2f4fa408d85b962d1fe717daae148a4c98424ab2e10c7dd11927e101ed3257b2"
	if id.PublicKeyHex() != want {
		t.Fatalf("public key = %s, want %s", id.PublicKeyHex(), want)
	}

	npub, err := codec.EncodeBech32("npub", mustHex(t, id.PublicKeyHex()))
	if err != nil {
		t.Fatalf("EncodeBech32: %v", err)
	}
	got, err := codec.AutoToHex(npub)
	if err != nil {
		t.Fatalf("AutoToHex: %v", err)
	}
	if got != id.PublicKeyHex() {
		t.Fatalf("npub round trip = %s, want %s", got, id.PublicKeyHex())
	}
}

func TestGenerateRandomProducesValidKeypair(t *testing.T) {
	id, err := GenerateRandom()
	if err != nil {
		t.Fatalf("GenerateRandom: %v", err)
	}
	if len(id.PublicKeyHex()) != 64 {
		t.Fatalf("public key hex length = %d, want 64", len(id.PublicKeyHex()))
	}
}

func TestSignProducesVerifiableSignature(t *testing.T) {
	id, err := GenerateRandom()
	if err != nil {
		t.Fatalf("GenerateRandom: %v", err)
	}
	msg := make([]byte, 32)
	for i := range msg {
		msg[i] = byte(i)
	}
	sig, err := id.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(sig) != 64 {
		t.Fatalf("signature length = %d, want 64", len(sig))
	}
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := codec.DecodeHex(s, 32)
	if err != nil {
		t.Fatalf("DecodeHex: %v", err)
	}
	return b
}
