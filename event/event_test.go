package event

import (
	"context"
	"testing"
	"time"

	"nostrkit/codec"
	"nostrkit/identity"
)

func TestToEventProducesVerifiableSignature(t *testing.T) {
	id, err := identity.FromHex("67dea2ed018072d675f5415ecfaed7d2597555e202d85b3d65ea4e58d2d92ffa")
	if err != nil {
		t.Fatalf("FromHex: %v", err)
	}

	p := NewPrepare(id, 1671217411, 1, nil, "hello")
	ev, err := ToEvent(id, p, 0)
	if err != nil {
		t.Fatalf("ToEvent: %v", err)
	}
	if len(ev.Tags) != 0 {
		t.Fatalf("tags = %v, want empty", ev.Tags)
	}
	if err := Verify(ev); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestToEventIsDeterministicGivenSameInputs(t *testing.T) {
	id, err := identity.FromHex("67dea2ed018072d675f5415ecfaed7d2597555e202d85b3d65ea4e58d2d92ffa")
	if err != nil {
		t.Fatalf("FromHex: %v", err)
	}

	p := NewPrepare(id, 1671217411, 1, [][]string{{"e", "deadbeef"}}, "hello")
	a, err := ToEvent(id, p, 0)
	if err != nil {
		t.Fatalf("ToEvent: %v", err)
	}
	b, err := ToEvent(id, p, 0)
	if err != nil {
		t.Fatalf("ToEvent: %v", err)
	}
	if a.ID != b.ID {
		t.Fatalf("id not deterministic: %s != %s", a.ID, b.ID)
	}
}

func TestVerifyRejectsTamperedContent(t *testing.T) {
	id, err := identity.GenerateRandom()
	if err != nil {
		t.Fatalf("GenerateRandom: %v", err)
	}
	p := NewPrepare(id, 1671217411, 1, nil, "hello")
	ev, err := ToEvent(id, p, 0)
	if err != nil {
		t.Fatalf("ToEvent: %v", err)
	}
	ev.Content = "goodbye"
	if err := Verify(ev); err == nil {
		t.Fatal("expected verification failure after tampering")
	}
}

func TestMineProducesTargetDifficulty(t *testing.T) {
	id, err := identity.GenerateRandom()
	if err != nil {
		t.Fatalf("GenerateRandom: %v", err)
	}
	p := NewPrepare(id, 1671217411, 1, nil, "mining")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	const difficulty = 8
	ev, err := MineWithContext(ctx, id, p, difficulty)
	if err != nil {
		t.Fatalf("MineWithContext: %v", err)
	}
	if err := Verify(ev); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	idBytes, err := codec.DecodeHex(ev.ID, 32)
	if err != nil {
		t.Fatalf("decode id: %v", err)
	}
	if got := LeadingZeroBits(idBytes); got < difficulty {
		t.Fatalf("leading zero bits = %d, want >= %d", got, difficulty)
	}

	last := ev.Tags[len(ev.Tags)-1]
	if last[0] != "nonce" || last[2] != "8" {
		t.Fatalf("nonce tag = %v, want [nonce <n> 8]", last)
	}
}

func TestLeadingZeroBits(t *testing.T) {
	cases := []struct {
		b    []byte
		want int
	}{
		{[]byte{0x00, 0x00}, 16},
		{[]byte{0x01}, 7},
		{[]byte{0x0f}, 4},
		{[]byte{0x80}, 0},
		{[]byte{}, 0},
	}
	for _, c := range cases {
		if got := LeadingZeroBits(c.b); got != c.want {
			t.Errorf("LeadingZeroBits(%v) = %d, want %d", c.b, got, c.want)
		}
	}
}
