// Package event builds, signs, and verifies Nostr events: canonical id
// derivation, Schnorr signing, and NIP-13 proof-of-work mining.
package event

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	"nostrkit/codec"
	"nostrkit/identity"
	"nostrkit/nostrerr"
)

// Prepare is an unsigned event draft. Tags preserve insertion order;
// that order is semantic and carried through to the signed Event.
type Prepare struct {
	PubKey    string
	CreatedAt uint64
	Kind      uint16
	Tags      [][]string
	Content   string
}

// NewPrepare builds a draft ready to sign, filling in the pubkey from
// id. Tags defaults to an empty (not nil) slice so it serializes as []
// rather than null.
func NewPrepare(id *identity.Identity, createdAt uint64, kind uint16, tags [][]string, content string) Prepare {
	if tags == nil {
		tags = [][]string{}
	}
	return Prepare{
		PubKey:    id.PublicKeyHex(),
		CreatedAt: createdAt,
		Kind:      kind,
		Tags:      tags,
		Content:   content,
	}
}

// Event is a signed, immutable Nostr event. Value type: safe to copy.
type Event struct {
	ID        string     `json:"id"`
	PubKey    string     `json:"pubkey"`
	CreatedAt uint64     `json:"created_at"`
	Kind      uint16     `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`

	// RelaysSeen is populated by the session manager when delivering an
	// inbound event; it is not part of the wire format.
	RelaysSeen []string `json:"-"`
}

// computeID returns the raw 32-byte SHA-256 of the canonical preimage.
func computeID(p Prepare) ([32]byte, error) {
	preimage, err := codec.CanonicalPreimage(p.PubKey, p.CreatedAt, p.Kind, p.Tags, p.Content)
	if err != nil {
		return [32]byte{}, fmt.Errorf("%w: %v", nostrerr.MalformedField, err)
	}
	return sha256.Sum256(preimage), nil
}

// ToEvent signs p with id, producing a complete Event. If powDifficulty
// is 0 this is a single hash-and-sign; otherwise it mines (see pow.go).
func ToEvent(id *identity.Identity, p Prepare, powDifficulty uint16) (Event, error) {
	if powDifficulty == 0 {
		return signOnce(id, p)
	}
	return mine(id, p, powDifficulty, nil)
}

func signOnce(id *identity.Identity, p Prepare) (Event, error) {
	idBytes, err := computeID(p)
	if err != nil {
		return Event{}, err
	}
	sig, err := id.Sign(idBytes[:])
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:        codec.EncodeHex(idBytes[:]),
		PubKey:    p.PubKey,
		CreatedAt: p.CreatedAt,
		Kind:      p.Kind,
		Tags:      p.Tags,
		Content:   p.Content,
		Sig:       codec.EncodeHex(sig),
	}, nil
}

// Verify recomputes the canonical id and checks the Schnorr signature.
func Verify(e Event) error {
	p := Prepare{
		PubKey:    e.PubKey,
		CreatedAt: e.CreatedAt,
		Kind:      e.Kind,
		Tags:      e.Tags,
		Content:   e.Content,
	}
	idBytes, err := computeID(p)
	if err != nil {
		return err
	}
	computedID := codec.EncodeHex(idBytes[:])
	if computedID != e.ID {
		return fmt.Errorf("%w: computed %s, event has %s", nostrerr.IDMismatch, computedID, e.ID)
	}

	sigBytes, err := codec.DecodeHex(e.Sig, 64)
	if err != nil {
		return fmt.Errorf("%w: %v", nostrerr.MalformedField, err)
	}
	pubKeyBytes, err := codec.DecodeHex(e.PubKey, 32)
	if err != nil {
		return fmt.Errorf("%w: %v", nostrerr.MalformedField, err)
	}

	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return fmt.Errorf("%w: %v", nostrerr.BadSignature, err)
	}
	pubKey, err := schnorr.ParsePubKey(pubKeyBytes)
	if err != nil {
		return fmt.Errorf("%w: %v", nostrerr.BadSignature, err)
	}
	if !sig.Verify(idBytes[:], pubKey) {
		return fmt.Errorf("%w: schnorr verification failed", nostrerr.BadSignature)
	}
	return nil
}

// LeadingZeroBits counts the leading zero bits of b, most-significant
// bit first, as required by NIP-13 difficulty checks.
func LeadingZeroBits(b []byte) int {
	count := 0
	for _, by := range b {
		if by == 0 {
			count += 8
			continue
		}
		for mask := byte(0x80); mask > 0; mask >>= 1 {
			if by&mask != 0 {
				return count
			}
			count++
		}
	}
	return count
}
