// Package identity holds a secp256k1 keypair and exposes the BIP-340
// Schnorr signing operations Nostr events require.
package identity

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	"nostrkit/codec"
	"nostrkit/nostrerr"
)

// Identity pairs a secp256k1 secret scalar with its x-only public key.
// The public key always matches the secret key: it is derived once, at
// construction, and never set independently.
type Identity struct {
	secret    *btcec.PrivateKey
	publicHex string
}

// FromHex builds an Identity from a 32-byte hex secret key.
func FromHex(secretHex string) (*Identity, error) {
	b, err := codec.DecodeHex(secretHex, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", nostrerr.InvalidSecretKey, err)
	}
	secret, pub := btcec.PrivKeyFromBytes(b)
	pubBytes := pub.SerializeCompressed()[1:] // drop the 02/03 parity prefix: x-only

	return &Identity{
		secret:    secret,
		publicHex: codec.EncodeHex(pubBytes),
	}, nil
}

// FromBech32 builds an Identity from an "nsec1..." secret key.
func FromBech32(nsec string) (*Identity, error) {
	b, err := codec.DecodeBech32("nsec", nsec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", nostrerr.InvalidSecretKey, err)
	}
	return FromHex(codec.EncodeHex(b))
}

// GenerateRandom creates a new Identity from a fresh random secret key.
func GenerateRandom() (*Identity, error) {
	secret, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", nostrerr.CryptoError, err)
	}
	return FromHex(codec.EncodeHex(secret.Serialize()))
}

// PublicKeyHex returns the 64-char x-only public key hex.
func (id *Identity) PublicKeyHex() string {
	return id.publicHex
}

// SecretKeyHex returns the 32-byte secret key hex. Handle with care.
func (id *Identity) SecretKeyHex() string {
	return codec.EncodeHex(id.secret.Serialize())
}

// secretKey returns the raw *btcec.PrivateKey; other packages reach it
// through the exported SecretScalar.
func (id *Identity) secretKey() *btcec.PrivateKey {
	return id.secret
}

// SecretScalar returns the raw secret key for use by packages that need
// to perform their own elliptic-curve operations (ECDH for NIP-04/NIP-44).
func (id *Identity) SecretScalar() *btcec.PrivateKey {
	return id.secretKey()
}

// Sign produces a BIP-340 Schnorr signature over a 32-byte message
// (normally an event id).
func (id *Identity) Sign(msg []byte) ([]byte, error) {
	if len(msg) != 32 {
		return nil, fmt.Errorf("%w: message must be 32 bytes", nostrerr.MalformedField)
	}
	sig, err := schnorr.Sign(id.secret, msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", nostrerr.CryptoError, err)
	}
	return sig.Serialize(), nil
}
