// Package nip44 implements NIP-44 version 2 encryption: an ECDH
// conversation key extracted with HKDF-SHA256, per-message ChaCha20
// keys expanded from a random 32-byte nonce, and an HMAC-SHA256 MAC
// over the nonce and ciphertext.
package nip44

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"

	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/hkdf"

	"nostrkit/codec"
	"nostrkit/identity"
	"nostrkit/nostrerr"
)

const (
	version          = 2
	salt             = "nip44-v2"
	minPlaintextSize = 1
	maxPlaintextSize = 65535
)

// ConversationKey derives the shared key for a conversation between id
// and the counterparty's x-only public key hex: ECDH, then HKDF-Extract
// with the fixed nip44-v2 salt.
func ConversationKey(id *identity.Identity, counterpartyPubKeyHex string) ([]byte, error) {
	pubKeyBytes, err := codec.DecodeHex(counterpartyPubKeyHex, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", nostrerr.InvalidPublicKey, err)
	}

	pubKey, err := liftXOnly(pubKeyBytes)
	if err != nil {
		return nil, err
	}

	privKey := id.SecretScalar()
	sharedX, _ := pubKey.ToECDSA().Curve.ScalarMult(pubKey.X(), pubKey.Y(), privKey.Serialize())

	sharedXBytes := make([]byte, 32)
	raw := sharedX.Bytes()
	copy(sharedXBytes[32-len(raw):], raw)

	return hkdf.Extract(sha256.New, sharedXBytes, []byte(salt)), nil
}

func liftXOnly(xOnly []byte) (*btcec.PublicKey, error) {
	withPrefix := append([]byte{0x02}, xOnly...)
	pubKey, err := btcec.ParsePubKey(withPrefix)
	if err == nil {
		return pubKey, nil
	}
	withPrefix[0] = 0x03
	pubKey, err = btcec.ParsePubKey(withPrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", nostrerr.InvalidPublicKey, err)
	}
	return pubKey, nil
}

func messageKeys(conversationKey, nonce []byte) (chachaKey, chachaNonce, hmacKey []byte, err error) {
	if len(conversationKey) != 32 {
		return nil, nil, nil, fmt.Errorf("%w: conversation key must be 32 bytes", nostrerr.MalformedField)
	}
	if len(nonce) != 32 {
		return nil, nil, nil, fmt.Errorf("%w: nonce must be 32 bytes", nostrerr.MalformedField)
	}

	reader := hkdf.Expand(sha256.New, conversationKey, nonce)
	keys := make([]byte, 76)
	if _, err := reader.Read(keys); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", nostrerr.CryptoError, err)
	}
	return keys[0:32], keys[32:44], keys[44:76], nil
}

func paddedLen(unpaddedLen int) int {
	if unpaddedLen <= 32 {
		return 32
	}
	nextPower := 1 << bits.Len(uint(unpaddedLen-1))
	var chunk int
	if nextPower <= 256 {
		chunk = 32
	} else {
		chunk = nextPower / 8
	}
	return chunk * (int(math.Floor(float64(unpaddedLen-1)/float64(chunk))) + 1)
}

func pad(plaintext []byte) ([]byte, error) {
	n := len(plaintext)
	if n < minPlaintextSize || n > maxPlaintextSize {
		return nil, fmt.Errorf("%w: plaintext length %d out of range", nostrerr.MalformedField, n)
	}

	result := make([]byte, 2+paddedLen(n))
	binary.BigEndian.PutUint16(result[0:2], uint16(n))
	copy(result[2:], plaintext)
	return result, nil
}

func unpad(padded []byte) ([]byte, error) {
	if len(padded) < 2 {
		return nil, fmt.Errorf("%w: padded data too short", nostrerr.BadEncoding)
	}
	n := int(binary.BigEndian.Uint16(padded[0:2]))
	if n == 0 || n > len(padded)-2 {
		return nil, fmt.Errorf("%w: invalid padding length", nostrerr.BadEncoding)
	}
	if len(padded) != 2+paddedLen(n) {
		return nil, fmt.Errorf("%w: inconsistent padded length", nostrerr.BadEncoding)
	}
	return padded[2 : 2+n], nil
}

func hmacAAD(key, message, aad []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(aad)
	h.Write(message)
	return h.Sum(nil)
}

// Encrypt encrypts plaintext under conversationKey with a fresh random
// nonce, returning the base64-encoded version||nonce||ciphertext||mac
// payload.
func Encrypt(conversationKey []byte, plaintext string) (string, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("%w: %v", nostrerr.CryptoError, err)
	}
	return encryptWithNonce(conversationKey, plaintext, nonce)
}

func encryptWithNonce(conversationKey []byte, plaintext string, nonce []byte) (string, error) {
	chachaKey, chachaNonce, hmacKey, err := messageKeys(conversationKey, nonce)
	if err != nil {
		return "", err
	}

	padded, err := pad([]byte(plaintext))
	if err != nil {
		return "", err
	}

	stream, err := chacha20.NewUnauthenticatedCipher(chachaKey, chachaNonce)
	if err != nil {
		return "", fmt.Errorf("%w: %v", nostrerr.CryptoError, err)
	}
	ciphertext := make([]byte, len(padded))
	stream.XORKeyStream(ciphertext, padded)

	mac := hmacAAD(hmacKey, ciphertext, nonce)

	out := make([]byte, 1+32+len(ciphertext)+32)
	out[0] = version
	copy(out[1:33], nonce)
	copy(out[33:33+len(ciphertext)], ciphertext)
	copy(out[33+len(ciphertext):], mac)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt given the same conversationKey.
func Decrypt(conversationKey []byte, payload string) (string, error) {
	if len(payload) > 0 && payload[0] == '#' {
		return "", fmt.Errorf("%w: unsupported future encryption version marker", nostrerr.BadEncoding)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", nostrerr.BadEncoding, err)
	}
	if len(data) < 99 || len(data) > 65603 {
		return "", fmt.Errorf("%w: payload size %d out of range", nostrerr.BadEncoding, len(data))
	}

	if data[0] != version {
		return "", fmt.Errorf("%w: unknown version %d", nostrerr.BadEncoding, data[0])
	}
	nonce := data[1:33]
	ciphertext := data[33 : len(data)-32]
	mac := data[len(data)-32:]

	chachaKey, chachaNonce, hmacKey, err := messageKeys(conversationKey, nonce)
	if err != nil {
		return "", err
	}

	if !hmac.Equal(hmacAAD(hmacKey, ciphertext, nonce), mac) {
		return "", fmt.Errorf("%w: mac mismatch", nostrerr.BadSignature)
	}

	stream, err := chacha20.NewUnauthenticatedCipher(chachaKey, chachaNonce)
	if err != nil {
		return "", fmt.Errorf("%w: %v", nostrerr.CryptoError, err)
	}
	padded := make([]byte, len(ciphertext))
	stream.XORKeyStream(padded, ciphertext)

	plaintext, err := unpad(padded)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
