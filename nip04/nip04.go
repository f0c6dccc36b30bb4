// Package nip04 implements encrypted direct messages: an ECDH shared
// secret between sender and recipient, and AES-256-CBC payload
// encryption in the "ciphertext?iv=base64iv" wire form.
package nip04

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"

	"nostrkit/codec"
	"nostrkit/identity"
	"nostrkit/nostrerr"
)

// SharedSecret derives the AES-256 key for a conversation between id
// and the counterparty's x-only public key hex, via ECDH followed by
// SHA-256 of the shared point's x-coordinate (the NIP-04 construction;
// unlike NIP-44 there is no HKDF step).
func SharedSecret(id *identity.Identity, counterpartyPubKeyHex string) ([]byte, error) {
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

	key := sha256.Sum256(sharedXBytes)
	return key[:], nil
}

// liftXOnly recovers a full public key point from its x-only
// representation, trying the even-y (0x02) and odd-y (0x03) prefixes
// in turn since an x-only key does not itself record parity.
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

// Encrypt encrypts plaintext under key, producing the wire-form string
// "base64(ciphertext)?iv=base64(iv)".
func Encrypt(key []byte, plaintext string) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", nostrerr.CryptoError, err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("%w: %v", nostrerr.CryptoError, err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return base64.StdEncoding.EncodeToString(ciphertext) + "?iv=" + base64.StdEncoding.EncodeToString(iv), nil
}

// Decrypt reverses Encrypt given the same key and its wire-form output.
func Decrypt(key []byte, wireForm string) (string, error) {
	ctB64, ivB64, ok := strings.Cut(wireForm, "?iv=")
	if !ok {
		return "", fmt.Errorf("%w: missing ?iv= separator", nostrerr.BadEncoding)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(ctB64)
	if err != nil {
		return "", fmt.Errorf("%w: %v", nostrerr.BadEncoding, err)
	}
	iv, err := base64.StdEncoding.DecodeString(ivB64)
	if err != nil {
		return "", fmt.Errorf("%w: %v", nostrerr.BadEncoding, err)
	}
	if len(iv) != aes.BlockSize {
		return "", fmt.Errorf("%w: iv must be %d bytes", nostrerr.BadEncoding, aes.BlockSize)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext is not block-aligned", nostrerr.BadEncoding)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", nostrerr.CryptoError, err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := make([]byte, padLen)
	for i := range padding {
		padding[i] = byte(padLen)
	}
	return append(data, padding...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("%w: invalid padded length", nostrerr.BadEncoding)
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, fmt.Errorf("%w: invalid padding", nostrerr.BadEncoding)
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("%w: invalid padding", nostrerr.BadEncoding)
		}
	}
	return data[:len(data)-padLen], nil
}
