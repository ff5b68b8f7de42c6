// Package crypto wraps the cryptographic primitives used by the protocol:
// ed25519 key pairs and signatures together with sha256-based hashing.
// All key, hash and signature values are fixed-width.
package crypto

import (
	"crypto/ed25519"
	"encoding/hex"
	"io"

	"github.com/pkg/errors"
)

const (
	// HashSize is a size of Hash in bytes.
	HashSize = 32
	// PublicKeySize is a size of PublicKey in bytes.
	PublicKeySize = ed25519.PublicKeySize
	// SecretKeySize is a size of SecretKey in bytes.
	SecretKeySize = ed25519.PrivateKeySize
	// SignatureSize is a size of Signature in bytes.
	SignatureSize = ed25519.SignatureSize
)

type (
	// Hash is a sha256 checksum of some data.
	Hash [HashSize]byte

	// PublicKey is an ed25519 public key identifying a node or a validator.
	PublicKey [PublicKeySize]byte

	// SecretKey is an ed25519 secret key. It never appears on the wire.
	SecretKey [SecretKeySize]byte

	// Signature is an ed25519 signature.
	Signature [SignatureSize]byte
)

// Generate generates a new key pair using r as a source of entropy.
func Generate(r io.Reader) (PublicKey, SecretKey, error) {
	var (
		pub PublicKey
		key SecretKey
	)

	p, k, err := ed25519.GenerateKey(r)
	if err != nil {
		return pub, key, errors.Wrap(err, "can't generate key pair")
	}

	copy(pub[:], p)
	copy(key[:], k)

	return pub, key, nil
}

// Sign signs data with the given secret key.
func Sign(data []byte, key SecretKey) (sig Signature) {
	copy(sig[:], ed25519.Sign(key[:], data))
	return
}

// Verify checks if sig is a valid signature of data by pub.
func Verify(sig Signature, pub PublicKey, data []byte) bool {
	return ed25519.Verify(pub[:], data, sig[:])
}

// PublicKeyFromBytes converts a slice to PublicKey.
func PublicKeyFromBytes(data []byte) (pub PublicKey, err error) {
	if len(data) != PublicKeySize {
		return pub, errors.Errorf("invalid public key length: %d", len(data))
	}

	copy(pub[:], data)
	return
}

// String implements fmt.Stringer interface.
func (p PublicKey) String() string {
	return hex.EncodeToString(p[:])
}

// HashFromBytes converts a slice to Hash.
func HashFromBytes(data []byte) (h Hash, err error) {
	if len(data) != HashSize {
		return h, errors.Errorf("invalid hash length: %d", len(data))
	}

	copy(h[:], data)
	return
}

// String implements fmt.Stringer interface.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// String implements fmt.Stringer interface.
func (s Signature) String() string {
	return hex.EncodeToString(s[:])
}
