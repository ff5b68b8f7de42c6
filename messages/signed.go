package messages

import (
	"encoding/hex"

	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/pkg/errors"
	"github.com/veles-chain/veles/crypto"
)

// SignedMessage binds payload bytes to the author's public key and a
// signature over both. A SignedMessage never exists with an unchecked
// signature: incoming values are produced only by Verify, outgoing ones
// by Sign.
//
// The canonical frame is author key, payload, signature. The signature
// covers the frame up to and including the payload, so the author's
// identity claim is part of the signed bytes.
type SignedMessage struct {
	payload   []byte
	author    crypto.PublicKey
	signature crypto.Signature

	raw []byte
}

// minSignedLen is a frame with a one-byte payload: there is no valid
// zero-length message since every payload starts with a tag.
const minSignedLen = crypto.PublicKeySize + 1 + crypto.SignatureSize

// maxSignedLen bounds a single frame read out of a containing message.
const maxSignedLen = 1 << 22

// Sign frames payload with the author key and signs it with key.
func Sign(payload []byte, author crypto.PublicKey, key crypto.SecretKey) *SignedMessage {
	raw := make([]byte, 0, crypto.PublicKeySize+len(payload)+crypto.SignatureSize)
	raw = append(raw, author[:]...)
	raw = append(raw, payload...)

	sig := crypto.Sign(raw, key)
	raw = append(raw, sig[:]...)

	return &SignedMessage{
		payload:   raw[crypto.PublicKeySize : crypto.PublicKeySize+len(payload)],
		author:    author,
		signature: sig,
		raw:       raw,
	}
}

// Verify parses a signed frame and checks the signature over the embedded
// payload and author key. The embedded key is never trusted by itself: the
// signature is always recomputed against it.
func Verify(data []byte) (*SignedMessage, error) {
	if len(data) < minSignedLen {
		return nil, errors.Wrapf(ErrTooShort, "%d bytes, want at least %d", len(data), minSignedLen)
	}

	raw := make([]byte, len(data))
	copy(raw, data)

	signedLen := len(raw) - crypto.SignatureSize

	var (
		author crypto.PublicKey
		sig    crypto.Signature
	)
	copy(author[:], raw[:crypto.PublicKeySize])
	copy(sig[:], raw[signedLen:])

	if !crypto.Verify(sig, author, raw[:signedLen]) {
		return nil, ErrInvalidSignature
	}

	return &SignedMessage{
		payload:   raw[crypto.PublicKeySize:signedLen],
		author:    author,
		signature: sig,
		raw:       raw,
	}, nil
}

// Payload returns the exact bytes that were signed, without the frame.
func (m *SignedMessage) Payload() []byte {
	return m.payload
}

// Author returns the public key of the message author.
func (m *SignedMessage) Author() crypto.PublicKey {
	return m.author
}

// Signature returns the frame signature.
func (m *SignedMessage) Signature() crypto.Signature {
	return m.signature
}

// Bytes returns the canonical frame: the exact bytes the signature was
// checked over. No re-encoding happens here.
func (m *SignedMessage) Bytes() []byte {
	return m.raw
}

// Hex returns the canonical frame in hex for logs and debugging.
func (m *SignedMessage) Hex() string {
	return hex.EncodeToString(m.raw)
}

// Hash returns the identity hash of the message, a checksum of the
// canonical frame.
func (m *SignedMessage) Hash() crypto.Hash {
	return crypto.Sum(m.raw)
}

// IntoProtocol decodes the payload into a Protocol value. An unknown tag or
// a structurally inconsistent body is a decode error, never a panic.
func (m *SignedMessage) IntoProtocol() (Protocol, error) {
	var p Protocol

	r := io.NewBinReaderFromBuf(m.payload)
	p.DecodeBinary(r)
	if r.Err != nil {
		return Protocol{}, r.Err
	}

	if r.ReadB(); r.Err == nil {
		return Protocol{}, ErrTrailingData
	}

	return p, nil
}

// EncodeBinary implements io.Serializable interface: the frame is written
// as a length-prefixed blob inside a containing message.
func (m *SignedMessage) EncodeBinary(w *io.BinWriter) {
	w.WriteVarBytes(m.raw)
}

// DecodeBinary implements io.Serializable interface. The signature is
// checked during decoding, so signed messages nested in other messages
// never surface unverified.
func (m *SignedMessage) DecodeBinary(r *io.BinReader) {
	data := r.ReadVarBytes(maxSignedLen)
	if r.Err != nil {
		return
	}

	sm, err := Verify(data)
	if err != nil {
		r.Err = err
		return
	}

	*m = *sm
}
