// Package storage implements the canonical byte mapping used for hashing and
// persisting values. Encoding is total and deterministic: every node produces
// identical bytes for equal values, which keys and hashes derived from this
// codec rely on.
//
// Decoding operates on data the node itself wrote. A value which does not
// decode indicates local storage corruption or a programming defect, so
// decoding panics instead of returning an error; recovering silently here
// would risk consensus unsoundness.
package storage

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/veles-chain/veles/crypto"
	"github.com/veles-chain/veles/types"
)

// EncodeBool encodes v as a single 0/1 byte.
func EncodeBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

// DecodeBool is the inverse of EncodeBool. Any byte other than 0 or 1 is
// corruption.
func DecodeBool(data []byte) bool {
	checkLen("bool", data, 1)

	switch data[0] {
	case 0:
		return false
	case 1:
		return true
	default:
		panic("storage: invalid bool value")
	}
}

// EncodeUint8 encodes v as a single byte.
func EncodeUint8(v uint8) []byte {
	return []byte{v}
}

// DecodeUint8 is the inverse of EncodeUint8.
func DecodeUint8(data []byte) uint8 {
	checkLen("uint8", data, 1)
	return data[0]
}

// EncodeInt8 encodes v as a single byte.
func EncodeInt8(v int8) []byte {
	return []byte{byte(v)}
}

// DecodeInt8 is the inverse of EncodeInt8.
func DecodeInt8(data []byte) int8 {
	checkLen("int8", data, 1)
	return int8(data[0])
}

// EncodeUint16 uses little-endian encoding.
func EncodeUint16(v uint16) []byte {
	data := make([]byte, 2)
	binary.LittleEndian.PutUint16(data, v)
	return data
}

// DecodeUint16 is the inverse of EncodeUint16.
func DecodeUint16(data []byte) uint16 {
	checkLen("uint16", data, 2)
	return binary.LittleEndian.Uint16(data)
}

// EncodeInt16 uses little-endian encoding.
func EncodeInt16(v int16) []byte {
	return EncodeUint16(uint16(v))
}

// DecodeInt16 is the inverse of EncodeInt16.
func DecodeInt16(data []byte) int16 {
	return int16(DecodeUint16(data))
}

// EncodeUint32 uses little-endian encoding.
func EncodeUint32(v uint32) []byte {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, v)
	return data
}

// DecodeUint32 is the inverse of EncodeUint32.
func DecodeUint32(data []byte) uint32 {
	checkLen("uint32", data, 4)
	return binary.LittleEndian.Uint32(data)
}

// EncodeInt32 uses little-endian encoding.
func EncodeInt32(v int32) []byte {
	return EncodeUint32(uint32(v))
}

// DecodeInt32 is the inverse of EncodeInt32.
func DecodeInt32(data []byte) int32 {
	return int32(DecodeUint32(data))
}

// EncodeUint64 uses little-endian encoding.
func EncodeUint64(v uint64) []byte {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint64(data, v)
	return data
}

// DecodeUint64 is the inverse of EncodeUint64.
func DecodeUint64(data []byte) uint64 {
	checkLen("uint64", data, 8)
	return binary.LittleEndian.Uint64(data)
}

// EncodeInt64 uses little-endian encoding.
func EncodeInt64(v int64) []byte {
	return EncodeUint64(uint64(v))
}

// DecodeInt64 is the inverse of EncodeInt64.
func DecodeInt64(data []byte) int64 {
	return int64(DecodeUint64(data))
}

// EncodeHash encodes h as fixed-width raw bytes.
func EncodeHash(h crypto.Hash) []byte {
	data := make([]byte, crypto.HashSize)
	copy(data, h[:])
	return data
}

// DecodeHash is the inverse of EncodeHash.
func DecodeHash(data []byte) (h crypto.Hash) {
	checkLen("hash", data, crypto.HashSize)
	copy(h[:], data)
	return
}

// EncodePublicKey encodes pub as fixed-width raw bytes.
func EncodePublicKey(pub crypto.PublicKey) []byte {
	data := make([]byte, crypto.PublicKeySize)
	copy(data, pub[:])
	return data
}

// DecodePublicKey is the inverse of EncodePublicKey.
func DecodePublicKey(data []byte) (pub crypto.PublicKey) {
	checkLen("public key", data, crypto.PublicKeySize)
	copy(pub[:], data)
	return
}

// EncodeBytes passes v through unchanged.
func EncodeBytes(v []byte) []byte {
	data := make([]byte, len(v))
	copy(data, v)
	return data
}

// DecodeBytes is the inverse of EncodeBytes.
func DecodeBytes(data []byte) []byte {
	v := make([]byte, len(data))
	copy(v, data)
	return v
}

// EncodeString encodes v as raw UTF-8 bytes.
func EncodeString(v string) []byte {
	return []byte(v)
}

// DecodeString is the inverse of EncodeString. Invalid UTF-8 is corruption.
func DecodeString(data []byte) string {
	if !utf8.Valid(data) {
		panic("storage: invalid UTF-8 string")
	}
	return string(data)
}

// EncodeRound delegates to the little-endian encoding of the underlying
// counter.
func EncodeRound(r types.Round) []byte {
	return EncodeUint32(uint32(r))
}

// DecodeRound is the inverse of EncodeRound.
func DecodeRound(data []byte) types.Round {
	return types.Round(DecodeUint32(data))
}

// EncodeUUID encodes v as 16 raw bytes.
func EncodeUUID(v uuid.UUID) []byte {
	data := make([]byte, 16)
	copy(data, v[:])
	return data
}

// DecodeUUID is the inverse of EncodeUUID.
func DecodeUUID(data []byte) uuid.UUID {
	v, err := uuid.FromBytes(data)
	if err != nil {
		panic("storage: invalid UUID value: " + err.Error())
	}
	return v
}

func checkLen(what string, data []byte, n int) {
	if len(data) != n {
		panic("storage: invalid " + what + " length")
	}
}
