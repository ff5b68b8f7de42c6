// Package encoding implements a declarative description of wire message
// layouts. A message declares an ordered Schema of named, semantically typed
// fields; a single generic routine walks the schema and drives the actual
// byte placement, which is delegated to the neo-go binary reader/writer.
//
// Schemas are part of the program, not of the input: any disagreement between
// a schema and the field list it is applied to is a programming defect and
// panics. Malformed input never panics, it surfaces through the reader error.
package encoding

import (
	"reflect"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/pkg/errors"
	"github.com/veles-chain/veles/crypto"
	"github.com/veles-chain/veles/types"
)

// Kind is a semantic type of a single field.
type Kind byte

const (
	// Bool is a single 0/1 byte.
	Bool Kind = iota
	// U8 is a single byte.
	U8
	// U16 is a little-endian uint16.
	U16
	// U32 is a little-endian uint32.
	U32
	// U64 is a little-endian uint64.
	U64
	// I64 is a little-endian int64.
	I64
	// Height is types.Height as a little-endian uint64.
	Height
	// Round is types.Round as a little-endian uint32.
	Round
	// ValidatorId is types.ValidatorId as a little-endian uint16.
	ValidatorId
	// Hash is a fixed-width raw crypto.Hash.
	Hash
	// PublicKey is a fixed-width raw crypto.PublicKey.
	PublicKey
	// Signature is a fixed-width raw crypto.Signature.
	Signature
	// Bytes is a length-prefixed byte sequence.
	Bytes
	// String is a length-prefixed UTF-8 string.
	String
	// Time is 8-byte little-endian seconds since epoch followed by
	// a 4-byte little-endian nanosecond remainder.
	Time
	// HashList is a var-uint count followed by fixed-width raw hashes.
	HashList
	// BitField is a length-prefixed validator bit set.
	BitField
	// Object is a nested structure with its own binary layout.
	Object
	// ObjectList is a var-uint count followed by nested structures.
	ObjectList
)

// maxHashList bounds decoded hash list length before allocation.
const maxHashList = 1 << 16

type (
	// Field is a single named field of a message.
	Field struct {
		Name string
		Kind Kind
	}

	// Schema is an ordered list of message fields.
	Schema []Field
)

// Encode writes vals to w according to schema s. Every element of vals must
// be a pointer to the field matching the schema entry at the same position.
func Encode(w *io.BinWriter, s Schema, vals []any) {
	checkArity(s, vals)

	for i, f := range s {
		encodeField(w, f, vals[i])
	}
}

// Decode reads fields from r into vals according to schema s. Every element
// of vals must be a pointer to the field matching the schema entry at the
// same position. On malformed input r.Err is set and the remaining fields
// are left untouched.
func Decode(r *io.BinReader, s Schema, vals []any) {
	checkArity(s, vals)

	for i, f := range s {
		if r.Err != nil {
			return
		}

		decodeField(r, f, vals[i])
	}
}

func checkArity(s Schema, vals []any) {
	if len(s) != len(vals) {
		panic(errors.Errorf("schema has %d fields, got %d values", len(s), len(vals)))
	}
}

func encodeField(w *io.BinWriter, f Field, v any) {
	switch f.Kind {
	case Bool:
		w.WriteBool(*v.(*bool))
	case U8:
		w.WriteB(*v.(*uint8))
	case U16:
		w.WriteU16LE(*v.(*uint16))
	case U32:
		w.WriteU32LE(*v.(*uint32))
	case U64:
		w.WriteU64LE(*v.(*uint64))
	case I64:
		w.WriteU64LE(uint64(*v.(*int64)))
	case Height:
		w.WriteU64LE(uint64(*v.(*types.Height)))
	case Round:
		w.WriteU32LE(uint32(*v.(*types.Round)))
	case ValidatorId:
		w.WriteU16LE(uint16(*v.(*types.ValidatorId)))
	case Hash:
		h := v.(*crypto.Hash)
		w.WriteBytes(h[:])
	case PublicKey:
		p := v.(*crypto.PublicKey)
		w.WriteBytes(p[:])
	case Signature:
		s := v.(*crypto.Signature)
		w.WriteBytes(s[:])
	case Bytes:
		w.WriteVarBytes(*v.(*[]byte))
	case String:
		w.WriteString(*v.(*string))
	case Time:
		t := *v.(*time.Time)
		w.WriteU64LE(uint64(t.Unix()))
		w.WriteU32LE(uint32(t.Nanosecond()))
	case HashList:
		hs := *v.(*[]crypto.Hash)
		w.WriteVarUint(uint64(len(hs)))
		for i := range hs {
			w.WriteBytes(hs[i][:])
		}
	case BitField:
		bs := *v.(**bitset.BitSet)
		if bs == nil {
			bs = bitset.New(0)
		}
		data, err := bs.MarshalBinary()
		if err != nil {
			w.Err = err
			return
		}
		w.WriteVarBytes(data)
	case Object:
		v.(io.Serializable).EncodeBinary(w)
	case ObjectList:
		w.WriteArray(reflect.ValueOf(v).Elem().Interface())
	default:
		panic(errors.Errorf("field %q has unknown kind %d", f.Name, f.Kind))
	}
}

func decodeField(r *io.BinReader, f Field, v any) {
	switch f.Kind {
	case Bool:
		*v.(*bool) = r.ReadBool()
	case U8:
		*v.(*uint8) = r.ReadB()
	case U16:
		*v.(*uint16) = r.ReadU16LE()
	case U32:
		*v.(*uint32) = r.ReadU32LE()
	case U64:
		*v.(*uint64) = r.ReadU64LE()
	case I64:
		*v.(*int64) = int64(r.ReadU64LE())
	case Height:
		*v.(*types.Height) = types.Height(r.ReadU64LE())
	case Round:
		*v.(*types.Round) = types.Round(r.ReadU32LE())
	case ValidatorId:
		*v.(*types.ValidatorId) = types.ValidatorId(r.ReadU16LE())
	case Hash:
		h := v.(*crypto.Hash)
		r.ReadBytes(h[:])
	case PublicKey:
		p := v.(*crypto.PublicKey)
		r.ReadBytes(p[:])
	case Signature:
		s := v.(*crypto.Signature)
		r.ReadBytes(s[:])
	case Bytes:
		*v.(*[]byte) = r.ReadVarBytes()
	case String:
		*v.(*string) = r.ReadString()
	case Time:
		secs := int64(r.ReadU64LE())
		nanos := r.ReadU32LE()
		if r.Err == nil {
			*v.(*time.Time) = time.Unix(secs, int64(nanos)).UTC()
		}
	case HashList:
		n := r.ReadVarUint()
		if r.Err != nil {
			return
		}
		if n > maxHashList {
			r.Err = errors.Errorf("field %q: list of %d hashes is too long", f.Name, n)
			return
		}
		hs := make([]crypto.Hash, n)
		for i := range hs {
			r.ReadBytes(hs[i][:])
		}
		if r.Err == nil {
			*v.(*[]crypto.Hash) = hs
		}
	case BitField:
		data := r.ReadVarBytes()
		if r.Err != nil {
			return
		}
		bs := new(bitset.BitSet)
		if err := bs.UnmarshalBinary(data); err != nil {
			r.Err = errors.Wrapf(err, "field %q", f.Name)
			return
		}
		*v.(**bitset.BitSet) = bs
	case Object:
		v.(io.Serializable).DecodeBinary(r)
	case ObjectList:
		r.ReadArray(v)
	default:
		panic(errors.Errorf("field %q has unknown kind %d", f.Name, f.Kind))
	}
}
