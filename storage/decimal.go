package storage

import (
	"encoding/binary"
	"math/big"

	"github.com/shopspring/decimal"
)

// decimalSize is the fixed width of an encoded decimal: a 4-byte flag word
// (scale and sign) followed by a 96-bit little-endian coefficient.
const decimalSize = 16

const (
	decimalMaxScale = 28
	decimalSignBit  = 1 << 31
	decimalScaleOff = 16
)

// EncodeDecimal encodes v into its fixed 16-byte representation. The value
// must have a coefficient of at most 96 bits and a scale of at most 28,
// otherwise it cannot be persisted and encoding panics.
func EncodeDecimal(v decimal.Decimal) []byte {
	coef := new(big.Int).Set(v.Coefficient())
	exp := int64(v.Exponent())

	// Fold a positive exponent into the coefficient so scale is never
	// negative on the wire.
	if exp > 0 {
		coef.Mul(coef, new(big.Int).Exp(big.NewInt(10), big.NewInt(exp), nil))
		exp = 0
	}

	scale := uint32(-exp)
	if scale > decimalMaxScale {
		panic("storage: decimal scale out of range")
	}

	var flags uint32
	if coef.Sign() < 0 {
		flags |= decimalSignBit
		coef.Neg(coef)
	}
	flags |= scale << decimalScaleOff

	if coef.BitLen() > 96 {
		panic("storage: decimal coefficient out of range")
	}

	data := make([]byte, decimalSize)
	binary.LittleEndian.PutUint32(data[0:4], flags)

	mantissa := coef.Bytes() // big-endian
	for i, j := 0, len(mantissa)-1; j >= 0; i, j = i+1, j-1 {
		data[4+i] = mantissa[j]
	}

	return data
}

// DecodeDecimal is the inverse of EncodeDecimal.
func DecodeDecimal(data []byte) decimal.Decimal {
	checkLen("decimal", data, decimalSize)

	flags := binary.LittleEndian.Uint32(data[0:4])
	scale := (flags >> decimalScaleOff) & 0xff
	if scale > decimalMaxScale {
		panic("storage: invalid decimal scale")
	}

	mantissa := make([]byte, 12) // big-endian for big.Int
	for i := 0; i < 12; i++ {
		mantissa[i] = data[4+11-i]
	}

	coef := new(big.Int).SetBytes(mantissa)
	if flags&decimalSignBit != 0 {
		coef.Neg(coef)
	}

	return decimal.NewFromBigInt(coef, -int32(scale))
}
