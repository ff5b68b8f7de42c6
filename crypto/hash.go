package crypto

import (
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160"
)

// Sum returns sha256 of data.
func Sum(data []byte) Hash {
	return sha256.Sum256(data)
}

// Sum160 returns ripemd160 from sha256 of data. It is used for short
// node fingerprints in logs and peer bookkeeping.
func Sum160(data []byte) (h [20]byte) {
	h1 := sha256.Sum256(data)
	rp := ripemd160.New()
	_, _ = rp.Write(h1[:])
	copy(h[:], rp.Sum(nil))

	return
}
