package storage

import (
	"encoding/binary"
	"time"
)

// timeSize is 8 bytes of seconds plus 4 bytes of nanoseconds.
const timeSize = 12

// EncodeTime encodes t as little-endian signed seconds since epoch followed
// by a little-endian nanosecond remainder.
func EncodeTime(t time.Time) []byte {
	data := make([]byte, timeSize)
	binary.LittleEndian.PutUint64(data[0:8], uint64(t.Unix()))
	binary.LittleEndian.PutUint32(data[8:12], uint32(t.Nanosecond()))
	return data
}

// DecodeTime is the inverse of EncodeTime.
func DecodeTime(data []byte) time.Time {
	checkLen("time", data, timeSize)

	secs := int64(binary.LittleEndian.Uint64(data[0:8]))
	nanos := binary.LittleEndian.Uint32(data[8:12])

	return time.Unix(secs, int64(nanos)).UTC()
}
