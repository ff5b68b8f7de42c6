// Package types defines the opaque counters identifying chain position,
// consensus round and validator slot.
package types

import "strconv"

type (
	// Height is a position of a block in the chain. It only grows.
	Height uint64

	// Round is a consensus attempt counter within a single height.
	Round uint32

	// ValidatorId is an index of a validator in the validator list.
	ValidatorId uint16
)

// Next returns the height of the following block.
func (h Height) Next() Height {
	return h + 1
}

// String implements fmt.Stringer interface.
func (h Height) String() string {
	return strconv.FormatUint(uint64(h), 10)
}

// Next returns the following round.
func (r Round) Next() Round {
	return r + 1
}

// String implements fmt.Stringer interface.
func (r Round) String() string {
	return strconv.FormatUint(uint64(r), 10)
}

// String implements fmt.Stringer interface.
func (v ValidatorId) String() string {
	return strconv.FormatUint(uint64(v), 10)
}
