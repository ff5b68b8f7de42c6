package messages

import (
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/veles-chain/veles/crypto"
	"github.com/veles-chain/veles/encoding"
	"github.com/veles-chain/veles/types"
)

// Status is the current node status.
//
// Validation: the message is ignored if its signature is incorrect or its
// height is lower than the node's height.
//
// Processing: if the height is bigger than the node's one, BlockRequest with
// the node's height is sent in reply.
//
// Generation: Status is broadcast regularly and after accepting a new block.
type Status struct {
	height   types.Height
	lastHash crypto.Hash
}

var statusSchema = encoding.Schema{
	{Name: "height", Kind: encoding.Height},
	{Name: "last_hash", Kind: encoding.Hash},
}

// NewStatus returns a new Status message.
func NewStatus(height types.Height, lastHash crypto.Hash) *Status {
	return &Status{height: height, lastHash: lastHash}
}

// Type implements Payload interface.
func (s Status) Type() MessageType {
	return StatusType
}

// Height returns the height the status is related to.
func (s Status) Height() types.Height {
	return s.height
}

// LastHash returns the hash of the last committed block.
func (s Status) LastHash() crypto.Hash {
	return s.lastHash
}

// String implements fmt.Stringer interface.
func (s Status) String() string {
	return fmt.Sprintf("Status{height: %s, last_hash: %s}", s.height, s.lastHash)
}

func (s *Status) fields() []any {
	return []any{&s.height, &s.lastHash}
}

// EncodeBinary implements io.Serializable interface.
func (s Status) EncodeBinary(w *io.BinWriter) {
	encoding.Encode(w, statusSchema, s.fields())
}

// DecodeBinary implements io.Serializable interface.
func (s *Status) DecodeBinary(r *io.BinReader) {
	encoding.Decode(r, statusSchema, s.fields())
}
