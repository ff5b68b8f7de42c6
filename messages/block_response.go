package messages

import (
	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/veles-chain/veles/crypto"
	"github.com/veles-chain/veles/encoding"
)

// BlockResponse carries a committed block together with the pre-commits
// justifying it and the full transactions it includes.
//
// Validation: the message is ignored if its to field corresponds to a
// different node or if the block, the pre-commits or the transactions cannot
// be parsed and verified. The pre-commits must form a quorum consistent with
// the block hash.
//
// Processing: the block is appended to the chain.
//
// Generation: the message is sent in reply to BlockRequest.
type BlockResponse struct {
	to           crypto.PublicKey
	block        *Block
	precommits   []*SignedMessage
	transactions []*SignedMessage
}

var blockResponseSchema = encoding.Schema{
	{Name: "to", Kind: encoding.PublicKey},
	{Name: "block", Kind: encoding.Object},
	{Name: "precommits", Kind: encoding.ObjectList},
	{Name: "transactions", Kind: encoding.ObjectList},
}

// NewBlockResponse returns a new BlockResponse message.
func NewBlockResponse(to crypto.PublicKey, block *Block, precommits, transactions []*SignedMessage) *BlockResponse {
	return &BlockResponse{
		to:           to,
		block:        block,
		precommits:   precommits,
		transactions: transactions,
	}
}

// Type implements Payload interface.
func (b BlockResponse) Type() MessageType {
	return BlockResponseType
}

// To returns the public key of the recipient.
func (b BlockResponse) To() crypto.PublicKey {
	return b.to
}

// Block returns the block header.
func (b BlockResponse) Block() *Block {
	return b.block
}

// Precommits returns the signed pre-commits justifying the block.
func (b BlockResponse) Precommits() []*SignedMessage {
	return b.precommits
}

// Transactions returns the signed transactions of the block.
func (b BlockResponse) Transactions() []*SignedMessage {
	return b.transactions
}

func (b *BlockResponse) fields() []any {
	return []any{&b.to, b.block, &b.precommits, &b.transactions}
}

// EncodeBinary implements io.Serializable interface.
func (b BlockResponse) EncodeBinary(w *io.BinWriter) {
	encoding.Encode(w, blockResponseSchema, b.fields())
}

// DecodeBinary implements io.Serializable interface.
func (b *BlockResponse) DecodeBinary(r *io.BinReader) {
	if b.block == nil {
		b.block = new(Block)
	}

	encoding.Decode(r, blockResponseSchema, b.fields())
}
