package messages

import (
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/veles-chain/veles/crypto"
	"github.com/veles-chain/veles/encoding"
	"github.com/veles-chain/veles/types"
)

// Block is a block header: the result of a consensus round applied
// atomically to the chain. It carries the transaction count and the roots of
// the transaction and state trees, but not the transactions themselves.
// Both roots are computed by the schema and storage layer, not here.
type Block struct {
	schemaVersion uint16
	proposerId    types.ValidatorId
	height        types.Height
	txCount       uint32
	prevHash      crypto.Hash
	txHash        crypto.Hash
	stateHash     crypto.Hash
}

var blockSchema = encoding.Schema{
	{Name: "schema_version", Kind: encoding.U16},
	{Name: "proposer_id", Kind: encoding.ValidatorId},
	{Name: "height", Kind: encoding.Height},
	{Name: "tx_count", Kind: encoding.U32},
	{Name: "prev_hash", Kind: encoding.Hash},
	{Name: "tx_hash", Kind: encoding.Hash},
	{Name: "state_hash", Kind: encoding.Hash},
}

// NewBlock returns a new block header.
func NewBlock(schemaVersion uint16, proposerId types.ValidatorId, height types.Height, txCount uint32, prevHash, txHash, stateHash crypto.Hash) *Block {
	return &Block{
		schemaVersion: schemaVersion,
		proposerId:    proposerId,
		height:        height,
		txCount:       txCount,
		prevHash:      prevHash,
		txHash:        txHash,
		stateHash:     stateHash,
	}
}

// SchemaVersion returns the information schema version.
func (b Block) SchemaVersion() uint16 {
	return b.schemaVersion
}

// ProposerId returns the id of the block proposer.
func (b Block) ProposerId() types.ValidatorId {
	return b.proposerId
}

// Height returns the height of the block.
func (b Block) Height() types.Height {
	return b.height
}

// TxCount returns the number of transactions in the block.
func (b Block) TxCount() uint32 {
	return b.txCount
}

// PrevHash returns the hash link to the previous block.
func (b Block) PrevHash() crypto.Hash {
	return b.prevHash
}

// TxHash returns the root hash of the transaction tree of the block.
func (b Block) TxHash() crypto.Hash {
	return b.txHash
}

// StateHash returns the hash of the state after applying the block.
func (b Block) StateHash() crypto.Hash {
	return b.stateHash
}

// Hash returns the checksum of the canonical header encoding.
func (b Block) Hash() crypto.Hash {
	w := io.NewBufBinWriter()
	b.EncodeBinary(w.BinWriter)

	return crypto.Sum(w.Bytes())
}

// String implements fmt.Stringer interface.
func (b Block) String() string {
	return fmt.Sprintf("Block{height: %s, proposer: %s, txs: %d}", b.height, b.proposerId, b.txCount)
}

func (b *Block) fields() []any {
	return []any{&b.schemaVersion, &b.proposerId, &b.height, &b.txCount, &b.prevHash, &b.txHash, &b.stateHash}
}

// EncodeBinary implements io.Serializable interface.
func (b Block) EncodeBinary(w *io.BinWriter) {
	encoding.Encode(w, blockSchema, b.fields())
}

// DecodeBinary implements io.Serializable interface.
func (b *Block) DecodeBinary(r *io.BinReader) {
	encoding.Decode(r, blockSchema, b.fields())
}
