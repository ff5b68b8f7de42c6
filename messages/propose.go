package messages

import (
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/veles-chain/veles/crypto"
	"github.com/veles-chain/veles/encoding"
	"github.com/veles-chain/veles/types"
)

// Propose is a proposal for a new block.
//
// Validation: the message is ignored if it contains an incorrect prev_hash,
// is sent by a non-leader, contains already committed transactions or is
// already known.
//
// Processing: if the message contains unknown transactions,
// TransactionsRequest is sent in reply. Otherwise Prevote is broadcast.
//
// Generation: a node broadcasts Propose if it is the leader and is not
// locked to a different proposal. Propose can also be sent in reply to
// ProposeRequest.
type Propose struct {
	validator    types.ValidatorId
	height       types.Height
	round        types.Round
	prevHash     crypto.Hash
	transactions []crypto.Hash
}

var proposeSchema = encoding.Schema{
	{Name: "validator", Kind: encoding.ValidatorId},
	{Name: "height", Kind: encoding.Height},
	{Name: "round", Kind: encoding.Round},
	{Name: "prev_hash", Kind: encoding.Hash},
	{Name: "transactions", Kind: encoding.HashList},
}

// NewPropose returns a new Propose message.
func NewPropose(validator types.ValidatorId, height types.Height, round types.Round, prevHash crypto.Hash, transactions []crypto.Hash) *Propose {
	return &Propose{
		validator:    validator,
		height:       height,
		round:        round,
		prevHash:     prevHash,
		transactions: transactions,
	}
}

// Type implements Payload interface.
func (p Propose) Type() MessageType {
	return ProposeType
}

// Validator implements ConsensusMessage interface.
func (p Propose) Validator() types.ValidatorId {
	return p.validator
}

// Height implements ConsensusMessage interface.
func (p Propose) Height() types.Height {
	return p.height
}

// Round implements ConsensusMessage interface.
func (p Propose) Round() types.Round {
	return p.round
}

// PrevHash returns the hash of the previous block.
func (p Propose) PrevHash() crypto.Hash {
	return p.prevHash
}

// Transactions returns hashes of the transactions to include in the block.
func (p Propose) Transactions() []crypto.Hash {
	return p.transactions
}

// String implements fmt.Stringer interface.
func (p Propose) String() string {
	return fmt.Sprintf("Propose{validator: %s, height: %s, round: %s, txs: %d}",
		p.validator, p.height, p.round, len(p.transactions))
}

func (p *Propose) fields() []any {
	return []any{&p.validator, &p.height, &p.round, &p.prevHash, &p.transactions}
}

// EncodeBinary implements io.Serializable interface.
func (p Propose) EncodeBinary(w *io.BinWriter) {
	encoding.Encode(w, proposeSchema, p.fields())
}

// DecodeBinary implements io.Serializable interface.
func (p *Propose) DecodeBinary(r *io.BinReader) {
	encoding.Decode(r, proposeSchema, p.fields())
}
