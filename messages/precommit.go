package messages

import (
	"fmt"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/veles-chain/veles/crypto"
	"github.com/veles-chain/veles/encoding"
	"github.com/veles-chain/veles/types"
)

// Precommit is a pre-commit for a proposal.
//
// Validation: a node must never itself emit two different Precommits for the
// same round; attempting to is a fatal local defect. Conflicting Precommits
// from a remote validator are recorded as evidence and are never fatal.
//
// Processing: the pre-commit is added to the list of known pre-commits. If
// the proposal is unknown, ProposeRequest is sent in reply. If the message
// round is bigger than the node's locked round, the node replies with
// PrevotesRequest. If there are unknown transactions, TransactionsRequest is
// sent. Once +2/3 pre-commits for the same proposal share a block hash, the
// block is committed and Status is broadcast.
//
// Generation: a node broadcasts Precommit in response to Prevote when there
// are +2/3 pre-votes and nothing is left unresolved.
type Precommit struct {
	validator   types.ValidatorId
	height      types.Height
	round       types.Round
	proposeHash crypto.Hash
	blockHash   crypto.Hash
	time        time.Time
}

var precommitSchema = encoding.Schema{
	{Name: "validator", Kind: encoding.ValidatorId},
	{Name: "height", Kind: encoding.Height},
	{Name: "round", Kind: encoding.Round},
	{Name: "propose_hash", Kind: encoding.Hash},
	{Name: "block_hash", Kind: encoding.Hash},
	{Name: "time", Kind: encoding.Time},
}

// NewPrecommit returns a new Precommit message.
func NewPrecommit(validator types.ValidatorId, height types.Height, round types.Round, proposeHash, blockHash crypto.Hash, t time.Time) *Precommit {
	return &Precommit{
		validator:   validator,
		height:      height,
		round:       round,
		proposeHash: proposeHash,
		blockHash:   blockHash,
		time:        t.UTC(),
	}
}

// Type implements Payload interface.
func (p Precommit) Type() MessageType {
	return PrecommitType
}

// Validator implements ConsensusMessage interface.
func (p Precommit) Validator() types.ValidatorId {
	return p.validator
}

// Height implements ConsensusMessage interface.
func (p Precommit) Height() types.Height {
	return p.height
}

// Round implements ConsensusMessage interface.
func (p Precommit) Round() types.Round {
	return p.round
}

// ProposeHash returns the hash of the corresponding Propose.
func (p Precommit) ProposeHash() crypto.Hash {
	return p.proposeHash
}

// BlockHash returns the hash of the new block.
func (p Precommit) BlockHash() crypto.Hash {
	return p.blockHash
}

// Time returns the creation time of the pre-commit.
func (p Precommit) Time() time.Time {
	return p.time
}

// String implements fmt.Stringer interface.
func (p Precommit) String() string {
	return fmt.Sprintf("Precommit{validator: %s, height: %s, round: %s, block: %s}",
		p.validator, p.height, p.round, p.blockHash)
}

func (p *Precommit) fields() []any {
	return []any{&p.validator, &p.height, &p.round, &p.proposeHash, &p.blockHash, &p.time}
}

// EncodeBinary implements io.Serializable interface.
func (p Precommit) EncodeBinary(w *io.BinWriter) {
	encoding.Encode(w, precommitSchema, p.fields())
}

// DecodeBinary implements io.Serializable interface.
func (p *Precommit) DecodeBinary(r *io.BinReader) {
	encoding.Decode(r, precommitSchema, p.fields())
}
