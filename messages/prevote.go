package messages

import (
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/veles-chain/veles/crypto"
	"github.com/veles-chain/veles/encoding"
	"github.com/veles-chain/veles/types"
)

// Prevote is a pre-vote for a new block.
//
// Validation: a node must never itself emit two different Prevotes for the
// same round; attempting to is a fatal local defect. Conflicting Prevotes
// from a remote validator are recorded as evidence and are never fatal.
//
// Processing: the pre-vote is added to the list of known votes for the
// proposal. If locked_round in the message is bigger than in the node state,
// the node replies with PrevotesRequest. If the propose or some of its
// transactions are unknown, they are requested. Otherwise, once there are
// +2/3 pre-votes and all transactions are known, the node locks to the
// proposal and broadcasts Precommit.
//
// Generation: a node broadcasts Prevote in response to Propose once it has
// all the transactions.
type Prevote struct {
	validator   types.ValidatorId
	height      types.Height
	round       types.Round
	proposeHash crypto.Hash
	lockedRound types.Round
}

var prevoteSchema = encoding.Schema{
	{Name: "validator", Kind: encoding.ValidatorId},
	{Name: "height", Kind: encoding.Height},
	{Name: "round", Kind: encoding.Round},
	{Name: "propose_hash", Kind: encoding.Hash},
	{Name: "locked_round", Kind: encoding.Round},
}

// NewPrevote returns a new Prevote message.
func NewPrevote(validator types.ValidatorId, height types.Height, round types.Round, proposeHash crypto.Hash, lockedRound types.Round) *Prevote {
	return &Prevote{
		validator:   validator,
		height:      height,
		round:       round,
		proposeHash: proposeHash,
		lockedRound: lockedRound,
	}
}

// Type implements Payload interface.
func (p Prevote) Type() MessageType {
	return PrevoteType
}

// Validator implements ConsensusMessage interface.
func (p Prevote) Validator() types.ValidatorId {
	return p.validator
}

// Height implements ConsensusMessage interface.
func (p Prevote) Height() types.Height {
	return p.height
}

// Round implements ConsensusMessage interface.
func (p Prevote) Round() types.Round {
	return p.round
}

// ProposeHash returns the hash of the corresponding Propose.
func (p Prevote) ProposeHash() crypto.Hash {
	return p.proposeHash
}

// LockedRound returns the round the sender is locked to.
func (p Prevote) LockedRound() types.Round {
	return p.lockedRound
}

// String implements fmt.Stringer interface.
func (p Prevote) String() string {
	return fmt.Sprintf("Prevote{validator: %s, height: %s, round: %s, propose: %s}",
		p.validator, p.height, p.round, p.proposeHash)
}

func (p *Prevote) fields() []any {
	return []any{&p.validator, &p.height, &p.round, &p.proposeHash, &p.lockedRound}
}

// EncodeBinary implements io.Serializable interface.
func (p Prevote) EncodeBinary(w *io.BinWriter) {
	encoding.Encode(w, prevoteSchema, p.fields())
}

// DecodeBinary implements io.Serializable interface.
func (p *Prevote) DecodeBinary(r *io.BinReader) {
	encoding.Decode(r, prevoteSchema, p.fields())
}
