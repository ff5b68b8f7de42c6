// Package messages defines the closed set of wire messages exchanged between
// the nodes, the signed envelope carrying them and the canonical binary
// layout of each. Every message, unless stated otherwise, is checked by the
// same set of rules: it is ignored if it is sent from a lower height than the
// current one, contains an incorrect validator id or is signed with an
// incorrect signature. Specific nuances are described in each message
// documentation and typically consist of three parts: validation, processing
// and generation.
package messages

import (
	"reflect"

	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/pkg/errors"
	"github.com/veles-chain/veles/crypto"
	"github.com/veles-chain/veles/types"
)

type (
	// Payload is a concrete wire message which can be carried by the
	// Protocol union. The set of implementations is closed: the decode
	// dispatch only ever produces the types declared in this package.
	Payload interface {
		io.Serializable

		// Type returns the wire discriminant of this message.
		Type() MessageType
	}

	// ConsensusMessage is a view over the three-phase agreement messages:
	// Propose, Prevote and Precommit.
	ConsensusMessage interface {
		Payload

		// Validator returns the id of the message sender.
		Validator() types.ValidatorId
		// Height returns the height the message is related to.
		Height() types.Height
		// Round returns the round the message is related to.
		Round() types.Round
	}

	// RequestMessage is a view over the addressed messages: the data
	// requests and the responses to them. Each carries the public key of
	// its recipient; messages addressed to another node are ignored.
	RequestMessage interface {
		Payload

		// To returns the public key of the message recipient.
		To() crypto.PublicKey
	}

	// Protocol is the tagged union over every wire message kind. Encoding
	// writes the variant's discriminant followed by its field schema;
	// decoding is the structural inverse and round-trips exactly.
	Protocol struct {
		mtype   MessageType
		payload Payload
	}
)

// Wrap wraps a concrete message into a Protocol value.
func Wrap(p Payload) Protocol {
	return Protocol{mtype: p.Type(), payload: p}
}

// Type returns the discriminant of the wrapped message.
func (p Protocol) Type() MessageType {
	return p.mtype
}

// Payload returns the wrapped message.
func (p Protocol) Payload() Payload {
	return p.payload
}

// Consensus returns the wrapped message as a consensus message, if it is one.
func (p Protocol) Consensus() (ConsensusMessage, bool) {
	m, ok := p.payload.(ConsensusMessage)
	return m, ok
}

// Request returns the wrapped message as a request, if it is one.
func (p Protocol) Request() (RequestMessage, bool) {
	m, ok := p.payload.(RequestMessage)
	return m, ok
}

func (p Protocol) GetTransaction() *Transaction     { return p.payload.(*Transaction) }
func (p Protocol) GetConnect() *Connect             { return p.payload.(*Connect) }
func (p Protocol) GetStatus() *Status               { return p.payload.(*Status) }
func (p Protocol) GetBlockResponse() *BlockResponse { return p.payload.(*BlockResponse) }
func (p Protocol) GetTransactionsResponse() *TransactionsResponse {
	return p.payload.(*TransactionsResponse)
}
func (p Protocol) GetPropose() *Propose                 { return p.payload.(*Propose) }
func (p Protocol) GetPrevote() *Prevote                 { return p.payload.(*Prevote) }
func (p Protocol) GetPrecommit() *Precommit             { return p.payload.(*Precommit) }
func (p Protocol) GetProposeRequest() *ProposeRequest   { return p.payload.(*ProposeRequest) }
func (p Protocol) GetTransactionsRequest() *TransactionsRequest {
	return p.payload.(*TransactionsRequest)
}
func (p Protocol) GetPrevotesRequest() *PrevotesRequest { return p.payload.(*PrevotesRequest) }
func (p Protocol) GetPeersRequest() *PeersRequest       { return p.payload.(*PeersRequest) }
func (p Protocol) GetBlockRequest() *BlockRequest       { return p.payload.(*BlockRequest) }

// Equal reports whether both values wrap structurally equal messages of the
// same kind.
func (p Protocol) Equal(other Protocol) bool {
	return p.mtype == other.mtype && reflect.DeepEqual(p.payload, other.payload)
}

// EncodeBinary implements io.Serializable interface.
func (p Protocol) EncodeBinary(w *io.BinWriter) {
	w.WriteB(byte(p.mtype))
	p.payload.EncodeBinary(w)
}

// DecodeBinary implements io.Serializable interface.
func (p *Protocol) DecodeBinary(r *io.BinReader) {
	tag := MessageType(r.ReadB())
	if r.Err != nil {
		return
	}

	switch tag {
	case TransactionType:
		p.payload = new(Transaction)
	case ConnectType:
		p.payload = new(Connect)
	case StatusType:
		p.payload = new(Status)
	case BlockResponseType:
		p.payload = new(BlockResponse)
	case TransactionsResponseType:
		p.payload = new(TransactionsResponse)
	case ProposeType:
		p.payload = new(Propose)
	case PrevoteType:
		p.payload = new(Prevote)
	case PrecommitType:
		p.payload = new(Precommit)
	case ProposeRequestType:
		p.payload = new(ProposeRequest)
	case TransactionsRequestType:
		p.payload = new(TransactionsRequest)
	case PrevotesRequestType:
		p.payload = new(PrevotesRequest)
	case PeersRequestType:
		p.payload = new(PeersRequest)
	case BlockRequestType:
		p.payload = new(BlockRequest)
	default:
		r.Err = errors.Wrapf(ErrUnknownTag, "0x%02x", byte(tag))
		return
	}

	p.mtype = tag
	p.payload.DecodeBinary(r)
}
