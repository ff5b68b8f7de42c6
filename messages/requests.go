package messages

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/veles-chain/veles/crypto"
	"github.com/veles-chain/veles/encoding"
	"github.com/veles-chain/veles/types"
)

// ProposeRequest is a request for a Propose.
//
// Validation: the message is ignored if its height is not equal to the
// node's height.
//
// Processing: Propose is sent in reply.
//
// Generation: a node can send ProposeRequest during Prevote and Precommit
// handling.
type ProposeRequest struct {
	to          crypto.PublicKey
	height      types.Height
	proposeHash crypto.Hash
}

var proposeRequestSchema = encoding.Schema{
	{Name: "to", Kind: encoding.PublicKey},
	{Name: "height", Kind: encoding.Height},
	{Name: "propose_hash", Kind: encoding.Hash},
}

// NewProposeRequest returns a new ProposeRequest message.
func NewProposeRequest(to crypto.PublicKey, height types.Height, proposeHash crypto.Hash) *ProposeRequest {
	return &ProposeRequest{to: to, height: height, proposeHash: proposeHash}
}

// Type implements Payload interface.
func (p ProposeRequest) Type() MessageType {
	return ProposeRequestType
}

// To implements RequestMessage interface.
func (p ProposeRequest) To() crypto.PublicKey {
	return p.to
}

// Height returns the height the request is related to.
func (p ProposeRequest) Height() types.Height {
	return p.height
}

// ProposeHash returns the hash of the requested Propose.
func (p ProposeRequest) ProposeHash() crypto.Hash {
	return p.proposeHash
}

func (p *ProposeRequest) fields() []any {
	return []any{&p.to, &p.height, &p.proposeHash}
}

// EncodeBinary implements io.Serializable interface.
func (p ProposeRequest) EncodeBinary(w *io.BinWriter) {
	encoding.Encode(w, proposeRequestSchema, p.fields())
}

// DecodeBinary implements io.Serializable interface.
func (p *ProposeRequest) DecodeBinary(r *io.BinReader) {
	encoding.Decode(r, proposeRequestSchema, p.fields())
}

// TransactionsRequest is a request for transactions by hash.
//
// Processing: the requested transactions known to the node are sent to the
// recipient.
//
// Generation: the message can be sent during Propose, Prevote and Precommit
// handling.
type TransactionsRequest struct {
	to  crypto.PublicKey
	txs []crypto.Hash
}

var transactionsRequestSchema = encoding.Schema{
	{Name: "to", Kind: encoding.PublicKey},
	{Name: "txs", Kind: encoding.HashList},
}

// NewTransactionsRequest returns a new TransactionsRequest message.
func NewTransactionsRequest(to crypto.PublicKey, txs []crypto.Hash) *TransactionsRequest {
	return &TransactionsRequest{to: to, txs: txs}
}

// Type implements Payload interface.
func (t TransactionsRequest) Type() MessageType {
	return TransactionsRequestType
}

// To implements RequestMessage interface.
func (t TransactionsRequest) To() crypto.PublicKey {
	return t.to
}

// Transactions returns the hashes of the requested transactions.
func (t TransactionsRequest) Transactions() []crypto.Hash {
	return t.txs
}

func (t *TransactionsRequest) fields() []any {
	return []any{&t.to, &t.txs}
}

// EncodeBinary implements io.Serializable interface.
func (t TransactionsRequest) EncodeBinary(w *io.BinWriter) {
	encoding.Encode(w, transactionsRequestSchema, t.fields())
}

// DecodeBinary implements io.Serializable interface.
func (t *TransactionsRequest) DecodeBinary(r *io.BinReader) {
	encoding.Decode(r, transactionsRequestSchema, t.fields())
}

// PrevotesRequest is a request for pre-votes.
//
// Validation: the message is ignored if its height is not equal to the
// node's height.
//
// Processing: the pre-votes the requester is missing are sent in reply.
//
// Generation: the message can be sent during Prevote and Precommit handling.
type PrevotesRequest struct {
	to          crypto.PublicKey
	height      types.Height
	round       types.Round
	proposeHash crypto.Hash
	validators  *bitset.BitSet
}

var prevotesRequestSchema = encoding.Schema{
	{Name: "to", Kind: encoding.PublicKey},
	{Name: "height", Kind: encoding.Height},
	{Name: "round", Kind: encoding.Round},
	{Name: "propose_hash", Kind: encoding.Hash},
	{Name: "validators", Kind: encoding.BitField},
}

// NewPrevotesRequest returns a new PrevotesRequest message. A set bit in
// validators marks a validator whose Prevote the requester already has.
func NewPrevotesRequest(to crypto.PublicKey, height types.Height, round types.Round, proposeHash crypto.Hash, validators *bitset.BitSet) *PrevotesRequest {
	if validators == nil {
		validators = bitset.New(0)
	}

	return &PrevotesRequest{
		to:          to,
		height:      height,
		round:       round,
		proposeHash: proposeHash,
		validators:  validators,
	}
}

// Type implements Payload interface.
func (p PrevotesRequest) Type() MessageType {
	return PrevotesRequestType
}

// To implements RequestMessage interface.
func (p PrevotesRequest) To() crypto.PublicKey {
	return p.to
}

// Height returns the height the request is related to.
func (p PrevotesRequest) Height() types.Height {
	return p.height
}

// Round returns the round the request is related to.
func (p PrevotesRequest) Round() types.Round {
	return p.round
}

// ProposeHash returns the hash of the Propose the pre-votes are for.
func (p PrevotesRequest) ProposeHash() crypto.Hash {
	return p.proposeHash
}

// Validators returns the bit set of validators whose pre-votes the
// requester already has.
func (p PrevotesRequest) Validators() *bitset.BitSet {
	return p.validators
}

func (p *PrevotesRequest) fields() []any {
	return []any{&p.to, &p.height, &p.round, &p.proposeHash, &p.validators}
}

// EncodeBinary implements io.Serializable interface.
func (p PrevotesRequest) EncodeBinary(w *io.BinWriter) {
	encoding.Encode(w, prevotesRequestSchema, p.fields())
}

// DecodeBinary implements io.Serializable interface.
func (p *PrevotesRequest) DecodeBinary(r *io.BinReader) {
	encoding.Decode(r, prevotesRequestSchema, p.fields())
}

// PeersRequest asks a node for its connected peers.
//
// Processing: the stored peer Connect messages are sent to the recipient.
//
// Generation: PeersRequest is sent regularly by the node maintenance loop.
type PeersRequest struct {
	to crypto.PublicKey
}

var peersRequestSchema = encoding.Schema{
	{Name: "to", Kind: encoding.PublicKey},
}

// NewPeersRequest returns a new PeersRequest message.
func NewPeersRequest(to crypto.PublicKey) *PeersRequest {
	return &PeersRequest{to: to}
}

// Type implements Payload interface.
func (p PeersRequest) Type() MessageType {
	return PeersRequestType
}

// To implements RequestMessage interface.
func (p PeersRequest) To() crypto.PublicKey {
	return p.to
}

func (p *PeersRequest) fields() []any {
	return []any{&p.to}
}

// EncodeBinary implements io.Serializable interface.
func (p PeersRequest) EncodeBinary(w *io.BinWriter) {
	encoding.Encode(w, peersRequestSchema, p.fields())
}

// DecodeBinary implements io.Serializable interface.
func (p *PeersRequest) DecodeBinary(r *io.BinReader) {
	encoding.Decode(r, peersRequestSchema, p.fields())
}

// BlockRequest is a request for the committed block at the given height.
//
// Validation: the message is ignored if its height is bigger than the
// node's height.
//
// Processing: BlockResponse is sent in reply.
//
// Generation: the message can be sent during Status processing.
type BlockRequest struct {
	to     crypto.PublicKey
	height types.Height
}

var blockRequestSchema = encoding.Schema{
	{Name: "to", Kind: encoding.PublicKey},
	{Name: "height", Kind: encoding.Height},
}

// NewBlockRequest returns a new BlockRequest message.
func NewBlockRequest(to crypto.PublicKey, height types.Height) *BlockRequest {
	return &BlockRequest{to: to, height: height}
}

// Type implements Payload interface.
func (b BlockRequest) Type() MessageType {
	return BlockRequestType
}

// To implements RequestMessage interface.
func (b BlockRequest) To() crypto.PublicKey {
	return b.to
}

// Height returns the height of the requested block.
func (b BlockRequest) Height() types.Height {
	return b.height
}

func (b *BlockRequest) fields() []any {
	return []any{&b.to, &b.height}
}

// EncodeBinary implements io.Serializable interface.
func (b BlockRequest) EncodeBinary(w *io.BinWriter) {
	encoding.Encode(w, blockRequestSchema, b.fields())
}

// DecodeBinary implements io.Serializable interface.
func (b *BlockRequest) DecodeBinary(r *io.BinReader) {
	encoding.Decode(r, blockRequestSchema, b.fields())
}
