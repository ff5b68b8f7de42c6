package messages

import (
	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/veles-chain/veles/crypto"
	"github.com/veles-chain/veles/encoding"
)

// Transaction is a raw transaction with an opaque service payload. The
// payload is interpreted by the service owning it, not by consensus;
// consensus only tracks transactions by hash.
type Transaction struct {
	payload []byte
}

var transactionSchema = encoding.Schema{
	{Name: "payload", Kind: encoding.Bytes},
}

// NewTransaction returns a new Transaction carrying payload.
func NewTransaction(payload []byte) *Transaction {
	return &Transaction{payload: payload}
}

// Type implements Payload interface.
func (t Transaction) Type() MessageType {
	return TransactionType
}

// ServicePayload returns the opaque transaction body.
func (t Transaction) ServicePayload() []byte {
	return t.payload
}

// Hash returns the identity hash of the transaction body.
func (t Transaction) Hash() crypto.Hash {
	return crypto.Sum(t.payload)
}

func (t *Transaction) fields() []any {
	return []any{&t.payload}
}

// EncodeBinary implements io.Serializable interface.
func (t Transaction) EncodeBinary(w *io.BinWriter) {
	encoding.Encode(w, transactionSchema, t.fields())
}

// DecodeBinary implements io.Serializable interface.
func (t *Transaction) DecodeBinary(r *io.BinReader) {
	encoding.Decode(r, transactionSchema, t.fields())
}
