package messages

import (
	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/veles-chain/veles/crypto"
	"github.com/veles-chain/veles/encoding"
)

// TransactionsResponse is a batch of transactions.
//
// Validation: the message is ignored if its to field corresponds to a
// different node or if some transaction cannot be parsed and verified.
//
// Processing: the transactions are recorded.
//
// Generation: the message is sent in reply to TransactionsRequest.
type TransactionsResponse struct {
	to           crypto.PublicKey
	transactions []*SignedMessage
}

var transactionsResponseSchema = encoding.Schema{
	{Name: "to", Kind: encoding.PublicKey},
	{Name: "transactions", Kind: encoding.ObjectList},
}

// NewTransactionsResponse returns a new TransactionsResponse message.
func NewTransactionsResponse(to crypto.PublicKey, transactions []*SignedMessage) *TransactionsResponse {
	return &TransactionsResponse{to: to, transactions: transactions}
}

// Type implements Payload interface.
func (t TransactionsResponse) Type() MessageType {
	return TransactionsResponseType
}

// To returns the public key of the recipient.
func (t TransactionsResponse) To() crypto.PublicKey {
	return t.to
}

// Transactions returns the signed transactions of the batch.
func (t TransactionsResponse) Transactions() []*SignedMessage {
	return t.transactions
}

func (t *TransactionsResponse) fields() []any {
	return []any{&t.to, &t.transactions}
}

// EncodeBinary implements io.Serializable interface.
func (t TransactionsResponse) EncodeBinary(w *io.BinWriter) {
	encoding.Encode(w, transactionsResponseSchema, t.fields())
}

// DecodeBinary implements io.Serializable interface.
func (t *TransactionsResponse) DecodeBinary(r *io.BinReader) {
	encoding.Decode(r, transactionsResponseSchema, t.fields())
}
