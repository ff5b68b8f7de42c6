package messages

import (
	"reflect"

	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/pkg/errors"
	"github.com/veles-chain/veles/crypto"
)

// Compile-time checks that the closed message set implements the views the
// dispatch relies on.
var (
	_ ConsensusMessage = (*Propose)(nil)
	_ ConsensusMessage = (*Prevote)(nil)
	_ ConsensusMessage = (*Precommit)(nil)

	_ RequestMessage = (*ProposeRequest)(nil)
	_ RequestMessage = (*TransactionsRequest)(nil)
	_ RequestMessage = (*PrevotesRequest)(nil)
	_ RequestMessage = (*PeersRequest)(nil)
	_ RequestMessage = (*BlockRequest)(nil)
	_ RequestMessage = (*BlockResponse)(nil)
	_ RequestMessage = (*TransactionsResponse)(nil)

	_ Payload = (*Transaction)(nil)
	_ Payload = (*Connect)(nil)
	_ Payload = (*Status)(nil)
)

// Message binds a typed payload to the signed envelope carrying it. A value
// of this type exists only if the payload decoded cleanly and the signature
// was checked, or if it was produced by local signing, which is trusted by
// definition.
type Message[T Payload] struct {
	payload T
	signed  *SignedMessage
}

// New serializes payload into its Protocol-tagged form, signs it and wraps
// both. It always succeeds for a well-formed payload; a payload that cannot
// be encoded is a programming defect and panics.
func New[T Payload](payload T, author crypto.PublicKey, key crypto.SecretKey) Message[T] {
	w := io.NewBufBinWriter()
	Wrap(payload).EncodeBinary(w.BinWriter)
	if w.Err != nil {
		panic(errors.Wrapf(w.Err, "can't encode %s message", payload.Type()))
	}

	return Message[T]{
		payload: payload,
		signed:  Sign(w.Bytes(), author, key),
	}
}

// VerifyMessage verifies a signed frame and decodes its payload as T.
// It is the only way to obtain a Message from untrusted bytes.
func VerifyMessage[T Payload](data []byte) (Message[T], error) {
	var m Message[T]

	sm, err := Verify(data)
	if err != nil {
		return m, err
	}

	p, err := sm.IntoProtocol()
	if err != nil {
		return m, err
	}

	payload, ok := p.Payload().(T)
	if !ok {
		return m, errors.Wrapf(ErrUnexpectedType, "got %s", p.Type())
	}

	m.payload = payload
	m.signed = sm

	return m, nil
}

// Payload returns the typed payload.
func (m Message[T]) Payload() T {
	return m.payload
}

// Author returns the public key of the message author.
func (m Message[T]) Author() crypto.PublicKey {
	return m.signed.Author()
}

// Raw returns the backing signed envelope.
func (m Message[T]) Raw() *SignedMessage {
	return m.signed
}

// EqualsProtocol reports whether the matching variant of p holds a payload
// structurally equal to this message's payload. It lets a generic Protocol
// value be matched against an expected concrete message without re-parsing.
func (m Message[T]) EqualsProtocol(p Protocol) bool {
	return p.Type() == m.payload.Type() && reflect.DeepEqual(p.Payload(), Payload(m.payload))
}
