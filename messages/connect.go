package messages

import (
	"time"

	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/veles-chain/veles/encoding"
)

// Connect is a peer handshake.
//
// Validation: the message is ignored if its time is not strictly newer than
// in the previous Connect received from the same peer.
//
// Processing: the connection to the peer is opened or refreshed.
//
// Generation: a node sends Connect to all known peers during initialization
// and replies with its own Connect to a new inbound connection.
type Connect struct {
	addr      string
	time      time.Time
	userAgent string
}

var connectSchema = encoding.Schema{
	{Name: "addr", Kind: encoding.String},
	{Name: "time", Kind: encoding.Time},
	{Name: "user_agent", Kind: encoding.String},
}

// NewConnect returns a new Connect message.
func NewConnect(addr string, t time.Time, userAgent string) *Connect {
	return &Connect{addr: addr, time: t.UTC(), userAgent: userAgent}
}

// Type implements Payload interface.
func (c Connect) Type() MessageType {
	return ConnectType
}

// Addr returns the advertised network address of the node.
func (c Connect) Addr() string {
	return c.addr
}

// Time returns the creation time of the message.
func (c Connect) Time() time.Time {
	return c.time
}

// UserAgent returns the node software description string.
func (c Connect) UserAgent() string {
	return c.userAgent
}

func (c *Connect) fields() []any {
	return []any{&c.addr, &c.time, &c.userAgent}
}

// EncodeBinary implements io.Serializable interface.
func (c Connect) EncodeBinary(w *io.BinWriter) {
	encoding.Encode(w, connectSchema, c.fields())
}

// DecodeBinary implements io.Serializable interface.
func (c *Connect) DecodeBinary(r *io.BinReader) {
	encoding.Decode(r, connectSchema, c.fields())
}
