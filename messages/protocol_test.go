package messages

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/stretchr/testify/require"

	"github.com/veles-chain/veles/crypto"
)

func testEncodeDecode(t *testing.T, expected, actual io.Serializable) {
	w := io.NewBufBinWriter()
	expected.EncodeBinary(w.BinWriter)
	require.NoError(t, w.Err)

	r := io.NewBinReaderFromBuf(w.Bytes())
	actual.DecodeBinary(r)
	require.NoError(t, r.Err)
	require.Equal(t, expected, actual)
}

func TestProtocolRoundTrip(t *testing.T) {
	pub, key := testKeys(t)
	to, _ := testKeys(t)

	prevHash := crypto.Sum([]byte("prev"))
	proposeHash := crypto.Sum([]byte("propose"))
	blockHash := crypto.Sum([]byte("block"))
	txs := []crypto.Hash{crypto.Sum([]byte("tx1")), crypto.Sum([]byte("tx2"))}
	when := time.Unix(1500000000, 500).UTC()

	bits := bitset.New(4)
	bits.Set(1)

	signedTx := Sign(encodePayload(t, NewTransaction([]byte{1, 2, 3})), pub, key)
	block := NewBlock(0, 2, 10, 2, prevHash, proposeHash, blockHash)

	payloads := []Payload{
		NewTransaction([]byte{0xca, 0xfe}),
		NewConnect("127.0.0.1:2000", when, "veles/test"),
		NewStatus(10, prevHash),
		NewBlockResponse(to, block, []*SignedMessage{signedTx}, []*SignedMessage{signedTx}),
		NewTransactionsResponse(to, []*SignedMessage{signedTx}),
		NewPropose(1, 10, 2, prevHash, txs),
		NewPrevote(1, 10, 2, proposeHash, 1),
		NewPrecommit(1, 10, 2, proposeHash, blockHash, when),
		NewProposeRequest(to, 10, proposeHash),
		NewTransactionsRequest(to, txs),
		NewPrevotesRequest(to, 10, 2, proposeHash, bits),
		NewPeersRequest(to),
		NewBlockRequest(to, 10),
	}

	seen := make(map[MessageType]struct{})
	for _, p := range payloads {
		t.Run(p.Type().String(), func(t *testing.T) {
			_, dup := seen[p.Type()]
			require.False(t, dup, "duplicate tag")
			seen[p.Type()] = struct{}{}

			expected := Wrap(p)
			actual := new(Protocol)
			testEncodeDecode(t, &expected, actual)
		})
	}
}

func TestProtocolUnknownTag(t *testing.T) {
	for _, tag := range []byte{0x03, 0x06, 0x13, 0x25, 0xff} {
		var p Protocol
		r := io.NewBinReaderFromBuf([]byte{tag, 0, 0, 0})
		p.DecodeBinary(r)
		require.ErrorIs(t, r.Err, ErrUnknownTag, "tag 0x%02x", tag)
	}
}

func TestConsensusViews(t *testing.T) {
	h := crypto.Sum([]byte("h"))

	for _, p := range []Payload{
		NewPropose(1, 10, 2, h, nil),
		NewPrevote(1, 10, 2, h, 0),
		NewPrecommit(1, 10, 2, h, h, time.Now()),
	} {
		cm, ok := Wrap(p).Consensus()
		require.True(t, ok)
		require.EqualValues(t, 1, cm.Validator())
		require.EqualValues(t, 10, cm.Height())
		require.EqualValues(t, 2, cm.Round())
	}

	_, ok := Wrap(NewStatus(1, h)).Consensus()
	require.False(t, ok)
}

func TestRequestViews(t *testing.T) {
	pub, _, err := crypto.Generate(rand.Reader)
	require.NoError(t, err)

	h := crypto.Sum([]byte("h"))

	for _, p := range []Payload{
		NewProposeRequest(pub, 1, h),
		NewTransactionsRequest(pub, nil),
		NewPrevotesRequest(pub, 1, 0, h, nil),
		NewPeersRequest(pub),
		NewBlockRequest(pub, 1),
		NewBlockResponse(pub, NewBlock(0, 0, 1, 0, h, h, h), nil, nil),
		NewTransactionsResponse(pub, nil),
	} {
		req, ok := Wrap(p).Request()
		require.True(t, ok, "%s", p.Type())
		require.Equal(t, pub, req.To())
	}

	_, ok := Wrap(NewStatus(1, h)).Request()
	require.False(t, ok)
}

func TestBlockHashDeterministic(t *testing.T) {
	h := crypto.Sum([]byte("prev"))
	b1 := NewBlock(0, 1, 5, 3, h, h, h)
	b2 := NewBlock(0, 1, 5, 3, h, h, h)
	require.Equal(t, b1.Hash(), b2.Hash())

	b3 := NewBlock(0, 1, 6, 3, h, h, h)
	require.NotEqual(t, b1.Hash(), b3.Hash())
}

func encodePayload(t *testing.T, p Payload) []byte {
	w := io.NewBufBinWriter()
	Wrap(p).EncodeBinary(w.BinWriter)
	require.NoError(t, w.Err)
	return w.Bytes()
}
