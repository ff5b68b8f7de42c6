package veles

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veles-chain/veles/crypto"
	"github.com/veles-chain/veles/messages"
	"github.com/veles-chain/veles/types"
)

type testEnv struct {
	t    *testing.T
	pubs []crypto.PublicKey
	keys []crypto.SecretKey

	engine *Engine

	broadcasts []*messages.SignedMessage
	sent       []sentMessage
	processed  []*messages.Block
}

type sentMessage struct {
	to  crypto.PublicKey
	msg *messages.SignedMessage
}

// newTestEnv creates an engine whose node is validator me among n
// validators, at the given chain tip. The transport callbacks only record.
func newTestEnv(t *testing.T, n, me int, height types.Height, lastHash crypto.Hash) *testEnv {
	env := &testEnv{t: t}

	for i := 0; i < n; i++ {
		pub, key, err := crypto.Generate(rand.Reader)
		require.NoError(t, err)
		env.pubs = append(env.pubs, pub)
		env.keys = append(env.keys, key)
	}

	// An extra pair for a watch-only node.
	pub, key, err := crypto.Generate(rand.Reader)
	require.NoError(t, err)
	env.pubs = append(env.pubs, pub)
	env.keys = append(env.keys, key)

	idx := me
	if me < 0 {
		idx = n
	}

	env.engine = New(
		WithLogger(zap.NewNop()),
		WithKeyPair(env.pubs[idx], env.keys[idx]),
		WithValidators(env.pubs[:n]...),
		WithChainTip(height, lastHash),
		WithBroadcast(func(msg *messages.SignedMessage) {
			env.broadcasts = append(env.broadcasts, msg)
		}),
		WithSend(func(to crypto.PublicKey, msg *messages.SignedMessage) {
			env.sent = append(env.sent, sentMessage{to: to, msg: msg})
		}),
		WithProcessBlock(func(b *messages.Block, _ []*messages.SignedMessage) {
			env.processed = append(env.processed, b)
		}),
	)
	require.NotNil(t, env.engine)

	return env
}

// frame signs a payload with the i-th key pair and returns the wire bytes.
func (env *testEnv) frame(i int, p messages.Payload) []byte {
	return messages.New(p, env.pubs[i], env.keys[i]).Raw().Bytes()
}

func (env *testEnv) signed(i int, p messages.Payload) *messages.SignedMessage {
	return messages.New(p, env.pubs[i], env.keys[i]).Raw()
}

// lastBroadcast decodes the most recent broadcast frame.
func (env *testEnv) lastBroadcast() messages.Protocol {
	require.NotEmpty(env.t, env.broadcasts)

	p, err := env.broadcasts[len(env.broadcasts)-1].IntoProtocol()
	require.NoError(env.t, err)

	return p
}

// findBroadcast returns the latest broadcast of the given type, if any.
func (env *testEnv) findBroadcast(mt messages.MessageType) (messages.Protocol, bool) {
	for i := len(env.broadcasts) - 1; i >= 0; i-- {
		p, err := env.broadcasts[i].IntoProtocol()
		require.NoError(env.t, err)
		if p.Type() == mt {
			return p, true
		}
	}

	return messages.Protocol{}, false
}

func (env *testEnv) findSent(mt messages.MessageType) (messages.Protocol, bool) {
	for i := len(env.sent) - 1; i >= 0; i-- {
		p, err := env.sent[i].msg.IntoProtocol()
		require.NoError(env.t, err)
		if p.Type() == mt {
			return p, true
		}
	}

	return messages.Protocol{}, false
}

func TestQuorum(t *testing.T) {
	for n, q := range map[int]int{1: 1, 3: 3, 4: 3, 7: 5, 10: 7} {
		require.Equal(t, q, Quorum(n), "n=%d", n)
	}
}

func TestNewConfig(t *testing.T) {
	pub, key, err := crypto.Generate(rand.Reader)
	require.NoError(t, err)

	require.Nil(t, New())
	require.Nil(t, New(WithKeyPair(pub, key)))

	e := New(WithKeyPair(pub, key), WithValidators(pub))
	require.NotNil(t, e)
	require.Equal(t, 0, e.MyIndex)
	require.False(t, e.WatchOnly())

	other, _, err := crypto.Generate(rand.Reader)
	require.NoError(t, err)

	watcher := New(WithKeyPair(pub, key), WithValidators(other))
	require.NotNil(t, watcher)
	require.Equal(t, -1, watcher.MyIndex)
	require.True(t, watcher.WatchOnly())
}

func TestLeaderRotation(t *testing.T) {
	env := newTestEnv(t, 4, 0, 0, crypto.Hash{})

	require.EqualValues(t, 0, env.engine.LeaderId(0, 0))
	require.EqualValues(t, 1, env.engine.LeaderId(0, 1))
	require.EqualValues(t, 1, env.engine.LeaderId(1, 0))
	require.EqualValues(t, 3, env.engine.LeaderId(5, 2))
	require.EqualValues(t, 0, env.engine.LeaderId(7, 1))
}

func TestStart(t *testing.T) {
	env := newTestEnv(t, 4, 2, 5, crypto.Sum([]byte("tip")))

	env.engine.Start()

	_, ok := env.findBroadcast(messages.ConnectType)
	require.True(t, ok)

	p, ok := env.findBroadcast(messages.StatusType)
	require.True(t, ok)
	require.EqualValues(t, 5, p.GetStatus().Height())
}

// TestCommitFlow walks a full height: propose from the leader, a pre-vote
// quorum locking the node, a pre-commit quorum committing the block and the
// status announcing the new height.
func TestCommitFlow(t *testing.T) {
	tip := crypto.Sum([]byte("block at height 4"))
	env := newTestEnv(t, 4, 2, 5, tip)
	e := env.engine

	// Leader of height 5 round 0 is validator (5+0)%4 = 1.
	propose := messages.NewPropose(1, 5, 0, tip, nil)
	proposeRaw := env.signed(1, propose)

	e.OnReceive(proposeRaw.Bytes())

	p, ok := env.findBroadcast(messages.PrevoteType)
	require.True(t, ok, "own prevote must follow a resolvable propose")
	pv := p.GetPrevote()
	require.EqualValues(t, 2, pv.Validator())
	require.Equal(t, proposeRaw.Hash(), pv.ProposeHash())

	// Two more prevotes reach the quorum of 3 and lock the node.
	e.OnReceive(env.frame(0, messages.NewPrevote(0, 5, 0, proposeRaw.Hash(), 0)))
	require.Equal(t, types.Round(0), func() types.Round { r, _ := e.LockedRound(); return r }())

	e.OnReceive(env.frame(1, messages.NewPrevote(1, 5, 0, proposeRaw.Hash(), 0)))

	lockedRound, lockedHash := e.LockedRound()
	require.Equal(t, types.Round(0), lockedRound)
	require.Equal(t, proposeRaw.Hash(), lockedHash)

	p, ok = env.findBroadcast(messages.PrecommitType)
	require.True(t, ok, "lock must produce own precommit")
	blockHash := p.GetPrecommit().BlockHash()

	block := defaultExecuteBlock(propose)
	require.Equal(t, block.Hash(), blockHash)

	// Two more precommits reach the quorum and commit.
	e.OnReceive(env.frame(0, messages.NewPrecommit(0, 5, 0, proposeRaw.Hash(), blockHash, time.Now())))
	require.Empty(t, env.processed)

	e.OnReceive(env.frame(1, messages.NewPrecommit(1, 5, 0, proposeRaw.Hash(), blockHash, time.Now())))

	require.Len(t, env.processed, 1)
	require.Equal(t, blockHash, env.processed[0].Hash())
	require.EqualValues(t, 6, e.Height())
	require.Equal(t, blockHash, e.LastHash())

	st, ok := env.findBroadcast(messages.StatusType)
	require.True(t, ok)
	require.EqualValues(t, 6, st.GetStatus().Height())
	require.Equal(t, blockHash, st.GetStatus().LastHash())
}

func TestProposeValidation(t *testing.T) {
	tip := crypto.Sum([]byte("tip"))
	env := newTestEnv(t, 4, 2, 5, tip)
	e := env.engine

	t.Run("non-leader", func(t *testing.T) {
		e.OnReceive(env.frame(0, messages.NewPropose(0, 5, 0, tip, nil)))
		_, ok := env.findBroadcast(messages.PrevoteType)
		require.False(t, ok)
	})

	t.Run("wrong prev hash", func(t *testing.T) {
		bad := crypto.Sum([]byte("fork"))
		e.OnReceive(env.frame(1, messages.NewPropose(1, 5, 0, bad, nil)))
		_, ok := env.findBroadcast(messages.PrevoteType)
		require.False(t, ok)
	})

	t.Run("claimed slot mismatch", func(t *testing.T) {
		// Signed by validator 0 but claiming to be validator 1.
		e.OnReceive(env.frame(0, messages.NewPropose(1, 5, 0, tip, nil)))
		_, ok := env.findBroadcast(messages.PrevoteType)
		require.False(t, ok)
	})
}

func TestProposeUnknownTxs(t *testing.T) {
	tip := crypto.Sum([]byte("tip"))
	env := newTestEnv(t, 4, 2, 5, tip)
	e := env.engine

	tx := env.signed(1, messages.NewTransaction([]byte("transfer")))
	propose := messages.NewPropose(1, 5, 0, tip, []crypto.Hash{tx.Hash()})

	e.OnReceive(env.frame(1, propose))

	// The unknown transaction is requested from the proposer.
	p, ok := env.findSent(messages.TransactionsRequestType)
	require.True(t, ok)
	require.Equal(t, []crypto.Hash{tx.Hash()}, p.GetTransactionsRequest().Transactions())

	_, ok = env.findBroadcast(messages.PrevoteType)
	require.False(t, ok, "no prevote until the proposal is resolved")

	// The transaction arrives and the proposal resolves.
	e.OnReceive(tx.Bytes())

	pv, ok := env.findBroadcast(messages.PrevoteType)
	require.True(t, ok)
	require.EqualValues(t, 2, pv.GetPrevote().Validator())
}

func TestEquivocatingLeader(t *testing.T) {
	tip := crypto.Sum([]byte("tip"))
	env := newTestEnv(t, 4, 2, 5, tip)
	e := env.engine

	tx := env.signed(1, messages.NewTransaction([]byte("transfer")))
	require.NoError(t, e.SubmitTransaction(tx))

	first := env.signed(1, messages.NewPropose(1, 5, 0, tip, nil))
	e.OnReceive(first.Bytes())

	pv, ok := env.findBroadcast(messages.PrevoteType)
	require.True(t, ok)
	require.Equal(t, first.Hash(), pv.GetPrevote().ProposeHash())

	// The leader sends a second, different proposal for the same round.
	// The node must not cast another vote, and certainly must not crash.
	require.NotPanics(t, func() {
		e.OnReceive(env.frame(1, messages.NewPropose(1, 5, 0, tip, []crypto.Hash{tx.Hash()})))
	})

	var prevotes int
	for _, raw := range env.broadcasts {
		p, err := raw.IntoProtocol()
		require.NoError(t, err)
		if p.Type() == messages.PrevoteType {
			prevotes++
			require.Equal(t, first.Hash(), p.GetPrevote().ProposeHash())
		}
	}
	require.Equal(t, 1, prevotes)
}

func TestDoubleVotePanics(t *testing.T) {
	env := newTestEnv(t, 4, 2, 5, crypto.Hash{})
	e := env.engine

	h1 := crypto.Sum([]byte("one"))
	h2 := crypto.Sum([]byte("two"))

	e.broadcastPrevote(0, h1)
	require.NotPanics(t, func() { e.broadcastPrevote(0, h1) })
	require.Panics(t, func() { e.broadcastPrevote(0, h2) })

	e.broadcastPrecommit(0, h1, h1)
	require.NotPanics(t, func() { e.broadcastPrecommit(0, h1, h1) })
	require.Panics(t, func() { e.broadcastPrecommit(0, h1, h2) })
}

func TestRemoteConflictEvidence(t *testing.T) {
	tip := crypto.Sum([]byte("tip"))
	env := newTestEnv(t, 4, 2, 5, tip)
	e := env.engine

	h1 := crypto.Sum([]byte("one"))
	h2 := crypto.Sum([]byte("two"))

	e.OnReceive(env.frame(0, messages.NewPrevote(0, 5, 0, h1, 0)))
	require.Empty(t, e.Evidence())

	e.OnReceive(env.frame(0, messages.NewPrevote(0, 5, 0, h2, 0)))
	require.Len(t, e.Evidence(), 1)

	// The conflicting vote is not counted.
	require.Equal(t, 1, e.inbox.countPrevotes(0, h1)+e.inbox.countPrevotes(0, h2))
}

func TestConnectBookkeeping(t *testing.T) {
	env := newTestEnv(t, 4, 2, 5, crypto.Hash{})
	e := env.engine

	base := time.Unix(1500000000, 0)

	e.OnReceive(env.frame(0, messages.NewConnect("10.0.0.1:2000", base, "veles/a")))

	p, ok := env.findSent(messages.ConnectType)
	require.True(t, ok, "a new peer gets our connect in reply")
	require.NotNil(t, p)
	replies := len(env.sent)

	// Stale connect changes nothing.
	e.OnReceive(env.frame(0, messages.NewConnect("10.0.0.2:2000", base.Add(-time.Second), "veles/a")))
	require.Len(t, env.sent, replies)
	require.Equal(t, "10.0.0.1:2000", e.peers[env.pubs[0]].connect.Addr())

	// A fresher one updates the record without a second reply.
	e.OnReceive(env.frame(0, messages.NewConnect("10.0.0.3:2000", base.Add(time.Second), "veles/a")))
	require.Len(t, env.sent, replies)
	require.Equal(t, "10.0.0.3:2000", e.peers[env.pubs[0]].connect.Addr())
}

func TestStatusTriggersBlockRequest(t *testing.T) {
	env := newTestEnv(t, 4, 2, 5, crypto.Hash{})
	e := env.engine

	e.OnReceive(env.frame(0, messages.NewStatus(5, crypto.Hash{})))
	_, ok := env.findSent(messages.BlockRequestType)
	require.False(t, ok)

	e.OnReceive(env.frame(0, messages.NewStatus(9, crypto.Sum([]byte("far tip")))))

	p, ok := env.findSent(messages.BlockRequestType)
	require.True(t, ok)
	require.EqualValues(t, 5, p.GetBlockRequest().Height(), "the node asks for its own next block")
	require.Equal(t, env.pubs[0], env.sent[len(env.sent)-1].to)
}

func TestFutureHeightCached(t *testing.T) {
	tip := crypto.Sum([]byte("block at height 4"))
	env := newTestEnv(t, 4, 2, 5, tip)
	e := env.engine

	future := crypto.Sum([]byte("future propose"))
	e.OnReceive(env.frame(0, messages.NewPrevote(0, 6, 0, future, 0)))
	require.Empty(t, env.sent, "future votes wait in the cache")

	// Drive height 5 to commit; the cached prevote replays and the
	// unknown proposal it references gets requested.
	propose := messages.NewPropose(1, 5, 0, tip, nil)
	proposeRaw := env.signed(1, propose)
	blockHash := defaultExecuteBlock(propose).Hash()

	e.OnReceive(proposeRaw.Bytes())
	e.OnReceive(env.frame(0, messages.NewPrevote(0, 5, 0, proposeRaw.Hash(), 0)))
	e.OnReceive(env.frame(1, messages.NewPrevote(1, 5, 0, proposeRaw.Hash(), 0)))
	e.OnReceive(env.frame(0, messages.NewPrecommit(0, 5, 0, proposeRaw.Hash(), blockHash, time.Now())))
	e.OnReceive(env.frame(1, messages.NewPrecommit(1, 5, 0, proposeRaw.Hash(), blockHash, time.Now())))

	require.EqualValues(t, 6, e.Height())

	p, ok := env.findSent(messages.ProposeRequestType)
	require.True(t, ok)
	require.Equal(t, future, p.GetProposeRequest().ProposeHash())
}

func TestBlockResponseSync(t *testing.T) {
	tip := crypto.Sum([]byte("tip"))
	env := newTestEnv(t, 4, 2, 5, tip)
	e := env.engine

	block := messages.NewBlock(0, 1, 5, 0, tip, crypto.Hash{}, crypto.Hash{})

	precommits := []*messages.SignedMessage{
		env.signed(0, messages.NewPrecommit(0, 5, 0, crypto.Hash{}, block.Hash(), time.Now())),
		env.signed(1, messages.NewPrecommit(1, 5, 0, crypto.Hash{}, block.Hash(), time.Now())),
		env.signed(3, messages.NewPrecommit(3, 5, 0, crypto.Hash{}, block.Hash(), time.Now())),
	}

	t.Run("quorum too small", func(t *testing.T) {
		resp := messages.NewBlockResponse(env.pubs[2], block, precommits[:2], nil)
		e.OnReceive(env.frame(0, resp))
		require.Empty(t, env.processed)
		require.EqualValues(t, 5, e.Height())
	})

	t.Run("wrong recipient", func(t *testing.T) {
		resp := messages.NewBlockResponse(env.pubs[0], block, precommits, nil)
		e.OnReceive(env.frame(0, resp))
		require.Empty(t, env.processed)
	})

	t.Run("padded transaction list", func(t *testing.T) {
		// A real quorum replayed with transactions the header does not
		// account for must not commit, and none of the stray frames may
		// end up marked as committed.
		tx := env.signed(0, messages.NewTransaction([]byte("stray")))
		resp := messages.NewBlockResponse(env.pubs[2], block, precommits, []*messages.SignedMessage{tx})
		e.OnReceive(env.frame(0, resp))

		require.Empty(t, env.processed)
		require.EqualValues(t, 5, e.Height())
		require.NotContains(t, e.committed, tx.Hash())
	})

	t.Run("commits", func(t *testing.T) {
		resp := messages.NewBlockResponse(env.pubs[2], block, precommits, nil)
		e.OnReceive(env.frame(0, resp))

		require.Len(t, env.processed, 1)
		require.EqualValues(t, 6, e.Height())
		require.Equal(t, block.Hash(), e.LastHash())
	})
}

func TestLeaderPropose(t *testing.T) {
	tip := crypto.Sum([]byte("tip"))
	// Leader of height 5 round 0 is validator 1.
	env := newTestEnv(t, 4, 1, 5, tip)
	e := env.engine

	require.True(t, e.IsLeader())
	e.Propose()

	p, ok := env.findBroadcast(messages.ProposeType)
	require.True(t, ok)
	require.EqualValues(t, 1, p.GetPropose().Validator())
	require.Equal(t, tip, p.GetPropose().PrevHash())

	// The leader prevotes for its own proposal.
	_, ok = env.findBroadcast(messages.PrevoteType)
	require.True(t, ok)
}

func TestNonLeaderPropose(t *testing.T) {
	env := newTestEnv(t, 4, 2, 5, crypto.Hash{})

	require.False(t, env.engine.IsLeader())
	env.engine.Propose()

	_, ok := env.findBroadcast(messages.ProposeType)
	require.False(t, ok)
}

func TestWatchOnlyDoesNotVote(t *testing.T) {
	tip := crypto.Sum([]byte("tip"))
	env := newTestEnv(t, 4, -1, 5, tip)
	e := env.engine

	require.True(t, e.WatchOnly())

	e.OnReceive(env.frame(1, messages.NewPropose(1, 5, 0, tip, nil)))
	_, ok := env.findBroadcast(messages.PrevoteType)
	require.False(t, ok)
}

func TestServeRequests(t *testing.T) {
	tip := crypto.Sum([]byte("tip"))
	env := newTestEnv(t, 4, 2, 5, tip)
	e := env.engine

	propose := messages.NewPropose(1, 5, 0, tip, nil)
	proposeRaw := env.signed(1, propose)
	e.OnReceive(proposeRaw.Bytes())
	e.OnReceive(env.frame(0, messages.NewPrevote(0, 5, 0, proposeRaw.Hash(), 0)))

	t.Run("propose request", func(t *testing.T) {
		e.OnReceive(env.frame(0, messages.NewProposeRequest(env.pubs[2], 5, proposeRaw.Hash())))

		last := env.sent[len(env.sent)-1]
		require.Equal(t, env.pubs[0], last.to)
		require.Equal(t, proposeRaw.Bytes(), last.msg.Bytes())
	})

	t.Run("propose request for another recipient", func(t *testing.T) {
		before := len(env.sent)
		e.OnReceive(env.frame(0, messages.NewProposeRequest(env.pubs[3], 5, proposeRaw.Hash())))
		require.Len(t, env.sent, before)
	})

	t.Run("prevotes request", func(t *testing.T) {
		// The requester has our prevote (validator 2) already, so
		// only validator 0's is sent back.
		bits := e.inbox.prevoteBits(4, 0, proposeRaw.Hash())
		bits.Clear(0)

		before := len(env.sent)
		e.OnReceive(env.frame(1, messages.NewPrevotesRequest(env.pubs[2], 5, 0, proposeRaw.Hash(), bits)))
		require.Len(t, env.sent, before+1)

		p, err := env.sent[len(env.sent)-1].msg.IntoProtocol()
		require.NoError(t, err)
		require.Equal(t, messages.PrevoteType, p.Type())
		require.EqualValues(t, 0, p.GetPrevote().Validator())
	})

	t.Run("peers request", func(t *testing.T) {
		e.OnReceive(env.frame(0, messages.NewConnect("10.0.0.1:2000", time.Now(), "veles/a")))

		before := len(env.sent)
		e.OnReceive(env.frame(1, messages.NewPeersRequest(env.pubs[2])))
		require.Len(t, env.sent, before+1)

		p, err := env.sent[len(env.sent)-1].msg.IntoProtocol()
		require.NoError(t, err)
		require.Equal(t, messages.ConnectType, p.Type())
	})

	t.Run("block request", func(t *testing.T) {
		// At our own height the block does not exist yet, above it the
		// request is dropped outright. Neither produces a reply.
		before := len(env.sent)
		e.OnReceive(env.frame(0, messages.NewBlockRequest(env.pubs[2], 5)))
		e.OnReceive(env.frame(0, messages.NewBlockRequest(env.pubs[2], 6)))
		require.Len(t, env.sent, before)
	})
}

func TestTransactionsRequestServed(t *testing.T) {
	env := newTestEnv(t, 4, 2, 5, crypto.Hash{})
	e := env.engine

	tx := env.signed(0, messages.NewTransaction([]byte("transfer")))
	require.NoError(t, e.SubmitTransaction(tx))

	unknown := crypto.Sum([]byte("missing"))
	e.OnReceive(env.frame(0, messages.NewTransactionsRequest(env.pubs[2], []crypto.Hash{tx.Hash(), unknown})))

	p, ok := env.findSent(messages.TransactionsResponseType)
	require.True(t, ok)
	require.Len(t, p.GetTransactionsResponse().Transactions(), 1)
	require.Equal(t, tx.Bytes(), p.GetTransactionsResponse().Transactions()[0].Bytes())
}

func TestGarbageInput(t *testing.T) {
	env := newTestEnv(t, 4, 2, 5, crypto.Hash{})
	e := env.engine

	require.NotPanics(t, func() {
		e.OnReceive(nil)
		e.OnReceive([]byte("short"))
		e.OnReceive(make([]byte, 200))

		// A correctly signed frame with an unknown tag.
		e.OnReceive(messages.Sign([]byte{0xee, 1, 2}, env.pubs[0], env.keys[0]).Bytes())
	})

	require.Empty(t, env.broadcasts)
	require.Empty(t, env.sent)
}
