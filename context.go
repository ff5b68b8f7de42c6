package veles

import (
	"github.com/veles-chain/veles/crypto"
	"github.com/veles-chain/veles/messages"
	"github.com/veles-chain/veles/types"
)

type (
	// Context holds the consensus position of the node and everything it
	// has learned about the current height.
	Context struct {
		// Config is the engine's Config instance.
		Config *Config

		// MyIndex is the index of the node in the validator list. It
		// is -1 if the node only watches.
		MyIndex int

		height      types.Height
		round       types.Round
		lastHash    crypto.Hash
		lockedRound types.Round
		lockedHash  crypto.Hash

		proposes map[crypto.Hash]*proposeState
		inbox    *inbox
		cache    cache

		txs       map[crypto.Hash]*messages.SignedMessage
		committed map[crypto.Hash]struct{}

		ownPrevotes   map[types.Round]*messages.Prevote
		ownPrecommits map[types.Round]*messages.Precommit

		peers    map[crypto.PublicKey]*peerState
		evidence []Conflict
	}

	// proposeState is everything known about a single proposal.
	proposeState struct {
		propose *messages.Propose
		raw     *messages.SignedMessage

		// unknownTxs is the set of proposed transactions the node has
		// not seen yet.
		unknownTxs map[crypto.Hash]struct{}
	}

	peerState struct {
		connect *messages.Connect
		raw     *messages.SignedMessage
	}

	// Conflict is a pair of differently signed consensus messages
	// emitted by one validator for the same height and round. It is
	// recorded as misbehavior evidence and is never fatal.
	Conflict struct {
		First  *messages.SignedMessage
		Second *messages.SignedMessage
	}
)

// Quorum returns the number of votes sufficient to lock or commit among n
// validators: strictly more than two thirds.
func Quorum(n int) int {
	return 2*n/3 + 1
}

// N returns the total number of validators.
func (c *Context) N() int {
	return len(c.Config.Validators)
}

// Quorum returns the vote threshold for the current validator list.
func (c *Context) Quorum() int {
	return Quorum(c.N())
}

// LeaderId returns the id of the validator designated to propose at the
// given height and round.
func (c *Context) LeaderId(height types.Height, round types.Round) types.ValidatorId {
	return types.ValidatorId((uint64(height) + uint64(round)) % uint64(c.N()))
}

// IsLeader returns true iff the node is the leader for the current height
// and round.
func (c *Context) IsLeader() bool {
	return c.MyIndex >= 0 && c.LeaderId(c.height, c.round) == types.ValidatorId(c.MyIndex)
}

// WatchOnly returns true iff the node takes no active part in consensus.
func (c *Context) WatchOnly() bool {
	return c.MyIndex < 0
}

// Height returns the height the node is currently agreeing on.
func (c *Context) Height() types.Height {
	return c.height
}

// Round returns the current consensus round.
func (c *Context) Round() types.Round {
	return c.round
}

// LastHash returns the hash of the last committed block.
func (c *Context) LastHash() crypto.Hash {
	return c.lastHash
}

// LockedRound returns the round the node is locked to, together with the
// hash of the proposal it is locked on. A zero hash means no lock.
func (c *Context) LockedRound() (types.Round, crypto.Hash) {
	return c.lockedRound, c.lockedHash
}

// Evidence returns the recorded conflicting vote pairs.
func (c *Context) Evidence() []Conflict {
	return c.evidence
}

// validator returns the public key of the validator with the given id.
func (c *Context) validator(id types.ValidatorId) (crypto.PublicKey, bool) {
	if int(id) >= c.N() {
		return crypto.PublicKey{}, false
	}

	return c.Config.Validators[id], true
}

// knownTx returns true iff the transaction was seen either in the pool or
// in a committed block.
func (c *Context) knownTx(h crypto.Hash) bool {
	if _, ok := c.txs[h]; ok {
		return true
	}
	_, ok := c.committed[h]
	return ok
}

// reset moves the context to the next height, dropping all height-scoped
// state.
func (c *Context) reset() {
	c.height = c.height.Next()
	c.round = 0
	c.lockedRound = 0
	c.lockedHash = crypto.Hash{}
	c.proposes = make(map[crypto.Hash]*proposeState)
	c.inbox = newInbox()
	c.ownPrevotes = make(map[types.Round]*messages.Prevote)
	c.ownPrecommits = make(map[types.Round]*messages.Precommit)
}

// executeBlock builds the block header for a fully resolved proposal.
func (c *Context) executeBlock(p *messages.Propose) *messages.Block {
	if c.Config.ExecuteBlock != nil {
		return c.Config.ExecuteBlock(p)
	}

	return defaultExecuteBlock(p)
}

// defaultExecuteBlock derives the transaction root from the proposed hashes
// and leaves the state root empty. Deployments plug real schema and storage
// roots through Config.ExecuteBlock.
func defaultExecuteBlock(p *messages.Propose) *messages.Block {
	txs := p.Transactions()

	var txHash crypto.Hash
	if len(txs) > 0 {
		data := make([]byte, 0, len(txs)*crypto.HashSize)
		for i := range txs {
			data = append(data, txs[i][:]...)
		}
		txHash = crypto.Sum(data)
	}

	return messages.NewBlock(0, p.Validator(), p.Height(), uint32(len(txs)),
		p.PrevHash(), txHash, crypto.Hash{})
}
