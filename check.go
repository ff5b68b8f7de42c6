package veles

import (
	"go.uber.org/zap"

	"github.com/veles-chain/veles/crypto"
	"github.com/veles-chain/veles/messages"
	"github.com/veles-chain/veles/types"
)

// checkPrevotes locks to the proposal and broadcasts Precommit once the
// pre-votes for it form a quorum and every proposed transaction is known.
func (e *Engine) checkPrevotes(round types.Round, proposeHash crypto.Hash) {
	ps, ok := e.proposes[proposeHash]
	if !ok || len(ps.unknownTxs) > 0 {
		return
	}

	if e.inbox.countPrevotes(round, proposeHash) < e.Quorum() {
		return
	}

	if round < e.lockedRound {
		return
	}
	if e.lockedRound == round && e.lockedHash == proposeHash {
		return
	}

	e.lockedRound = round
	e.lockedHash = proposeHash

	block := e.executeBlock(ps.propose)

	e.Config.Logger.Info("locked to proposal",
		zap.Stringer("round", round),
		zap.Stringer("propose", proposeHash),
		zap.Stringer("block", block.Hash()))

	e.broadcastPrecommit(round, proposeHash, block.Hash())
	e.checkPrecommits(round, proposeHash, block.Hash())
}

// checkPrecommits commits the block once the pre-commits sharing the block
// hash form a quorum and the local execution agrees with it.
func (e *Engine) checkPrecommits(round types.Round, proposeHash, blockHash crypto.Hash) {
	if e.inbox.countPrecommits(round, proposeHash, blockHash) < e.Quorum() {
		return
	}

	ps, ok := e.proposes[proposeHash]
	if !ok || len(ps.unknownTxs) > 0 {
		// The missing pieces were already requested when the votes
		// arrived; the commit fires again once they are resolved.
		return
	}

	block := e.executeBlock(ps.propose)
	if block.Hash() != blockHash {
		e.Config.Logger.Error("local execution diverged from the quorum",
			zap.Stringer("local", block.Hash()),
			zap.Stringer("quorum", blockHash))
		return
	}

	precommits := e.inbox.collectPrecommits(round, proposeHash, blockHash)
	e.commitBlock(block, precommits, ps.propose.Transactions())
}

// checkPrecommitGroups re-runs the commit check for every pre-commit group
// accumulated for the proposal. Used when a proposal resolves after the
// votes for it have already arrived.
func (e *Engine) checkPrecommitGroups(proposeHash crypto.Hash) {
	for round, blockHashes := range e.inbox.precommitGroups(proposeHash) {
		for _, blockHash := range blockHashes {
			e.checkPrecommits(round, proposeHash, blockHash)
		}
	}
}

// commitBlock makes the block final: the pool transactions it includes are
// marked committed, the application is notified, the node moves to the next
// height, announces it and replays the messages cached for it.
func (e *Engine) commitBlock(block *messages.Block, precommits []*messages.SignedMessage, txs []crypto.Hash) {
	for _, tx := range txs {
		e.committed[tx] = struct{}{}
		delete(e.txs, tx)
	}

	e.Config.ProcessBlock(block, precommits)
	e.lastHash = block.Hash()

	e.Config.Logger.Info("block committed",
		zap.Stringer("height", block.Height()),
		zap.Stringer("hash", e.lastHash),
		zap.Uint32("txs", block.TxCount()))

	e.reset()
	e.broadcastStatus()

	for _, m := range e.cache.getHeight(e.height) {
		e.onProtocol(m.raw, m.protocol)
	}
}
