package veles

import (
	"go.uber.org/zap"

	"github.com/veles-chain/veles/crypto"
	"github.com/veles-chain/veles/messages"
)

func (e *Engine) onPropose(raw *messages.SignedMessage, p *messages.Propose) {
	hash := raw.Hash()
	if _, ok := e.proposes[hash]; ok {
		e.Config.Logger.Debug("ignoring known propose", zap.Stringer("hash", hash))
		return
	}

	if p.Validator() != e.LeaderId(p.Height(), p.Round()) {
		e.Config.Logger.Warn("propose from a non-leader",
			zap.Stringer("validator", p.Validator()),
			zap.Stringer("round", p.Round()))
		return
	}

	if p.PrevHash() != e.lastHash {
		e.Config.Logger.Warn("propose with an incorrect prev_hash",
			zap.Stringer("got", p.PrevHash()),
			zap.Stringer("want", e.lastHash))
		return
	}

	unknown := make(map[crypto.Hash]struct{})
	for _, tx := range p.Transactions() {
		if _, ok := e.committed[tx]; ok {
			e.Config.Logger.Warn("propose with a committed transaction",
				zap.Stringer("tx", tx))
			return
		}
		if !e.knownTx(tx) {
			unknown[tx] = struct{}{}
		}
	}

	e.proposes[hash] = &proposeState{propose: p, raw: raw, unknownTxs: unknown}

	e.Config.Logger.Info("propose registered",
		zap.Stringer("hash", hash),
		zap.Stringer("round", p.Round()),
		zap.Int("txs", len(p.Transactions())),
		zap.Int("unknown", len(unknown)))

	if len(unknown) > 0 {
		txs := make([]crypto.Hash, 0, len(unknown))
		for tx := range unknown {
			txs = append(txs, tx)
		}
		e.sendTransactionsRequest(raw.Author(), txs)
		return
	}

	e.onProposalResolved(hash, e.proposes[hash])
}

// onProposalResolved fires once every transaction of a proposal is known:
// the node pre-votes for it unless locked elsewhere and re-checks the
// accumulated votes. A round the node already pre-voted in gets no second
// vote: an equivocating leader must not trick the node into conflicting
// with itself.
func (e *Engine) onProposalResolved(hash crypto.Hash, ps *proposeState) {
	round := ps.propose.Round()

	own, voted := e.ownPrevotes[round]
	if voted && own.ProposeHash() != hash {
		e.Config.Logger.Warn("second resolved proposal in a voted round",
			zap.Stringer("round", round),
			zap.Stringer("propose", hash))
	} else if e.lockedHash == (crypto.Hash{}) || e.lockedHash == hash {
		e.broadcastPrevote(round, hash)
	}

	e.checkPrevotes(round, hash)
	e.checkPrecommitGroups(hash)
}

func (e *Engine) onPrevote(raw *messages.SignedMessage, p *messages.Prevote) {
	key := voteKey{round: p.Round(), validator: p.Validator()}
	if prev, ok := e.inbox.prevotes[key]; ok {
		if *prev.msg == *p {
			return
		}
		e.Config.Logger.Warn("conflicting prevotes from a validator",
			zap.Stringer("validator", p.Validator()),
			zap.Stringer("round", p.Round()))
		e.evidence = append(e.evidence, Conflict{First: prev.raw, Second: raw})
		return
	}
	e.inbox.prevotes[key] = &prevoteRecord{msg: p, raw: raw}

	if p.LockedRound() > e.lockedRound {
		e.sendPrevotesRequest(raw.Author(), p.LockedRound(), p.ProposeHash())
	}

	ps, ok := e.proposes[p.ProposeHash()]
	switch {
	case !ok:
		e.sendProposeRequest(raw.Author(), p.ProposeHash())
	case len(ps.unknownTxs) > 0:
		e.sendTransactionsRequest(raw.Author(), ps.missingTxs())
	}

	e.checkPrevotes(p.Round(), p.ProposeHash())
}

func (e *Engine) onPrecommit(raw *messages.SignedMessage, p *messages.Precommit) {
	key := voteKey{round: p.Round(), validator: p.Validator()}
	if prev, ok := e.inbox.precommits[key]; ok {
		if prev.msg.ProposeHash() == p.ProposeHash() && prev.msg.BlockHash() == p.BlockHash() {
			return
		}
		e.Config.Logger.Warn("conflicting precommits from a validator",
			zap.Stringer("validator", p.Validator()),
			zap.Stringer("round", p.Round()))
		e.evidence = append(e.evidence, Conflict{First: prev.raw, Second: raw})
		return
	}
	e.inbox.precommits[key] = &precommitRecord{msg: p, raw: raw}

	if p.Round() > e.lockedRound {
		e.sendPrevotesRequest(raw.Author(), p.Round(), p.ProposeHash())
	}

	ps, ok := e.proposes[p.ProposeHash()]
	switch {
	case !ok:
		e.sendProposeRequest(raw.Author(), p.ProposeHash())
	case len(ps.unknownTxs) > 0:
		e.sendTransactionsRequest(raw.Author(), ps.missingTxs())
	}

	e.checkPrecommits(p.Round(), p.ProposeHash(), p.BlockHash())
}

func (e *Engine) onTransaction(raw *messages.SignedMessage, _ *messages.Transaction) {
	e.recordTransaction(raw)
}

// recordTransaction puts a verified transaction into the pool and resolves
// the proposals waiting for it.
func (e *Engine) recordTransaction(raw *messages.SignedMessage) {
	hash := raw.Hash()

	if _, ok := e.committed[hash]; ok {
		e.Config.Logger.Debug("ignoring committed transaction", zap.Stringer("tx", hash))
		return
	}
	if _, ok := e.txs[hash]; ok {
		return
	}
	e.txs[hash] = raw

	for proposeHash, ps := range e.proposes {
		if _, ok := ps.unknownTxs[hash]; !ok {
			continue
		}

		delete(ps.unknownTxs, hash)
		if len(ps.unknownTxs) == 0 {
			e.onProposalResolved(proposeHash, ps)
		}
	}
}

func (e *Engine) onConnect(raw *messages.SignedMessage, c *messages.Connect) {
	peer := raw.Author()
	if peer == e.Config.Pub {
		return
	}

	prev, known := e.peers[peer]
	if known && !c.Time().After(prev.connect.Time()) {
		e.Config.Logger.Debug("ignoring stale connect", zap.String("peer", peerTag(peer)))
		return
	}

	e.peers[peer] = &peerState{connect: c, raw: raw}

	e.Config.Logger.Info("peer connected",
		zap.String("peer", peerTag(peer)),
		zap.String("addr", c.Addr()),
		zap.String("user_agent", c.UserAgent()))

	if !known {
		e.sendConnect(peer)
	}
}

func (e *Engine) onStatus(raw *messages.SignedMessage, s *messages.Status) {
	if s.Height() <= e.height {
		return
	}

	e.Config.Logger.Info("peer is ahead, requesting block",
		zap.Stringer("peer_height", s.Height()),
		zap.Stringer("height", e.height))
	e.sendBlockRequest(raw.Author(), e.height)
}

func (e *Engine) onBlockResponse(raw *messages.SignedMessage, b *messages.BlockResponse) {
	block := b.Block()
	if block.Height() != e.height {
		e.Config.Logger.Debug("ignoring block response for another height",
			zap.Stringer("height", block.Height()))
		return
	}

	if block.PrevHash() != e.lastHash {
		e.Config.Logger.Warn("block response with an incorrect prev_hash",
			zap.Stringer("got", block.PrevHash()))
		return
	}

	if !e.verifyPrecommits(block, b.Precommits()) {
		e.Config.Logger.Warn("block response precommits do not justify the block",
			zap.Stringer("block", block.Hash()))
		return
	}

	if uint32(len(b.Transactions())) != block.TxCount() {
		e.Config.Logger.Warn("block response transaction list does not match the header",
			zap.Int("got", len(b.Transactions())),
			zap.Uint32("want", block.TxCount()))
		return
	}

	for _, tx := range b.Transactions() {
		p, err := tx.IntoProtocol()
		if err != nil || p.Type() != messages.TransactionType {
			e.Config.Logger.Warn("block response with a non-transaction frame")
			return
		}
	}
	for _, tx := range b.Transactions() {
		e.recordTransaction(tx)
	}

	txHashes := make([]crypto.Hash, 0, len(b.Transactions()))
	for _, tx := range b.Transactions() {
		txHashes = append(txHashes, tx.Hash())
	}

	e.commitBlock(block, b.Precommits(), txHashes)
}

// verifyPrecommits checks that the signed frames decode to Precommits from
// distinct validators owning their claimed slots, all commit to the given
// block and form a quorum.
func (e *Engine) verifyPrecommits(block *messages.Block, precommits []*messages.SignedMessage) bool {
	blockHash := block.Hash()
	seen := make(map[crypto.PublicKey]struct{})

	for _, raw := range precommits {
		p, err := raw.IntoProtocol()
		if err != nil || p.Type() != messages.PrecommitType {
			return false
		}

		pc := p.GetPrecommit()
		if pc.Height() != block.Height() || pc.BlockHash() != blockHash {
			return false
		}

		pub, ok := e.validator(pc.Validator())
		if !ok || pub != raw.Author() {
			return false
		}

		if _, dup := seen[pub]; dup {
			return false
		}
		seen[pub] = struct{}{}
	}

	return len(seen) >= e.Quorum()
}

func (e *Engine) onTransactionsResponse(_ *messages.SignedMessage, t *messages.TransactionsResponse) {
	for _, tx := range t.Transactions() {
		p, err := tx.IntoProtocol()
		if err != nil || p.Type() != messages.TransactionType {
			e.Config.Logger.Warn("transactions response with a non-transaction frame")
			return
		}
	}

	for _, tx := range t.Transactions() {
		e.recordTransaction(tx)
	}
}

func (e *Engine) onProposeRequest(raw *messages.SignedMessage, req *messages.ProposeRequest) {
	if req.Height() != e.height {
		return
	}

	ps, ok := e.proposes[req.ProposeHash()]
	if !ok {
		return
	}

	e.Config.Send(raw.Author(), ps.raw)
}

func (e *Engine) onTransactionsRequest(raw *messages.SignedMessage, req *messages.TransactionsRequest) {
	var found []*messages.SignedMessage
	for _, h := range req.Transactions() {
		if tx, ok := e.txs[h]; ok {
			found = append(found, tx)
		}
	}
	if len(found) == 0 {
		return
	}

	to := raw.Author()
	e.send(to, messages.NewTransactionsResponse(to, found))
}

func (e *Engine) onPrevotesRequest(raw *messages.SignedMessage, req *messages.PrevotesRequest) {
	if req.Height() != e.height {
		return
	}

	for key, rec := range e.inbox.prevotes {
		if key.round != req.Round() || rec.msg.ProposeHash() != req.ProposeHash() {
			continue
		}
		if req.Validators().Test(uint(key.validator)) {
			continue
		}
		e.Config.Send(raw.Author(), rec.raw)
	}
}

func (e *Engine) onPeersRequest(raw *messages.SignedMessage, _ *messages.PeersRequest) {
	for _, ps := range e.peers {
		e.Config.Send(raw.Author(), ps.raw)
	}
}

func (e *Engine) onBlockRequest(raw *messages.SignedMessage, req *messages.BlockRequest) {
	// A request for the node's own height falls through: that block is
	// still being agreed on, so GetBlock has nothing to serve.
	if req.Height() > e.height {
		return
	}

	block, precommits, txs := e.Config.GetBlock(req.Height())
	if block == nil {
		e.Config.Logger.Debug("no block to serve", zap.Stringer("height", req.Height()))
		return
	}

	to := raw.Author()
	e.send(to, messages.NewBlockResponse(to, block, precommits, txs))
}

// missingTxs lists the not-yet-seen transactions of the proposal.
func (ps *proposeState) missingTxs() []crypto.Hash {
	txs := make([]crypto.Hash, 0, len(ps.unknownTxs))
	for tx := range ps.unknownTxs {
		txs = append(txs, tx)
	}
	return txs
}
