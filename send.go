package veles

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/veles-chain/veles/crypto"
	"github.com/veles-chain/veles/messages"
	"github.com/veles-chain/veles/types"
)

// sign wraps a payload into the tagged union and signs it with the node's
// key.
func (e *Engine) sign(p messages.Payload) *messages.SignedMessage {
	return messages.New(p, e.Config.Pub, e.Config.Key).Raw()
}

func (e *Engine) broadcast(p messages.Payload) *messages.SignedMessage {
	raw := e.sign(p)

	e.Config.Logger.Debug("broadcasting message", zap.Stringer("type", p.Type()))
	e.Config.Broadcast(raw)

	return raw
}

func (e *Engine) send(to crypto.PublicKey, p messages.Payload) {
	e.Config.Logger.Debug("sending message",
		zap.Stringer("type", p.Type()),
		zap.String("to", peerTag(to)))
	e.Config.Send(to, e.sign(p))
}

func (e *Engine) sendConnect(to crypto.PublicKey) {
	e.send(to, messages.NewConnect(e.Config.Addr, time.Now(), e.Config.UserAgent))
}

func (e *Engine) broadcastConnect() {
	e.broadcast(messages.NewConnect(e.Config.Addr, time.Now(), e.Config.UserAgent))
}

func (e *Engine) broadcastStatus() {
	e.broadcast(messages.NewStatus(e.height, e.lastHash))
}

// broadcastPrevote emits the node's Prevote for the proposal in the given
// round and records it in the vote inbox. Emitting two different Prevotes
// for one round would be equivocation, so a conflicting second call panics.
func (e *Engine) broadcastPrevote(round types.Round, proposeHash crypto.Hash) {
	if e.WatchOnly() {
		return
	}

	id := types.ValidatorId(e.MyIndex)

	pv := messages.NewPrevote(id, e.height, round, proposeHash, e.lockedRound)
	if own, ok := e.ownPrevotes[round]; ok {
		if own.ProposeHash() == proposeHash {
			return
		}
		panic(fmt.Sprintf("attempt to send a conflicting Prevote at height %s round %s: had %s, got %s",
			e.height, round, own.ProposeHash(), proposeHash))
	}
	e.ownPrevotes[round] = pv

	raw := e.broadcast(pv)
	e.inbox.prevotes[voteKey{round: round, validator: id}] = &prevoteRecord{msg: pv, raw: raw}
}

// broadcastPrecommit emits the node's Precommit and records it in the vote
// inbox. A conflicting second Precommit for one round panics, same as
// broadcastPrevote.
func (e *Engine) broadcastPrecommit(round types.Round, proposeHash, blockHash crypto.Hash) {
	if e.WatchOnly() {
		return
	}

	id := types.ValidatorId(e.MyIndex)

	pc := messages.NewPrecommit(id, e.height, round, proposeHash, blockHash, time.Now())
	if own, ok := e.ownPrecommits[round]; ok {
		if own.ProposeHash() == proposeHash && own.BlockHash() == blockHash {
			return
		}
		panic(fmt.Sprintf("attempt to send a conflicting Precommit at height %s round %s: had %s, got %s",
			e.height, round, own.BlockHash(), blockHash))
	}
	e.ownPrecommits[round] = pc

	raw := e.broadcast(pc)
	e.inbox.precommits[voteKey{round: round, validator: id}] = &precommitRecord{msg: pc, raw: raw}
}

func (e *Engine) sendProposeRequest(to crypto.PublicKey, proposeHash crypto.Hash) {
	e.send(to, messages.NewProposeRequest(to, e.height, proposeHash))
}

func (e *Engine) sendTransactionsRequest(to crypto.PublicKey, txs []crypto.Hash) {
	e.send(to, messages.NewTransactionsRequest(to, txs))
}

func (e *Engine) sendPrevotesRequest(to crypto.PublicKey, round types.Round, proposeHash crypto.Hash) {
	bits := e.inbox.prevoteBits(e.N(), round, proposeHash)
	e.send(to, messages.NewPrevotesRequest(to, e.height, round, proposeHash, bits))
}

func (e *Engine) sendBlockRequest(to crypto.PublicKey, height types.Height) {
	e.send(to, messages.NewBlockRequest(to, height))
}

// RequestPeers asks the given node for its connected peers. The maintenance
// loop owning the engine calls this periodically.
func (e *Engine) RequestPeers(to crypto.PublicKey) {
	e.send(to, messages.NewPeersRequest(to))
}

// peerTag is a short peer key fingerprint for logs.
func peerTag(pub crypto.PublicKey) string {
	sum := crypto.Sum160(pub[:])
	return fmt.Sprintf("%x", sum[:4])
}
