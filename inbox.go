package veles

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/spaolacci/murmur3"

	"github.com/veles-chain/veles/crypto"
	"github.com/veles-chain/veles/messages"
	"github.com/veles-chain/veles/types"
)

type (
	voteKey struct {
		round     types.Round
		validator types.ValidatorId
	}

	prevoteRecord struct {
		msg *messages.Prevote
		raw *messages.SignedMessage
	}

	precommitRecord struct {
		msg *messages.Precommit
		raw *messages.SignedMessage
	}

	// inbox stores consensus votes for the current height.
	inbox struct {
		prevotes   map[voteKey]*prevoteRecord
		precommits map[voteKey]*precommitRecord
	}

	cachedMessage struct {
		raw      *messages.SignedMessage
		protocol messages.Protocol
	}

	// cache is an auxiliary structure storing messages from future
	// heights until the node catches up.
	cache struct {
		mail map[types.Height][]cachedMessage
		seen map[uint64]struct{}
	}
)

func fetchID(data []byte) uint64 {
	return murmur3.Sum64(data)
}

func newInbox() *inbox {
	return &inbox{
		prevotes:   make(map[voteKey]*prevoteRecord),
		precommits: make(map[voteKey]*precommitRecord),
	}
}

// countPrevotes returns the number of recorded Prevotes for the proposal in
// the given round.
func (i *inbox) countPrevotes(round types.Round, proposeHash crypto.Hash) (count int) {
	for key, rec := range i.prevotes {
		if key.round == round && rec.msg.ProposeHash() == proposeHash {
			count++
		}
	}

	return
}

// prevoteBits returns the set of validators whose Prevote for the proposal
// in the given round is already recorded.
func (i *inbox) prevoteBits(n int, round types.Round, proposeHash crypto.Hash) *bitset.BitSet {
	bits := bitset.New(uint(n))
	for key, rec := range i.prevotes {
		if key.round == round && rec.msg.ProposeHash() == proposeHash {
			bits.Set(uint(key.validator))
		}
	}

	return bits
}

// countPrecommits returns the number of recorded Precommits sharing the
// proposal and block hash in the given round.
func (i *inbox) countPrecommits(round types.Round, proposeHash, blockHash crypto.Hash) (count int) {
	for key, rec := range i.precommits {
		if key.round == round && rec.msg.ProposeHash() == proposeHash && rec.msg.BlockHash() == blockHash {
			count++
		}
	}

	return
}

// precommitRounds returns every (round, blockHash) group with at least one
// recorded Precommit for the proposal.
func (i *inbox) precommitGroups(proposeHash crypto.Hash) map[types.Round][]crypto.Hash {
	groups := make(map[types.Round][]crypto.Hash)
	for key, rec := range i.precommits {
		if rec.msg.ProposeHash() != proposeHash {
			continue
		}

		hashes := groups[key.round]
		known := false
		for _, h := range hashes {
			if h == rec.msg.BlockHash() {
				known = true
				break
			}
		}
		if !known {
			groups[key.round] = append(hashes, rec.msg.BlockHash())
		}
	}

	return groups
}

// collectPrecommits returns the signed Precommits sharing the proposal and
// block hash in the given round.
func (i *inbox) collectPrecommits(round types.Round, proposeHash, blockHash crypto.Hash) []*messages.SignedMessage {
	var msgs []*messages.SignedMessage
	for key, rec := range i.precommits {
		if key.round == round && rec.msg.ProposeHash() == proposeHash && rec.msg.BlockHash() == blockHash {
			msgs = append(msgs, rec.raw)
		}
	}

	return msgs
}

func newCache() cache {
	return cache{
		mail: make(map[types.Height][]cachedMessage),
		seen: make(map[uint64]struct{}),
	}
}

// addMessage stores a consensus message from a future height. Frames
// already cached are dropped.
func (c *cache) addMessage(height types.Height, raw *messages.SignedMessage, p messages.Protocol) bool {
	id := fetchID(raw.Bytes())
	if _, ok := c.seen[id]; ok {
		return false
	}

	c.seen[id] = struct{}{}
	c.mail[height] = append(c.mail[height], cachedMessage{raw: raw, protocol: p})

	return true
}

// getHeight pops all cached messages for the given height.
func (c *cache) getHeight(h types.Height) []cachedMessage {
	msgs, ok := c.mail[h]
	if !ok {
		return nil
	}

	delete(c.mail, h)
	for _, m := range msgs {
		delete(c.seen, fetchID(m.raw.Bytes()))
	}

	return msgs
}
