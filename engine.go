// Package veles implements the message-processing rules of a round-based
// Byzantine-fault-tolerant consensus protocol: signature-checked intake,
// the per-message validation, processing and generation contracts, quorum
// and locking, and catch-up over the synchronization message family.
//
// All state transitions are driven by OnReceive and the generation methods;
// none of them is safe for concurrent use. The caller owns the event loop,
// timeouts and transport and must serialize calls into one Engine. In
// particular the double-vote check relies on that serialization point.
package veles

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/veles-chain/veles/crypto"
	"github.com/veles-chain/veles/messages"
	"github.com/veles-chain/veles/types"
)

var (
	errNoKey        = errors.New("secret key is missing")
	errNoValidators = errors.New("validator list is empty")
)

// Engine is the consensus message engine of a single node.
type Engine struct {
	Context
}

// New returns a new Engine with the provided options and nil if some of the
// options are missing or invalid.
func New(options ...Option) *Engine {
	cfg := defaultConfig()

	for _, option := range options {
		option(cfg)
	}

	if err := checkConfig(cfg); err != nil {
		return nil
	}

	e := &Engine{
		Context: Context{
			Config:  cfg,
			MyIndex: -1,
		},
	}

	for i := range cfg.Validators {
		if cfg.Validators[i] == cfg.Pub {
			e.MyIndex = i
			break
		}
	}

	e.height = cfg.StartHeight
	e.lastHash = cfg.StartHash
	e.proposes = make(map[crypto.Hash]*proposeState)
	e.inbox = newInbox()
	e.cache = newCache()
	e.txs = make(map[crypto.Hash]*messages.SignedMessage)
	e.committed = make(map[crypto.Hash]struct{})
	e.ownPrevotes = make(map[types.Round]*messages.Prevote)
	e.ownPrecommits = make(map[types.Round]*messages.Precommit)
	e.peers = make(map[crypto.PublicKey]*peerState)

	return e
}

// Start announces the node: Connect is broadcast to the known peers and the
// current Status follows it.
func (e *Engine) Start() {
	var role string
	switch {
	case e.IsLeader():
		role = "Leader"
	case e.WatchOnly():
		role = "WatchOnly"
	default:
		role = "Validator"
	}

	e.Config.Logger.Info("starting",
		zap.Stringer("height", e.height),
		zap.Int("index", e.MyIndex),
		zap.String("role", role))

	e.broadcastConnect()
	e.broadcastStatus()
}

// AdvanceRound moves the node to the next round within the current height.
// Round timeouts are owned by the caller.
func (e *Engine) AdvanceRound() {
	e.round = e.round.Next()

	e.Config.Logger.Debug("round advanced",
		zap.Stringer("height", e.height),
		zap.Stringer("round", e.round))
}

// Propose broadcasts a block proposal with the given transactions. Only the
// leader of the current height and round proposes; a node locked to an
// earlier proposal does not propose another one.
func (e *Engine) Propose(txs ...crypto.Hash) {
	if !e.IsLeader() {
		e.Config.Logger.Warn("propose attempt by a non-leader",
			zap.Stringer("round", e.round))
		return
	}

	if e.lockedHash != (crypto.Hash{}) {
		e.Config.Logger.Debug("locked, not proposing",
			zap.Stringer("locked", e.lockedHash))
		return
	}

	for _, tx := range txs {
		if !e.knownTx(tx) {
			e.Config.Logger.Warn("propose attempt with an unknown transaction",
				zap.Stringer("tx", tx))
			return
		}
		if _, ok := e.committed[tx]; ok {
			e.Config.Logger.Warn("propose attempt with a committed transaction",
				zap.Stringer("tx", tx))
			return
		}
	}

	p := messages.NewPropose(types.ValidatorId(e.MyIndex), e.height, e.round, e.lastHash, txs)
	raw := e.broadcast(p)

	// The leader handles its own proposal the same way the peers do,
	// pre-voting for it along the way.
	e.onPropose(raw, p)
}

// OnReceive verifies a raw frame received from the network and advances the
// state machine in accordance with the decoded message. Adversarial and
// corrupted input is dropped without any further effect.
func (e *Engine) OnReceive(data []byte) {
	raw, err := messages.Verify(data)
	if err != nil {
		e.Config.Logger.Debug("dropping unverified message", zap.Error(err))
		return
	}

	p, err := raw.IntoProtocol()
	if err != nil {
		e.Config.Logger.Debug("dropping undecodable message", zap.Error(err))
		return
	}

	e.onProtocol(raw, p)
}

func (e *Engine) onProtocol(raw *messages.SignedMessage, p messages.Protocol) {
	e.Config.Logger.Debug("received message",
		zap.Stringer("type", p.Type()),
		zap.Stringer("height", e.height))

	if cm, ok := p.Consensus(); ok {
		e.onConsensus(raw, p, cm)
		return
	}

	if req, ok := p.Request(); ok {
		if req.To() != e.Config.Pub {
			e.Config.Logger.Debug("message for another recipient",
				zap.Stringer("type", p.Type()))
			return
		}

		switch p.Type() {
		case messages.ProposeRequestType:
			e.onProposeRequest(raw, p.GetProposeRequest())
		case messages.TransactionsRequestType:
			e.onTransactionsRequest(raw, p.GetTransactionsRequest())
		case messages.PrevotesRequestType:
			e.onPrevotesRequest(raw, p.GetPrevotesRequest())
		case messages.PeersRequestType:
			e.onPeersRequest(raw, p.GetPeersRequest())
		case messages.BlockRequestType:
			e.onBlockRequest(raw, p.GetBlockRequest())
		case messages.BlockResponseType:
			e.onBlockResponse(raw, p.GetBlockResponse())
		case messages.TransactionsResponseType:
			e.onTransactionsResponse(raw, p.GetTransactionsResponse())
		}
		return
	}

	switch p.Type() {
	case messages.TransactionType:
		e.onTransaction(raw, p.GetTransaction())
	case messages.ConnectType:
		e.onConnect(raw, p.GetConnect())
	case messages.StatusType:
		e.onStatus(raw, p.GetStatus())
	}
}

// onConsensus performs the checks shared by the whole consensus family: the
// validator id must be in range, the author key must match the claimed slot
// and the height must be the current one. Messages from future heights are
// cached and replayed after commit.
func (e *Engine) onConsensus(raw *messages.SignedMessage, p messages.Protocol, cm messages.ConsensusMessage) {
	pub, ok := e.validator(cm.Validator())
	if !ok {
		e.Config.Logger.Warn("consensus message with invalid validator id",
			zap.Stringer("validator", cm.Validator()))
		return
	}

	if pub != raw.Author() {
		e.Config.Logger.Warn("consensus message author does not own the claimed slot",
			zap.Stringer("validator", cm.Validator()))
		return
	}

	if cm.Height() < e.height {
		e.Config.Logger.Debug("ignoring old height",
			zap.Stringer("height", cm.Height()))
		return
	}

	if cm.Height() > e.height {
		e.Config.Logger.Debug("caching message from future",
			zap.Stringer("height", cm.Height()))
		e.cache.addMessage(cm.Height(), raw, p)
		return
	}

	switch p.Type() {
	case messages.ProposeType:
		e.onPropose(raw, p.GetPropose())
	case messages.PrevoteType:
		e.onPrevote(raw, p.GetPrevote())
	case messages.PrecommitType:
		e.onPrecommit(raw, p.GetPrecommit())
	}
}

// SubmitTransaction records a locally produced signed transaction in the
// pool. The frame must carry a Transaction message.
func (e *Engine) SubmitTransaction(raw *messages.SignedMessage) error {
	p, err := raw.IntoProtocol()
	if err != nil {
		return err
	}

	if p.Type() != messages.TransactionType {
		return errors.Wrapf(messages.ErrUnexpectedType, "got %s", p.Type())
	}

	e.recordTransaction(raw)

	return nil
}
