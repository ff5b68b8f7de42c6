// Command simulation runs an in-memory cluster of consensus nodes exchanging
// signed frames over channels: transactions are injected on one node, spread
// through transaction requests and every node commits the same chain.
package main

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/veles-chain/veles"
	"github.com/veles-chain/veles/crypto"
	"github.com/veles-chain/veles/messages"
	"github.com/veles-chain/veles/types"
)

type simNode struct {
	id       int
	engine   *veles.Engine
	messages chan []byte
	pub      crypto.PublicKey
	key      crypto.SecretKey
	cluster  []*simNode
	log      *zap.Logger

	pending   map[crypto.Hash]struct{}
	lastBatch []crypto.Hash
	mtx       sync.Mutex

	lastHeight types.Height
	stalls     int
	ticks      int
}

const defaultChanSize = 1000

var (
	nodebug    = flag.Bool("nodebug", false, "disable debug logging")
	count      = flag.Int("count", 4, "validator count")
	watchers   = flag.Int("watchers", 1, "watch-only node count")
	txPerBlock = flag.Int("txblock", 3, "transactions per block")
	txCount    = flag.Int("txcount", 60, "transactions to inject")
	tick       = flag.Duration("tick", 100*time.Millisecond, "scheduling tick")
	duration   = flag.Duration("duration", 10*time.Second, "duration of simulation")
)

func main() {
	flag.Parse()

	logger := initLogger()
	defer func() { _ = logger.Sync() }()

	nodes := initNodes(logger)

	ctx, cancel := initContext(*duration)
	defer cancel()

	injectTransactions(nodes[0], *txCount)

	wg := new(sync.WaitGroup)
	wg.Add(len(nodes))

	for i := range nodes {
		go func(i int) {
			defer wg.Done()

			nodes[i].run(ctx)
		}(i)
	}

	wg.Wait()

	for _, n := range nodes {
		n.log.Info("final state",
			zap.Stringer("height", n.engine.Height()),
			zap.Stringer("last_hash", n.engine.LastHash()))
	}
}

func initLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if *nodebug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "can't init logger: %v\n", err)
		os.Exit(1)
	}

	return logger
}

func initContext(d time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	if d != 0 {
		return context.WithTimeout(ctx, d)
	}

	return ctx, cancel
}

func initNodes(logger *zap.Logger) []*simNode {
	total := *count + *watchers
	nodes := make([]*simNode, total)

	pubs := make([]crypto.PublicKey, *count)
	for i := range nodes {
		pub, key, err := crypto.Generate(rand.Reader)
		if err != nil {
			panic(err)
		}

		nodes[i] = &simNode{
			id:       i,
			messages: make(chan []byte, defaultChanSize),
			pub:      pub,
			key:      key,
			log:      logger.With(zap.Int("id", i)),
			pending:  make(map[crypto.Hash]struct{}),
		}
		if i < *count {
			pubs[i] = pub
		}
	}

	for i := range nodes {
		n := nodes[i]
		n.cluster = nodes
		n.engine = veles.New(
			veles.WithLogger(n.log),
			veles.WithKeyPair(n.pub, n.key),
			veles.WithValidators(pubs...),
			veles.WithAddr(fmt.Sprintf("127.0.0.1:%d", 20000+i)),
			veles.WithUserAgent("veles/simulation"),
			veles.WithBroadcast(n.broadcast),
			veles.WithSend(n.send),
			veles.WithProcessBlock(n.processBlock),
		)
		if n.engine == nil {
			panic("can't initialize node")
		}
	}

	return nodes
}

// injectTransactions creates signed transactions on the given node and
// gossips their frames to the whole cluster.
func injectTransactions(n *simNode, count int) {
	for i := 0; i < count; i++ {
		body := make([]byte, 8)
		binary.LittleEndian.PutUint64(body, uint64(i))

		m := messages.New(messages.NewTransaction(body), n.pub, n.key)
		if err := n.engine.SubmitTransaction(m.Raw()); err != nil {
			panic(err)
		}

		n.mtx.Lock()
		n.pending[m.Raw().Hash()] = struct{}{}
		n.mtx.Unlock()

		n.broadcast(m.Raw())
	}
}

// run is the node event loop: incoming frames are fed into the engine and a
// tick drives proposal and round timeouts. The engine itself is only ever
// touched from this goroutine.
func (n *simNode) run(ctx context.Context) {
	n.engine.Start()

	ticker := time.NewTicker(*tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-n.messages:
			n.engine.OnReceive(msg)
		case <-ticker.C:
			n.onTick()
		}
	}
}

// onTick proposes a block if the node leads the current round and advances
// the round if the height stalled for two ticks in a row. Peer discovery
// runs on a slow cycle.
func (n *simNode) onTick() {
	n.ticks++
	if n.ticks%50 == 0 {
		n.engine.RequestPeers(n.cluster[(n.id+1)%len(n.cluster)].pub)
	}

	h := n.engine.Height()
	if h == n.lastHeight {
		n.stalls++
		if n.stalls >= 2 {
			n.engine.AdvanceRound()
			n.stalls = 0
		}
	} else {
		n.stalls = 0
	}
	n.lastHeight = h

	if !n.engine.IsLeader() {
		return
	}

	batch := n.batch()
	n.engine.Propose(batch...)
}

// batch picks up to txblock pending transactions for the next proposal and
// remembers the pick so a commit of this block can clear them.
func (n *simNode) batch() []crypto.Hash {
	n.mtx.Lock()
	defer n.mtx.Unlock()

	txs := make([]crypto.Hash, 0, *txPerBlock)
	for h := range n.pending {
		txs = append(txs, h)
		if len(txs) == *txPerBlock {
			break
		}
	}
	n.lastBatch = txs

	return txs
}

func (n *simNode) broadcast(msg *messages.SignedMessage) {
	for i, node := range n.cluster {
		if i == n.id {
			continue
		}
		select {
		case node.messages <- msg.Bytes():
		default:
			n.log.Warn("can't broadcast message: channel is full")
		}
	}
}

func (n *simNode) send(to crypto.PublicKey, msg *messages.SignedMessage) {
	for i, node := range n.cluster {
		if i == n.id || node.pub != to {
			continue
		}
		select {
		case node.messages <- msg.Bytes():
		default:
			n.log.Warn("can't send message: channel is full")
		}
		return
	}
}

func (n *simNode) processBlock(b *messages.Block, _ []*messages.SignedMessage) {
	n.log.Info("block accepted", zap.Stringer("block", b))

	n.mtx.Lock()
	defer n.mtx.Unlock()

	// Only the block proposer holds a pending set; if the committed
	// block is its own proposal, the batch is done.
	if b.ProposerId() == types.ValidatorId(n.id) && int(b.TxCount()) == len(n.lastBatch) {
		for _, h := range n.lastBatch {
			delete(n.pending, h)
		}
		n.lastBatch = nil
	}
}
