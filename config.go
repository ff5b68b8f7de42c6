package veles

import (
	"go.uber.org/zap"

	"github.com/veles-chain/veles/crypto"
	"github.com/veles-chain/veles/messages"
	"github.com/veles-chain/veles/types"
)

// Config contains initialization and working parameters for the consensus
// message engine.
type Config struct {
	// Logger
	Logger *zap.Logger
	// Pub is the node's public key.
	Pub crypto.PublicKey
	// Key is the node's secret key.
	Key crypto.SecretKey
	// Validators is the list of validator public keys, ordered by
	// validator id.
	Validators []crypto.PublicKey
	// Addr is the node's advertised network address.
	Addr string
	// UserAgent describes the node software in Connect messages.
	UserAgent string
	// StartHeight is the height of the next block to agree on.
	StartHeight types.Height
	// StartHash is the hash of the last committed block.
	StartHash crypto.Hash
	// Broadcast should deliver a signed message to every peer.
	Broadcast func(msg *messages.SignedMessage)
	// Send should deliver a signed message to the peer owning the key.
	Send func(to crypto.PublicKey, msg *messages.SignedMessage)
	// ExecuteBlock builds the block header a proposal results in. The
	// transaction and state roots are computed by the schema and storage
	// layer behind this callback.
	ExecuteBlock func(p *messages.Propose) *messages.Block
	// ProcessBlock is called on every committed block together with the
	// pre-commits justifying it.
	ProcessBlock func(b *messages.Block, precommits []*messages.SignedMessage)
	// GetBlock should return a committed block by height together with
	// its pre-commits and full transactions. It serves BlockRequest; a
	// nil block means the request stays unanswered.
	GetBlock func(h types.Height) (*messages.Block, []*messages.SignedMessage, []*messages.SignedMessage)
}

// Option is a functional option for New.
type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		Logger:       zap.NewNop(),
		UserAgent:    "veles/dev",
		Broadcast:    func(*messages.SignedMessage) {},
		Send:         func(crypto.PublicKey, *messages.SignedMessage) {},
		ProcessBlock: func(*messages.Block, []*messages.SignedMessage) {},
		GetBlock: func(types.Height) (*messages.Block, []*messages.SignedMessage, []*messages.SignedMessage) {
			return nil, nil, nil
		},
	}
}

func checkConfig(cfg *Config) error {
	if cfg.Key == (crypto.SecretKey{}) {
		return errNoKey
	} else if len(cfg.Validators) == 0 {
		return errNoValidators
	}

	return nil
}

// WithLogger sets Logger.
func WithLogger(log *zap.Logger) Option {
	return func(cfg *Config) {
		cfg.Logger = log
	}
}

// WithKeyPair sets Pub and Key.
func WithKeyPair(pub crypto.PublicKey, key crypto.SecretKey) Option {
	return func(cfg *Config) {
		cfg.Pub = pub
		cfg.Key = key
	}
}

// WithValidators sets Validators.
func WithValidators(pubs ...crypto.PublicKey) Option {
	return func(cfg *Config) {
		cfg.Validators = pubs
	}
}

// WithAddr sets Addr.
func WithAddr(addr string) Option {
	return func(cfg *Config) {
		cfg.Addr = addr
	}
}

// WithUserAgent sets UserAgent.
func WithUserAgent(ua string) Option {
	return func(cfg *Config) {
		cfg.UserAgent = ua
	}
}

// WithChainTip sets StartHeight and StartHash.
func WithChainTip(height types.Height, hash crypto.Hash) Option {
	return func(cfg *Config) {
		cfg.StartHeight = height
		cfg.StartHash = hash
	}
}

// WithBroadcast sets Broadcast.
func WithBroadcast(f func(msg *messages.SignedMessage)) Option {
	return func(cfg *Config) {
		cfg.Broadcast = f
	}
}

// WithSend sets Send.
func WithSend(f func(to crypto.PublicKey, msg *messages.SignedMessage)) Option {
	return func(cfg *Config) {
		cfg.Send = f
	}
}

// WithExecuteBlock sets ExecuteBlock.
func WithExecuteBlock(f func(p *messages.Propose) *messages.Block) Option {
	return func(cfg *Config) {
		cfg.ExecuteBlock = f
	}
}

// WithProcessBlock sets ProcessBlock.
func WithProcessBlock(f func(b *messages.Block, precommits []*messages.SignedMessage)) Option {
	return func(cfg *Config) {
		cfg.ProcessBlock = f
	}
}

// WithGetBlock sets GetBlock.
func WithGetBlock(f func(h types.Height) (*messages.Block, []*messages.SignedMessage, []*messages.SignedMessage)) Option {
	return func(cfg *Config) {
		cfg.GetBlock = f
	}
}
