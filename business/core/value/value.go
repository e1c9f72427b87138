// Package value provides the core business API for the stored value and its
// update history.
package value

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ardanlabs/simplestorage/business/sys/metrics"
	"github.com/ardanlabs/simplestorage/business/sys/rpcerr"
	"github.com/ardanlabs/simplestorage/foundation/contract"
	"go.uber.org/zap"
)

// Set of error variables for the value core.
var (
	ErrInvalidRange = errors.New("invalid block range")
)

// errBeforeStart reports a defaulted range that ends before the contract
// was deployed.
var errBeforeStart = errors.New("range ends before the start block")

// Defaults used when the configuration leaves a value unset. The provider
// rejects log queries spanning 2048 blocks or more.
const (
	DefaultWindow   = 2000
	DefaultMaxRange = 2048
)

// Reader is the behavior required from the contract binding.
type Reader interface {
	Value(ctx context.Context) (*big.Int, error)
	Head(ctx context.Context) (uint64, error)
	FilterValueUpdated(ctx context.Context, from uint64, to *uint64) ([]contract.ValueUpdated, error)
}

// Config represents the settings for the core.
type Config struct {
	Window     uint64
	MaxRange   uint64
	StartBlock uint64
	RPCTimeout time.Duration
}

// Core manages the set of APIs for reading the stored value.
type Core struct {
	log    *zap.SugaredLogger
	reader Reader
	cfg    Config
}

// NewCore constructs a core for value api access.
func NewCore(log *zap.SugaredLogger, reader Reader, cfg Config) *Core {
	if cfg.MaxRange == 0 {
		cfg.MaxRange = DefaultMaxRange
	}

	if cfg.Window == 0 {
		cfg.Window = DefaultWindow
	}

	if cfg.Window > cfg.MaxRange {
		cfg.Window = cfg.MaxRange
	}

	return &Core{
		log:    log,
		reader: reader,
		cfg:    cfg,
	}
}

// Latest returns the value currently held by the contract.
func (c *Core) Latest(ctx context.Context) (*big.Int, error) {
	ctx, cancel := c.rpcContext(ctx)
	defer cancel()

	start := time.Now()
	v, err := c.reader.Value(ctx)
	observe("getValue", start, err)

	if err != nil {
		return nil, fmt.Errorf("latest value: %w", err)
	}

	return v, nil
}

// Head returns the latest block number known to the node.
func (c *Core) Head(ctx context.Context) (uint64, error) {
	ctx, cancel := c.rpcContext(ctx)
	defer cancel()

	start := time.Now()
	n, err := c.reader.Head(ctx)
	observe("blockNumber", start, err)

	if err != nil {
		return 0, fmt.Errorf("head: %w", err)
	}

	return n, nil
}

// QueryUpdates returns the updates of the value recorded in the block range.
// An unset bound is resolved against the head of the chain.
func (c *Core) QueryUpdates(ctx context.Context, br BlockRange) ([]Update, error) {
	from, to, err := c.resolve(ctx, br)
	if err != nil {
		if errors.Is(err, errBeforeStart) {
			return []Update{}, nil
		}
		return nil, err
	}

	return c.filter(ctx, from, to)
}

// =============================================================================

// resolve turns a requested range into concrete bounds and validates them.
func (c *Core) resolve(ctx context.Context, br BlockRange) (uint64, uint64, error) {
	if err := br.Validate(c.cfg.MaxRange); err != nil {
		return 0, 0, err
	}

	var to uint64
	switch {
	case br.To != nil:
		to = *br.To

	default:
		head, err := c.Head(ctx)
		if err != nil {
			return 0, 0, err
		}
		to = head
	}

	var from uint64
	switch {
	case br.From != nil:
		from = *br.From

	default:
		if to < c.cfg.StartBlock {
			return 0, 0, errBeforeStart
		}

		if to+1 > c.cfg.Window {
			from = to + 1 - c.cfg.Window
		}
		from = max(from, c.cfg.StartBlock)
	}

	if err := checkRange(from, to, c.cfg.MaxRange); err != nil {
		return 0, 0, err
	}

	return from, to, nil
}

// filter performs the log query for an already validated range.
func (c *Core) filter(ctx context.Context, from uint64, to uint64) ([]Update, error) {
	ctx, cancel := c.rpcContext(ctx)
	defer cancel()

	start := time.Now()
	logs, err := c.reader.FilterValueUpdated(ctx, from, &to)
	observe("getLogs", start, err)

	if err != nil {
		return nil, fmt.Errorf("query updates [%d, %d]: %w", from, to, err)
	}

	return toUpdates(logs), nil
}

// rpcContext bounds a single rpc call by the configured timeout.
func (c *Core) rpcContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.RPCTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.RPCTimeout)
}

// observe records the outcome of an rpc call.
func observe(method string, start time.Time, err error) {
	metrics.ObserveRPC(method, rpcerr.Classify(err).String(), time.Since(start))
}
