package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"
)

// Options tunes how the client talks to the node.
type Options struct {
	MaxRetries   int
	RetryBackoff time.Duration
	// Timeout bounds a single RPC attempt. Zero disables it.
	Timeout time.Duration
	// RateLimit is the number of requests per second. Zero disables limiting.
	RateLimit float64
	// MaxBlockRange splits log queries into chunks of at most this many
	// blocks. Zero sends each query as is.
	MaxBlockRange uint64
}

// Client wraps go-ethereum RPC and provides helper methods.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
	opts      Options
	limiter   *rate.Limiter

	mu      sync.RWMutex
	tsCache map[common.Hash]uint64
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string, opts Options) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	client := &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		opts:      opts,
		tsCache:   make(map[common.Hash]uint64),
	}
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		client.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return client, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// ChainID returns the chain ID.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return retrying(c, ctx, func(ctx context.Context) (*big.Int, error) {
		return c.ethClient.ChainID(ctx)
	})
}

// LatestBlockNumber returns the latest block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return retrying(c, ctx, func(ctx context.Context) (uint64, error) {
		return c.ethClient.BlockNumber(ctx)
	})
}

// BlockTimestamp returns the timestamp of the block with the given hash, using an in-memory cache.
func (c *Client) BlockTimestamp(ctx context.Context, blockHash common.Hash) (uint64, error) {
	c.mu.RLock()
	ts, ok := c.tsCache[blockHash]
	c.mu.RUnlock()
	if ok {
		return ts, nil
	}

	header, err := retrying(c, ctx, func(ctx context.Context) (*types.Header, error) {
		return c.ethClient.HeaderByHash(ctx, blockHash)
	})
	if err != nil {
		return 0, err
	}

	ts = header.Time
	c.mu.Lock()
	c.tsCache[blockHash] = ts
	c.mu.Unlock()

	return ts, nil
}

// FilterLogs returns the logs matching query in ascending order. A nil
// ToBlock means the latest block.
func (c *Client) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	if c.opts.MaxBlockRange == 0 || query.BlockHash != nil {
		return c.filterLogs(ctx, query)
	}

	var from uint64
	if query.FromBlock != nil {
		from = query.FromBlock.Uint64()
	}
	var to uint64
	if query.ToBlock != nil {
		to = query.ToBlock.Uint64()
	} else {
		latest, err := c.LatestBlockNumber(ctx)
		if err != nil {
			return nil, fmt.Errorf("latest block: %w", err)
		}
		to = latest
	}
	if to < from {
		return nil, nil
	}

	ranges, err := SplitRange(from, to, c.opts.MaxBlockRange)
	if err != nil {
		return nil, err
	}
	var out []types.Log
	for _, r := range ranges {
		chunk := query
		chunk.FromBlock = new(big.Int).SetUint64(r.From)
		chunk.ToBlock = new(big.Int).SetUint64(r.To)
		logs, err := c.filterLogs(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("logs %d-%d: %w", r.From, r.To, err)
		}
		out = append(out, logs...)
	}
	return out, nil
}

func (c *Client) filterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	return retrying(c, ctx, func(ctx context.Context) ([]types.Log, error) {
		return c.ethClient.FilterLogs(ctx, query)
	})
}

// TransactionByHash returns a mined or pending transaction.
func (c *Client) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, error) {
	return retrying(c, ctx, func(ctx context.Context) (*types.Transaction, error) {
		tx, _, err := c.ethClient.TransactionByHash(ctx, hash)
		return tx, err
	})
}

// TransactionReceipt returns the receipt of a mined transaction.
// ethereum.NotFound is returned while the transaction is pending.
func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return retrying(c, ctx, func(ctx context.Context) (*types.Receipt, error) {
		return c.ethClient.TransactionReceipt(ctx, hash)
	})
}

// CallContract performs an eth_call for a contract method.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return retrying(c, ctx, func(ctx context.Context) ([]byte, error) {
		return c.ethClient.CallContract(ctx, msg, blockNumber)
	})
}

// StorageAt reads a storage slot of account.
func (c *Client) StorageAt(ctx context.Context, account common.Address, key common.Hash, blockNumber *big.Int) ([]byte, error) {
	return retrying(c, ctx, func(ctx context.Context) ([]byte, error) {
		return c.ethClient.StorageAt(ctx, account, key, blockNumber)
	})
}

// PendingNonceAt returns the next account nonce including pending transactions.
func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return retrying(c, ctx, func(ctx context.Context) (uint64, error) {
		return c.ethClient.PendingNonceAt(ctx, account)
	})
}

// SuggestGasPrice returns the node's gas price suggestion.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return retrying(c, ctx, func(ctx context.Context) (*big.Int, error) {
		return c.ethClient.SuggestGasPrice(ctx)
	})
}

// EstimateGas estimates the gas needed for msg.
func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return retrying(c, ctx, func(ctx context.Context) (uint64, error) {
		return c.ethClient.EstimateGas(ctx, msg)
	})
}

// SendTransaction broadcasts a signed transaction. It is never retried.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	ctx, cancel := c.attemptContext(ctx)
	defer cancel()
	return c.ethClient.SendTransaction(ctx, tx)
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *Client) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.opts.Timeout)
}

func retrying[T any](c *Client, ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := withRetry(ctx, c.opts.MaxRetries, c.opts.RetryBackoff, func(ctx context.Context) error {
		if err := c.wait(ctx); err != nil {
			return err
		}
		attemptCtx, cancel := c.attemptContext(ctx)
		defer cancel()
		value, err := fn(attemptCtx)
		if err != nil {
			if errors.Is(err, ethereum.NotFound) {
				return permanent{err}
			}
			return err
		}
		out = value
		return nil
	})
	var p permanent
	if errors.As(err, &p) {
		return out, p.err
	}
	return out, err
}

// permanent marks errors that retrying cannot fix.
type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }
