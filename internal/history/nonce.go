package history

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"safeTasks/internal/model"
	"safeTasks/internal/safe"
)

// NonceNotFound is returned by NonceSession.Map when no candidate matches.
const NonceNotFound int64 = -1

// NonceConfig is an uninitialized nonce recovery engine for one Safe.
type NonceConfig struct {
	Backend Backend
	Safe    common.Address
}

// NonceSession holds the on-chain state needed to recover nonces. It is
// immutable and safe for concurrent use.
type NonceSession struct {
	safe         common.Address
	chainID      *big.Int
	currentNonce uint64
}

// Init fetches the current Safe nonce and the chain id.
func (c NonceConfig) Init(ctx context.Context) (*NonceSession, error) {
	nonce, err := safe.Nonce(ctx, c.Backend, c.Safe)
	if err != nil {
		return nil, fmt.Errorf("fetch safe nonce: %w", err)
	}
	chainID, err := c.Backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch chain id: %w", err)
	}
	return NewNonceSession(c.Safe, chainID, nonce), nil
}

// NewNonceSession builds a session from known values.
func NewNonceSession(safeAddress common.Address, chainID *big.Int, currentNonce uint64) *NonceSession {
	return &NonceSession{
		safe:         safeAddress,
		chainID:      new(big.Int).Set(chainID),
		currentNonce: currentNonce,
	}
}

// CurrentNonce is the Safe nonce at initialization time.
func (s *NonceSession) CurrentNonce() uint64 {
	return s.currentNonce
}

// Map scans nonces from the current one down to zero and returns the first
// whose legacy or current Safe tx hash equals expected.
func (s *NonceSession) Map(expected common.Hash, body model.SafeTxBody) int64 {
	for nonce := int64(s.currentNonce); nonce >= 0; nonce-- {
		tx := model.SafeTx{SafeTxBody: body, Nonce: uint64(nonce)}
		if hash, err := safe.LegacyTxHash(s.safe, tx); err == nil && hash == expected {
			return nonce
		}
		if hash, err := safe.TxHash(s.safe, s.chainID, tx); err == nil && hash == expected {
			return nonce
		}
	}
	return NonceNotFound
}
