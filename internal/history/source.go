package history

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"safeTasks/internal/model"
	"safeTasks/internal/safe"
)

// Backend is the chain access the history engine needs.
type Backend interface {
	FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
	BlockTimestamp(ctx context.Context, blockHash common.Hash) (uint64, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// Source runs the log queries that feed a history load. Every query spans
// from genesis to the latest block.
type Source struct {
	backend Backend
}

// NewSource creates a log source on top of backend.
func NewSource(backend Backend) *Source {
	return &Source{backend: backend}
}

// Outgoing returns Transfer logs with the account as indexed sender.
func (s *Source) Outgoing(ctx context.Context, account common.Address) ([]model.LogEntry, error) {
	return s.query(ctx, "outgoing transfers", nil, [][]common.Hash{
		{safe.TransferTopic},
		{addressTopic(account)},
	})
}

// Incoming returns Transfer logs with the account as indexed recipient.
func (s *Source) Incoming(ctx context.Context, account common.Address) ([]model.LogEntry, error) {
	return s.query(ctx, "incoming transfers", nil, [][]common.Hash{
		{safe.TransferTopic},
		nil,
		{addressTopic(account)},
	})
}

// IncomingEther returns SafeReceived logs emitted by the account.
func (s *Source) IncomingEther(ctx context.Context, account common.Address) ([]model.LogEntry, error) {
	return s.query(ctx, "incoming ether", []common.Address{account}, [][]common.Hash{
		{safe.SafeReceivedTopic},
	})
}

// Multisig returns outcome and details logs of owner-signed executions.
func (s *Source) Multisig(ctx context.Context, account common.Address) ([]model.LogEntry, error) {
	return s.query(ctx, "multisig executions", []common.Address{account}, [][]common.Hash{
		{safe.ExecutionSuccessTopic, safe.ExecutionFailureTopic, safe.SafeMultiSigTransactionTopic},
	})
}

// Module returns outcome and details logs of module executions.
func (s *Source) Module(ctx context.Context, account common.Address) ([]model.LogEntry, error) {
	return s.query(ctx, "module executions", []common.Address{account}, [][]common.Hash{
		{safe.ExecutionFromModuleSuccessTopic, safe.ExecutionFromModuleFailureTopic, safe.SafeModuleTransactionTopic},
	})
}

func (s *Source) query(ctx context.Context, name string, addresses []common.Address, topics [][]common.Hash) ([]model.LogEntry, error) {
	logs, err := s.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: big.NewInt(0),
		Addresses: addresses,
		Topics:    topics,
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}
	entries := make([]model.LogEntry, 0, len(logs))
	for _, log := range logs {
		if log.Removed {
			continue
		}
		entries = append(entries, model.LogEntryFromLog(log))
	}
	return entries, nil
}

func addressTopic(account common.Address) common.Hash {
	return common.BytesToHash(common.LeftPadBytes(account.Bytes(), 32))
}
