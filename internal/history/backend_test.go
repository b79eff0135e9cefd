package history

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sort"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"safeTasks/internal/model"
	"safeTasks/internal/safe"
)

var (
	testSafe  = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testOwner = common.HexToAddress("0x2000000000000000000000000000000000000002")
	testB     = common.HexToAddress("0x3000000000000000000000000000000000000003")
	testToken = common.HexToAddress("0x4000000000000000000000000000000000000004")
)

type fakeBackend struct {
	mu         sync.Mutex
	logs       []types.Log
	txs        map[common.Hash]*types.Transaction
	nonce      uint64
	chainID    *big.Int
	filterErr  error
	nonceCalls int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{txs: make(map[common.Hash]*types.Transaction), chainID: big.NewInt(1)}
}

func (f *fakeBackend) FilterLogs(_ context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	if f.filterErr != nil {
		return nil, f.filterErr
	}
	var out []types.Log
	for _, log := range f.logs {
		if matchesQuery(log, query) {
			out = append(out, log)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return model.LogEntryFromLog(out[i]).Before(model.LogEntryFromLog(out[j]))
	})
	return out, nil
}

func (f *fakeBackend) BlockTimestamp(_ context.Context, blockHash common.Hash) (uint64, error) {
	return new(big.Int).SetBytes(blockHash.Bytes()).Uint64() * 12, nil
}

func (f *fakeBackend) TransactionByHash(_ context.Context, hash common.Hash) (*types.Transaction, error) {
	tx, ok := f.txs[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return tx, nil
}

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	parsed, err := safe.ABI()
	if err != nil {
		return nil, err
	}
	method := parsed.Methods["nonce"]
	if len(msg.Data) < 4 || !bytes.Equal(msg.Data[:4], method.ID) {
		return nil, errors.New("unexpected call")
	}
	f.mu.Lock()
	f.nonceCalls++
	f.mu.Unlock()
	return method.Outputs.Pack(new(big.Int).SetUint64(f.nonce))
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) {
	return f.chainID, nil
}

func matchesQuery(log types.Log, query ethereum.FilterQuery) bool {
	if len(query.Addresses) > 0 {
		found := false
		for _, address := range query.Addresses {
			if address == log.Address {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for i, set := range query.Topics {
		if len(set) == 0 {
			continue
		}
		if i >= len(log.Topics) {
			return false
		}
		found := false
		for _, topic := range set {
			if topic == log.Topics[i] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func blockHash(block uint64) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(block))
}

func txHashAt(block, txIndex uint64) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(block<<16 | txIndex))
}

func entry(block, txIndex, logIndex uint64, topic common.Hash) model.LogEntry {
	return model.LogEntry{
		BlockNumber: block,
		BlockHash:   blockHash(block),
		TxHash:      txHashAt(block, txIndex),
		TxIndex:     txIndex,
		LogIndex:    logIndex,
		Address:     testSafe,
		Topics:      []common.Hash{topic},
	}
}

func rawLog(e model.LogEntry) types.Log {
	return types.Log{
		Address:     e.Address,
		Topics:      e.Topics,
		Data:        e.Data,
		BlockNumber: e.BlockNumber,
		TxHash:      e.TxHash,
		TxIndex:     uint(e.TxIndex),
		BlockHash:   e.BlockHash,
		Index:       uint(e.LogIndex),
	}
}

func erc20TransferEntry(t *testing.T, block, txIndex, logIndex uint64, from, to common.Address, amount int64) model.LogEntry {
	t.Helper()
	e := entry(block, txIndex, logIndex, safe.TransferTopic)
	e.Address = testToken
	e.Topics = append(e.Topics, addressTopic(from), addressTopic(to))
	e.Data = common.LeftPadBytes(big.NewInt(amount).Bytes(), 32)
	return e
}

func executionSuccessEntry(t *testing.T, block, txIndex, logIndex uint64, safeTxHash common.Hash) model.LogEntry {
	t.Helper()
	parsed, err := safe.ABI()
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	data, err := parsed.Events["ExecutionSuccess"].Inputs.NonIndexed().Pack([32]byte(safeTxHash), big.NewInt(0))
	if err != nil {
		t.Fatalf("pack ExecutionSuccess: %v", err)
	}
	e := entry(block, txIndex, logIndex, safe.ExecutionSuccessTopic)
	e.Data = data
	return e
}

func multisigDetailsEntry(t *testing.T, block, txIndex, logIndex uint64, tx model.SafeTx) model.LogEntry {
	t.Helper()
	parsed, err := safe.ABI()
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	additionalInfo := common.LeftPadBytes(new(big.Int).SetUint64(tx.Nonce).Bytes(), 32)
	additionalInfo = append(additionalInfo, common.LeftPadBytes(testOwner.Bytes(), 32)...)
	data, err := parsed.Events["SafeMultiSigTransaction"].Inputs.NonIndexed().Pack(
		tx.To,
		mustBig(t, tx.Value),
		[]byte(tx.Data),
		tx.Operation,
		mustBig(t, tx.SafeTxGas),
		mustBig(t, tx.BaseGas),
		mustBig(t, tx.GasPrice),
		tx.GasToken,
		tx.RefundReceiver,
		[]byte{},
		additionalInfo,
	)
	if err != nil {
		t.Fatalf("pack SafeMultiSigTransaction: %v", err)
	}
	e := entry(block, txIndex, logIndex, safe.SafeMultiSigTransactionTopic)
	e.Data = data
	return e
}

func mustBig(t *testing.T, value string) *big.Int {
	t.Helper()
	out, ok := new(big.Int).SetString(value, 10)
	if !ok {
		t.Fatalf("invalid number %q", value)
	}
	return out
}
