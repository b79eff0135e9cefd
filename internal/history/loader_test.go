package history

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"safeTasks/internal/model"
	"safeTasks/internal/safe"
)

func TestLoadHistoryEndToEnd(t *testing.T) {
	backend := newFakeBackend()
	backend.nonce = 4

	transfer := erc20TransferEntry(t, 100, 0, 0, testSafe, testB, 25)

	tx := model.NewSafeTx(testB, "0", nil, model.OperationCall, 3)
	safeTxHash, err := safe.TxHash(testSafe, backend.chainID, tx)
	require.NoError(t, err)
	details := multisigDetailsEntry(t, 200, 1, 0, tx)
	outcome := executionSuccessEntry(t, 200, 1, 1, safeTxHash)

	// Unrelated logs must be ignored by every query.
	unrelated := erc20TransferEntry(t, 150, 0, 0, testB, testOwner, 1)

	for _, e := range []model.LogEntry{transfer, details, outcome, unrelated} {
		backend.logs = append(backend.logs, rawLog(e))
	}

	events, err := NewLoader(backend, nil).LoadHistory(context.Background(), testSafe, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)

	multisig, ok := events[0].(*model.MultisigTx)
	require.True(t, ok, "first event is %T", events[0])
	require.Equal(t, int64(3), multisig.Nonce)
	require.True(t, multisig.Success)
	require.Equal(t, testB, multisig.To)
	require.Equal(t, "0", multisig.Value)
	require.Empty(t, multisig.Data)
	require.Equal(t, safeTxHash.Hex(), multisig.SafeTxHash)
	require.Equal(t, outcome.TxHash.Hex(), multisig.TxHash)

	outgoing, ok := events[1].(*model.TransferTx)
	require.True(t, ok, "second event is %T", events[1])
	require.Equal(t, model.DirectionOutgoing, outgoing.Direction)
	require.Equal(t, "25", outgoing.Details.Value)
}

func TestLoadHistoryPages(t *testing.T) {
	backend := newFakeBackend()
	for block := uint64(1); block <= 7; block++ {
		backend.logs = append(backend.logs, rawLog(erc20TransferEntry(t, block, 0, 0, testB, testSafe, int64(block))))
	}
	loader := NewLoader(backend, nil)

	first, err := loader.LoadHistory(context.Background(), testSafe, 0)
	require.NoError(t, err)
	require.Len(t, first, DefaultPageSize)
	require.Equal(t, "transfer_7_0_0", first[0].EventID())

	second, err := loader.LoadHistory(context.Background(), testSafe, 5)
	require.NoError(t, err)
	require.Len(t, second, 2)
	require.Equal(t, "transfer_1_0_0", second[1].EventID())

	past, err := loader.LoadHistory(context.Background(), testSafe, 50)
	require.NoError(t, err)
	require.Empty(t, past)

	_, err = loader.LoadHistory(context.Background(), testSafe, -1)
	require.Error(t, err)

	// No multisig group in the window, so the nonce is never fetched.
	require.Zero(t, backend.nonceCalls)
}

func TestLoadHistoryMultisigUnknownKeepsPosition(t *testing.T) {
	backend := newFakeBackend()
	outcome := executionSuccessEntry(t, 9, 0, 0, common.HexToHash("0xbeef"))
	backend.logs = append(backend.logs, rawLog(outcome))
	to := testB
	backend.txs[outcome.TxHash] = types.NewTx(&types.LegacyTx{To: &to})

	events, err := NewLoader(backend, nil).LoadHistory(context.Background(), testSafe, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, model.EventTypeMultisigUnknown, events[0].EventType())
	require.Equal(t, 1, backend.nonceCalls)
}

func TestLoadHistoryPropagatesQueryErrors(t *testing.T) {
	backend := newFakeBackend()
	backend.filterErr = errors.New("rpc down")

	_, err := NewLoader(backend, nil).LoadHistory(context.Background(), testSafe, 0)
	require.ErrorIs(t, err, backend.filterErr)
}
