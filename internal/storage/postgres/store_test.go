package postgres

import (
	"context"
	"errors"
	"math/big"
	"os"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"safeTasks/internal/model"
	"safeTasks/internal/proposal"
)

func TestNewStoreRequiresDSN(t *testing.T) {
	if _, err := NewStore(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	dsn := os.Getenv("SAFE_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("SAFE_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	store, err := NewStore(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}

	hash := common.BigToHash(big.NewInt(0xfeed))
	if _, err := store.LoadProposal(ctx, hash); !errors.Is(err, proposal.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	p := model.Proposal{
		Safe:       common.HexToAddress("0x1000000000000000000000000000000000000001"),
		ChainID:    1,
		SafeTxHash: hash,
		Tx:         model.NewSafeTx(common.HexToAddress("0x3000000000000000000000000000000000000003"), "1", nil, model.OperationCall, 0),
	}
	if err := store.SaveProposal(ctx, p); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := store.LoadProposal(ctx, hash)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.SafeTxHash != hash || loaded.Tx.To != p.Tx.To {
		t.Fatalf("unexpected proposal: %+v", loaded)
	}

	signer := common.HexToAddress("0xa000000000000000000000000000000000000000")
	if err := store.AddSignature(ctx, hash, signer, "0x01"); err != nil {
		t.Fatalf("add signature: %v", err)
	}
	signatures, err := store.LoadSignatures(ctx, hash)
	if err != nil {
		t.Fatalf("load signatures: %v", err)
	}
	if signatures[signer.Hex()] != "0x01" {
		t.Fatalf("unexpected signatures: %v", signatures)
	}
}
