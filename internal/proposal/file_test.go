package proposal

import (
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"safeTasks/internal/model"
)

func TestFileStoreProposalRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	ctx := context.Background()

	proposal := model.Proposal{
		Safe:       common.HexToAddress("0x1000000000000000000000000000000000000001"),
		ChainID:    5,
		SafeTxHash: common.BigToHash(big.NewInt(77)),
		Tx:         model.NewSafeTx(common.HexToAddress("0x3000000000000000000000000000000000000003"), "12", []byte{0xab}, model.OperationDelegateCall, 4),
	}
	if err := store.SaveProposal(ctx, proposal); err != nil {
		t.Fatalf("save: %v", err)
	}

	name := strings.ToLower(proposal.SafeTxHash.Hex()) + ".proposal.json"
	if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
		t.Fatalf("expected %s: %v", name, err)
	}

	loaded, err := store.LoadProposal(ctx, proposal.SafeTxHash)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(loaded, proposal) {
		t.Fatalf("proposal mismatch:\n got %+v\nwant %+v", loaded, proposal)
	}
}

func TestFileStoreMissingProposal(t *testing.T) {
	store := NewFileStore(t.TempDir())
	_, err := store.LoadProposal(context.Background(), common.HexToHash("0x01"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStoreSignatures(t *testing.T) {
	store := NewFileStore(t.TempDir())
	ctx := context.Background()
	hash := common.HexToHash("0x02")
	a := common.HexToAddress("0xa000000000000000000000000000000000000000")
	b := common.HexToAddress("0xb000000000000000000000000000000000000000")

	empty, err := store.LoadSignatures(ctx, hash)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no signatures, got %v", empty)
	}

	if err := store.AddSignature(ctx, hash, a, "0x01"); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := store.AddSignature(ctx, hash, b, "0x02"); err != nil {
		t.Fatalf("add b: %v", err)
	}
	if err := store.AddSignature(ctx, hash, a, "0x03"); err != nil {
		t.Fatalf("replace a: %v", err)
	}

	got, err := store.LoadSignatures(ctx, hash)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := model.Signatures{a.Hex(): "0x03", b.Hex(): "0x02"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("signatures mismatch: got %v want %v", got, want)
	}
}
