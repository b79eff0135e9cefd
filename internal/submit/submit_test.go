package submit

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"safeTasks/internal/model"
	"safeTasks/internal/safe"
	"safeTasks/internal/signer"
)

var (
	testSafe      = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testTo        = common.HexToAddress("0x3000000000000000000000000000000000000003")
	testSingleton = common.HexToAddress("0xd9db270c1b5e3bd161e8c8503c55ceabee709552")
)

type owner struct {
	signer signer.Signer
}

func newOwner(t *testing.T) owner {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	s, err := signer.New(key)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	return owner{signer: s}
}

func (o owner) sign(t *testing.T, hash common.Hash) string {
	t.Helper()
	raw, err := o.signer.SignHash(hash)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return safe.Signature{Data: raw}.Hex()
}

type fakeChain struct {
	nonce     uint64
	owners    []common.Address
	threshold uint64
	sent      []*types.Transaction
	polls     int
}

func (f *fakeChain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	parsed, err := safe.ABI()
	if err != nil {
		return nil, err
	}
	for name, method := range parsed.Methods {
		if !bytes.Equal(msg.Data[:4], method.ID) {
			continue
		}
		switch name {
		case "nonce":
			return method.Outputs.Pack(new(big.Int).SetUint64(f.nonce))
		case "getOwners":
			return method.Outputs.Pack(f.owners)
		case "getThreshold":
			return method.Outputs.Pack(new(big.Int).SetUint64(f.threshold))
		}
	}
	return nil, errors.New("unexpected call")
}

func (f *fakeChain) StorageAt(context.Context, common.Address, common.Hash, *big.Int) ([]byte, error) {
	return common.LeftPadBytes(testSingleton.Bytes(), 32), nil
}

func (f *fakeChain) ChainID(context.Context) (*big.Int, error) { return big.NewInt(5), nil }

func (f *fakeChain) PendingNonceAt(context.Context, common.Address) (uint64, error) { return 9, nil }

func (f *fakeChain) SuggestGasPrice(context.Context) (*big.Int, error) { return big.NewInt(10), nil }

func (f *fakeChain) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) { return 100000, nil }

func (f *fakeChain) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeChain) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.polls++
	if f.polls < 2 {
		return nil, ethereum.NotFound
	}
	return &types.Receipt{TxHash: hash, Status: types.ReceiptStatusSuccessful}, nil
}

func TestSelectSignatures(t *testing.T) {
	hash := common.HexToHash("0x77")
	a, b, c := newOwner(t), newOwner(t), newOwner(t)
	owners := []common.Address{a.signer.Address(), b.signer.Address(), c.signer.Address()}

	selected, err := SelectSignatures(hash, []string{b.sign(t, hash), c.sign(t, hash)}, owners, 2, a.signer.Address())
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(selected) != 2 {
		t.Fatalf("expected 2 signatures, got %d", len(selected))
	}
	if selected[0].Signer != a.signer.Address() || selected[0].Data[64] != safe.SignatureApprovedHash {
		t.Fatalf("submitter approval must come first")
	}

	// The submitter's own signature is replaced by its approval.
	selected, err = SelectSignatures(hash, []string{a.sign(t, hash)}, owners, 2, a.signer.Address())
	if !errors.Is(err, ErrNotEnoughSignatures) {
		t.Fatalf("expected ErrNotEnoughSignatures, got %v (%d)", err, len(selected))
	}

	outsider := newOwner(t)
	_, err = SelectSignatures(hash, []string{outsider.sign(t, hash)}, owners, 1, outsider.signer.Address())
	if !errors.Is(err, ErrNotOwnerSignature) {
		t.Fatalf("expected ErrNotOwnerSignature, got %v", err)
	}
}

func TestSubmit(t *testing.T) {
	submitter, other := newOwner(t), newOwner(t)
	chain := &fakeChain{
		nonce:     2,
		owners:    []common.Address{submitter.signer.Address(), other.signer.Address()},
		threshold: 2,
	}
	tx := model.NewSafeTx(testTo, "1", nil, model.OperationCall, 2)
	hash, err := safe.TxHash(testSafe, big.NewInt(5), tx)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	p := model.Proposal{Safe: testSafe, ChainID: 5, SafeTxHash: hash, Tx: tx}
	signatures := model.Signatures{other.signer.Address().Hex(): other.sign(t, hash)}

	s := &Submitter{Backend: chain, Signer: submitter.signer, UseAccessList: true, PollInterval: time.Millisecond}
	receipt, err := s.Submit(context.Background(), p, signatures)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(chain.sent) != 1 {
		t.Fatalf("expected one sent transaction, got %d", len(chain.sent))
	}
	sent := chain.sent[0]
	if receipt.TxHash != sent.Hash() {
		t.Fatalf("receipt for %s, sent %s", receipt.TxHash.Hex(), sent.Hash().Hex())
	}
	if sent.Type() != types.AccessListTxType || sent.AccessList()[0].Address != testSingleton {
		t.Fatalf("expected access list with singleton")
	}
	if *sent.To() != testSafe || sent.Nonce() != 9 {
		t.Fatalf("unexpected transaction to %s nonce %d", sent.To().Hex(), sent.Nonce())
	}

	call, err := safe.DecodeExecTransaction(sent.Data())
	if err != nil {
		t.Fatalf("decode calldata: %v", err)
	}
	if call.Body.To != testTo || len(call.Signatures) != 130 {
		t.Fatalf("unexpected execTransaction call %+v", call)
	}
}

func TestSubmitRejectsStaleNonce(t *testing.T) {
	submitter := newOwner(t)
	chain := &fakeChain{nonce: 5, owners: []common.Address{submitter.signer.Address()}, threshold: 1}
	p := model.Proposal{Safe: testSafe, Tx: model.NewSafeTx(testTo, "0", nil, model.OperationCall, 4)}

	s := &Submitter{Backend: chain, Signer: submitter.signer}
	if _, err := s.Submit(context.Background(), p, nil); !errors.Is(err, ErrNonceMismatch) {
		t.Fatalf("expected ErrNonceMismatch, got %v", err)
	}
	if len(chain.sent) != 0 {
		t.Fatalf("nothing should be sent")
	}
}
