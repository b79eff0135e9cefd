package proposal

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"safeTasks/internal/model"
	"safeTasks/internal/safe"
	"safeTasks/internal/signer"
)

// ErrNotOwner is returned when a non-owner tries to sign.
var ErrNotOwner = errors.New("signer is not an owner of the safe")

// Backend is the chain access needed to build and sign proposals.
type Backend interface {
	safe.ContractCaller
	ChainID(ctx context.Context) (*big.Int, error)
}

// Request describes a new Safe transaction. Value is in ether.
type Request struct {
	Safe         common.Address
	To           common.Address
	Value        string
	Data         []byte
	DelegateCall bool
}

// Propose builds a transaction at the current Safe nonce and stores it.
func Propose(ctx context.Context, backend Backend, store Store, req Request) (model.Proposal, error) {
	wei, err := ParseEther(req.Value)
	if err != nil {
		return model.Proposal{}, err
	}
	nonce, err := safe.Nonce(ctx, backend, req.Safe)
	if err != nil {
		return model.Proposal{}, err
	}
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return model.Proposal{}, fmt.Errorf("fetch chain id: %w", err)
	}

	operation := model.OperationCall
	if req.DelegateCall {
		operation = model.OperationDelegateCall
	}
	tx := model.NewSafeTx(req.To, wei.String(), req.Data, operation, nonce)
	hash, err := safe.TxHash(req.Safe, chainID, tx)
	if err != nil {
		return model.Proposal{}, err
	}

	p := model.Proposal{Safe: req.Safe, ChainID: chainID.Uint64(), SafeTxHash: hash, Tx: tx}
	if err := store.SaveProposal(ctx, p); err != nil {
		return model.Proposal{}, fmt.Errorf("save proposal: %w", err)
	}
	return p, nil
}

// Status is a stored proposal together with the live Safe nonce.
type Status struct {
	Proposal     model.Proposal
	CurrentNonce uint64
	Signatures   model.Signatures
}

// NonceUsed reports whether the Safe already moved past the proposal nonce.
func (s Status) NonceUsed() bool {
	return s.Proposal.Tx.Nonce < s.CurrentNonce
}

// Show loads a proposal and its signatures.
func Show(ctx context.Context, backend Backend, store Store, safeTxHash common.Hash) (Status, error) {
	p, err := store.LoadProposal(ctx, safeTxHash)
	if err != nil {
		return Status{}, err
	}
	nonce, err := safe.Nonce(ctx, backend, p.Safe)
	if err != nil {
		return Status{}, err
	}
	signatures, err := store.LoadSignatures(ctx, safeTxHash)
	if err != nil {
		return Status{}, err
	}
	return Status{Proposal: p, CurrentNonce: nonce, Signatures: signatures}, nil
}

// Sign confirms a stored proposal with s and records the signature. With
// ethSign the digest is signed with the eth_sign prefix instead of directly.
func Sign(ctx context.Context, backend Backend, store Store, s signer.Signer, safeTxHash common.Hash, ethSign bool) (safe.Signature, error) {
	p, err := store.LoadProposal(ctx, safeTxHash)
	if err != nil {
		return safe.Signature{}, err
	}
	owners, err := safe.Owners(ctx, backend, p.Safe)
	if err != nil {
		return safe.Signature{}, err
	}
	if !safe.IsOwner(owners, s.Address()) {
		return safe.Signature{}, fmt.Errorf("%w: %s", ErrNotOwner, s.Address().Hex())
	}

	hash, err := safe.TxHash(p.Safe, new(big.Int).SetUint64(p.ChainID), p.Tx)
	if err != nil {
		return safe.Signature{}, err
	}
	if hash != p.SafeTxHash {
		return safe.Signature{}, fmt.Errorf("proposal hash mismatch: stored %s, computed %s", p.SafeTxHash.Hex(), hash.Hex())
	}

	var raw []byte
	if ethSign {
		raw, err = s.SignMessage(hash.Bytes())
		if err == nil {
			raw[64] += 4
		}
	} else {
		raw, err = s.SignHash(hash)
	}
	if err != nil {
		return safe.Signature{}, err
	}
	sig, err := safe.ParseSignature(hash, raw)
	if err != nil {
		return safe.Signature{}, err
	}
	if err := store.AddSignature(ctx, hash, sig.Signer, sig.Hex()); err != nil {
		return safe.Signature{}, fmt.Errorf("store signature: %w", err)
	}
	return sig, nil
}

// ParseEther converts a decimal ether amount into wei.
func ParseEther(value string) (*big.Int, error) {
	if value == "" {
		return new(big.Int), nil
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid ether value %q: %w", value, err)
	}
	wei := amount.Shift(18)
	if wei.Sign() < 0 {
		return nil, fmt.Errorf("negative ether value %q", value)
	}
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("ether value %q has more than 18 decimals", value)
	}
	return wei.BigInt(), nil
}
