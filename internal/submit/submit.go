package submit

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"safeTasks/internal/model"
	"safeTasks/internal/safe"
	"safeTasks/internal/signer"
)

var (
	// ErrNotEnoughSignatures is returned when fewer owners confirmed than the threshold.
	ErrNotEnoughSignatures = errors.New("not enough signatures")
	// ErrNonceMismatch is returned when the proposal is not the next Safe transaction.
	ErrNonceMismatch = errors.New("proposal does not have the current nonce")
	// ErrNotOwnerSignature is returned for a signature by a non-owner.
	ErrNotOwnerSignature = errors.New("signer is not an owner")
)

const defaultPollInterval = 2 * time.Second

// Backend is the chain access needed to execute a Safe transaction.
type Backend interface {
	safe.ContractCaller
	safe.StorageReader
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// Submitter sends execTransaction for proposals with enough confirmations.
type Submitter struct {
	Backend Backend
	Signer  signer.Signer
	Logger  *zap.Logger
	// UseAccessList adds the Safe singleton to an EIP-2930 access list.
	UseAccessList bool
	PollInterval  time.Duration
}

// SelectSignatures validates raw owner signatures over safeTxHash and picks
// threshold of them. When the submitter is an owner its approved-hash
// signature comes first and its other signatures are dropped.
func SelectSignatures(safeTxHash common.Hash, raw []string, owners []common.Address, threshold uint64, submitter common.Address) ([]safe.Signature, error) {
	var selected []safe.Signature
	seen := make(map[common.Address]bool)
	if safe.IsOwner(owners, submitter) {
		selected = append(selected, safe.ApprovedHashSignature(submitter))
		seen[submitter] = true
	}

	parsed := make([]safe.Signature, 0, len(raw))
	for _, signature := range raw {
		sig, err := safe.ParseSignatureHex(safeTxHash, signature)
		if err != nil {
			return nil, err
		}
		if !safe.IsOwner(owners, sig.Signer) {
			return nil, fmt.Errorf("%w: %s", ErrNotOwnerSignature, sig.Signer.Hex())
		}
		parsed = append(parsed, sig)
	}
	sort.Slice(parsed, func(i, j int) bool {
		return parsed[i].Signer.Hex() < parsed[j].Signer.Hex()
	})
	for _, sig := range parsed {
		if seen[sig.Signer] {
			continue
		}
		seen[sig.Signer] = true
		selected = append(selected, sig)
	}

	if uint64(len(selected)) < threshold {
		return nil, fmt.Errorf("%w (%d of %d)", ErrNotEnoughSignatures, len(selected), threshold)
	}
	return selected[:threshold], nil
}

// Submit executes p with the collected signatures and waits for the receipt.
func (s *Submitter) Submit(ctx context.Context, p model.Proposal, signatures model.Signatures) (*types.Receipt, error) {
	logger := s.logger()

	current, err := safe.Nonce(ctx, s.Backend, p.Safe)
	if err != nil {
		return nil, err
	}
	if current != p.Tx.Nonce {
		return nil, fmt.Errorf("%w: proposal %d, safe %d", ErrNonceMismatch, p.Tx.Nonce, current)
	}
	owners, err := safe.Owners(ctx, s.Backend, p.Safe)
	if err != nil {
		return nil, err
	}
	threshold, err := safe.Threshold(ctx, s.Backend, p.Safe)
	if err != nil {
		return nil, err
	}

	raw := make([]string, 0, len(signatures))
	for _, signature := range signatures {
		raw = append(raw, signature)
	}
	selected, err := SelectSignatures(p.SafeTxHash, raw, owners, threshold, s.Signer.Address())
	if err != nil {
		return nil, err
	}
	calldata, err := safe.EncodeExecTransaction(p.Tx, safe.EncodeSignatures(selected))
	if err != nil {
		return nil, fmt.Errorf("encode execTransaction: %w", err)
	}

	tx, err := s.buildTx(ctx, p.Safe, calldata)
	if err != nil {
		return nil, err
	}
	chainID, err := s.Backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch chain id: %w", err)
	}
	signed, err := s.Signer.SignTx(tx, chainID)
	if err != nil {
		return nil, err
	}
	if err := s.Backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}
	logger.Info("submitted safe transaction",
		zap.String("safe_tx_hash", p.SafeTxHash.Hex()),
		zap.String("tx", signed.Hash().Hex()),
		zap.Int("signatures", len(selected)),
	)
	return s.WaitMined(ctx, signed.Hash())
}

func (s *Submitter) buildTx(ctx context.Context, safeAddress common.Address, calldata []byte) (*types.Transaction, error) {
	from := s.Signer.Address()
	nonce, err := s.Backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("fetch account nonce: %w", err)
	}
	gasPrice, err := s.Backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}

	var accessList types.AccessList
	if s.UseAccessList {
		singleton, err := safe.Singleton(ctx, s.Backend, safeAddress)
		if err != nil {
			return nil, err
		}
		accessList = types.AccessList{{Address: singleton, StorageKeys: []common.Hash{}}}
	}

	to := safeAddress
	gas, err := s.Backend.EstimateGas(ctx, ethereum.CallMsg{
		From:       from,
		To:         &to,
		GasPrice:   gasPrice,
		Data:       calldata,
		AccessList: accessList,
	})
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}

	if s.UseAccessList {
		chainID, err := s.Backend.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch chain id: %w", err)
		}
		return types.NewTx(&types.AccessListTx{
			ChainID:    chainID,
			Nonce:      nonce,
			GasPrice:   gasPrice,
			Gas:        gas,
			To:         &to,
			Data:       calldata,
			AccessList: accessList,
		}), nil
	}
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Data:     calldata,
	}), nil
}

// WaitMined polls for the receipt of hash until it is mined or ctx ends.
func (s *Submitter) WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	interval := s.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		receipt, err := s.Backend.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("fetch receipt: %w", err)
		}
		s.logger().Debug("waiting for receipt", zap.String("tx", hash.Hex()))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Submitter) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
