package proposal

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"safeTasks/internal/model"
)

// ErrNotFound is returned when no proposal is stored for a hash.
var ErrNotFound = errors.New("proposal not found")

// Store persists proposals and the owner signatures collected for them.
type Store interface {
	SaveProposal(ctx context.Context, proposal model.Proposal) error
	LoadProposal(ctx context.Context, safeTxHash common.Hash) (model.Proposal, error)
	AddSignature(ctx context.Context, safeTxHash common.Hash, signer common.Address, signature string) error
	// LoadSignatures returns an empty set when nothing was signed yet.
	LoadSignatures(ctx context.Context, safeTxHash common.Hash) (model.Signatures, error)
}
