package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"safeTasks/internal/model"
	"safeTasks/internal/safe"
)

// Classifier turns causal groups into history entries for one account.
type Classifier struct {
	backend Backend
	account common.Address
	nonces  *NonceSession
	logger  *zap.Logger
}

// NewClassifier creates a classifier. nonces may be nil when no multisig
// group will be classified; such groups then report NonceNotFound.
func NewClassifier(backend Backend, account common.Address, nonces *NonceSession, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{backend: backend, account: account, nonces: nonces, logger: logger}
}

// Classify decodes group. It returns nil without error when the group does
// not describe anything worth listing. Only chain access failures are errors.
func (c *Classifier) Classify(ctx context.Context, group model.GroupedLogs) (model.EventTx, error) {
	switch group.Parent.Topic0() {
	case safe.ExecutionSuccessTopic, safe.ExecutionFailureTopic:
		return c.multisig(ctx, group)
	case safe.ExecutionFromModuleSuccessTopic, safe.ExecutionFromModuleFailureTopic:
		return c.module(ctx, group)
	case safe.TransferTopic:
		return c.transfer(ctx, group)
	case safe.SafeReceivedTopic:
		return c.etherReceived(ctx, group)
	default:
		c.logger.Warn("unknown topic",
			zap.String("topic", group.Parent.Topic0().Hex()),
			zap.String("tx", group.Parent.TxHash.Hex()),
		)
		return nil, nil
	}
}

func (c *Classifier) multisig(ctx context.Context, group model.GroupedLogs) (model.EventTx, error) {
	parent := group.Parent
	success := parent.Topic0() == safe.ExecutionSuccessTopic

	safeTxHash, err := safe.DecodeExecutionOutcome(parent)
	if err != nil {
		c.logger.Warn("decode execution outcome", zap.String("tx", parent.TxHash.Hex()), zap.Error(err))
		return nil, nil
	}
	timestamp, err := c.backend.BlockTimestamp(ctx, parent.BlockHash)
	if err != nil {
		return nil, fmt.Errorf("block timestamp %s: %w", parent.BlockHash.Hex(), err)
	}

	call, err := c.decodeMultisigCall(ctx, group)
	if err != nil {
		if !errors.Is(err, safe.ErrUndecodable) {
			return nil, err
		}
		c.logger.Debug("undecodable multisig transaction", zap.String("tx", parent.TxHash.Hex()), zap.Error(err))
		return &model.MultisigUnknownTx{
			Type:       model.EventTypeMultisigUnknown,
			ID:         "multisig_" + safeTxHash.Hex(),
			Timestamp:  timestamp,
			TxHash:     parent.TxHash.Hex(),
			SafeTxHash: safeTxHash.Hex(),
			Success:    success,
			Logs:       childrenOrEmpty(group.Children),
		}, nil
	}

	nonce := NonceNotFound
	switch {
	case call.HasNonce:
		nonce = int64(call.Nonce)
	case c.nonces != nil:
		nonce = c.nonces.Map(safeTxHash, call.Body)
	}
	if nonce == NonceNotFound {
		c.logger.Debug("nonce not recovered", zap.String("safe_tx_hash", safeTxHash.Hex()))
	}

	return &model.MultisigTx{
		Type:       model.EventTypeMultisig,
		ID:         "multisig_" + safeTxHash.Hex(),
		Timestamp:  timestamp,
		TxHash:     parent.TxHash.Hex(),
		SafeTxHash: safeTxHash.Hex(),
		Success:    success,
		SafeTxBody: call.Body,
		Signatures: hexutil.Encode(call.Signatures),
		Nonce:      nonce,
		Logs:       childrenOrEmpty(group.Children),
	}, nil
}

// decodeMultisigCall prefers the details event and falls back to the calldata
// of the submitting transaction when it called the account directly.
func (c *Classifier) decodeMultisigCall(ctx context.Context, group model.GroupedLogs) (safe.MultisigCall, error) {
	if group.Details != nil && group.Details.Topic0() == safe.SafeMultiSigTransactionTopic {
		call, err := safe.DecodeMultisigDetails(*group.Details)
		if err == nil {
			return call, nil
		}
		c.logger.Debug("decode multisig details", zap.String("tx", group.Details.TxHash.Hex()), zap.Error(err))
	}

	tx, err := c.backend.TransactionByHash(ctx, group.Parent.TxHash)
	if err != nil {
		return safe.MultisigCall{}, fmt.Errorf("transaction %s: %w", group.Parent.TxHash.Hex(), err)
	}
	if tx.To() == nil || *tx.To() != c.account {
		return safe.MultisigCall{}, fmt.Errorf("%w: transaction does not call the safe", safe.ErrUndecodable)
	}
	return safe.DecodeExecTransaction(tx.Data())
}

func (c *Classifier) module(ctx context.Context, group model.GroupedLogs) (model.EventTx, error) {
	parent := group.Parent
	module, err := safe.DecodeModuleOutcome(parent)
	if err != nil {
		c.logger.Warn("decode module outcome", zap.String("tx", parent.TxHash.Hex()), zap.Error(err))
		return nil, nil
	}
	if group.Details != nil {
		details, err := safe.DecodeModuleDetails(*group.Details)
		if err != nil {
			c.logger.Debug("decode module details", zap.String("tx", parent.TxHash.Hex()), zap.Error(err))
		} else {
			c.logger.Debug("module transaction",
				zap.String("module", details.Module.Hex()),
				zap.String("to", details.To.Hex()),
				zap.String("value", details.Value),
				zap.Uint8("operation", details.Operation),
			)
		}
	}
	timestamp, err := c.backend.BlockTimestamp(ctx, parent.BlockHash)
	if err != nil {
		return nil, fmt.Errorf("block timestamp %s: %w", parent.BlockHash.Hex(), err)
	}
	return &model.ModuleTx{
		Type:      model.EventTypeModule,
		ID:        parent.PositionID("module"),
		Timestamp: timestamp,
		TxHash:    parent.TxHash.Hex(),
		Module:    module,
		Success:   parent.Topic0() == safe.ExecutionFromModuleSuccessTopic,
		Logs:      childrenOrEmpty(group.Children),
	}, nil
}

func (c *Classifier) transfer(ctx context.Context, group model.GroupedLogs) (model.EventTx, error) {
	parent := group.Parent
	c.warnChildren(group)

	transfer, err := safe.DecodeTransfer(parent)
	if err != nil {
		c.logger.Warn("decode transfer", zap.String("tx", parent.TxHash.Hex()), zap.Error(err))
		return nil, nil
	}
	timestamp, err := c.backend.BlockTimestamp(ctx, parent.BlockHash)
	if err != nil {
		return nil, fmt.Errorf("block timestamp %s: %w", parent.BlockHash.Hex(), err)
	}

	token := transfer.Token
	details := model.TransferDetails{Type: transfer.Kind, TokenAddress: &token}
	if transfer.Kind == model.TransferERC721 {
		details.TokenID = transfer.TokenID.String()
	} else {
		details.Value = transfer.Value.String()
	}
	return &model.TransferTx{
		Type:      model.EventTypeTransfer,
		ID:        parent.PositionID("transfer"),
		Timestamp: timestamp,
		TxHash:    parent.TxHash.Hex(),
		Sender:    transfer.From,
		Recipient: transfer.To,
		Direction: c.direction(transfer.To),
		Details:   details,
	}, nil
}

func (c *Classifier) etherReceived(ctx context.Context, group model.GroupedLogs) (model.EventTx, error) {
	parent := group.Parent
	c.warnChildren(group)

	sender, value, err := safe.DecodeSafeReceived(parent)
	if err != nil {
		c.logger.Warn("decode safe received", zap.String("tx", parent.TxHash.Hex()), zap.Error(err))
		return nil, nil
	}
	timestamp, err := c.backend.BlockTimestamp(ctx, parent.BlockHash)
	if err != nil {
		return nil, fmt.Errorf("block timestamp %s: %w", parent.BlockHash.Hex(), err)
	}
	return &model.TransferTx{
		Type:      model.EventTypeTransfer,
		ID:        parent.PositionID("transfer"),
		Timestamp: timestamp,
		TxHash:    parent.TxHash.Hex(),
		Sender:    sender,
		Recipient: c.account,
		Direction: model.DirectionIncoming,
		Details:   model.TransferDetails{Type: model.TransferEther, Value: value.String()},
	}, nil
}

// direction compares addresses by value, so checksum casing never matters.
func (c *Classifier) direction(to common.Address) model.Direction {
	if to == c.account {
		return model.DirectionIncoming
	}
	return model.DirectionOutgoing
}

func (c *Classifier) warnChildren(group model.GroupedLogs) {
	if len(group.Children) == 0 {
		return
	}
	c.logger.Warn("transfer group has children",
		zap.String("tx", group.Parent.TxHash.Hex()),
		zap.Int("children", len(group.Children)),
	)
}

func childrenOrEmpty(children []model.LogEntry) []model.LogEntry {
	if children == nil {
		return []model.LogEntry{}
	}
	return children
}
