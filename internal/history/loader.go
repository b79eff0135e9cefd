package history

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"safeTasks/internal/model"
	"safeTasks/internal/safe"
)

// DefaultPageSize is the number of groups classified per LoadHistory call.
const DefaultPageSize = 5

// Loader rebuilds the transaction history of a Safe from its logs.
type Loader struct {
	Backend  Backend
	PageSize int
	Logger   *zap.Logger
}

// NewLoader creates a loader with the default page size.
func NewLoader(backend Backend, logger *zap.Logger) *Loader {
	return &Loader{Backend: backend, PageSize: DefaultPageSize, Logger: logger}
}

// LoadHistory returns up to PageSize entries, newest first, starting at the
// start-th causal group. Every call rescans the full log history.
func (l *Loader) LoadHistory(ctx context.Context, account common.Address, start int) ([]model.EventTx, error) {
	if start < 0 {
		return nil, fmt.Errorf("invalid start index %d", start)
	}
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pageSize := l.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	merged, err := l.fetch(ctx, account)
	if err != nil {
		return nil, err
	}
	groups := GroupLogs(reversed(merged))
	logger.Debug("history groups",
		zap.String("account", account.Hex()),
		zap.Int("logs", len(merged)),
		zap.Int("groups", len(groups)),
	)
	if start >= len(groups) {
		return []model.EventTx{}, nil
	}
	end := start + pageSize
	if end > len(groups) {
		end = len(groups)
	}
	window := groups[start:end]

	var nonces *NonceSession
	if hasMultisig(window) {
		nonces, err = NonceConfig{Backend: l.Backend, Safe: account}.Init(ctx)
		if err != nil {
			return nil, err
		}
	}
	classifier := NewClassifier(l.Backend, account, nonces, logger)

	results := make([]model.EventTx, len(window))
	g, gctx := errgroup.WithContext(ctx)
	for i, group := range window {
		i, group := i, group
		g.Go(func() error {
			event, err := classifier.Classify(gctx, group)
			if err != nil {
				return err
			}
			results[i] = event
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]model.EventTx, 0, len(results))
	for _, event := range results {
		if event != nil {
			out = append(out, event)
		}
	}
	return out, nil
}

func (l *Loader) fetch(ctx context.Context, account common.Address) ([]model.LogEntry, error) {
	source := NewSource(l.Backend)
	queries := []func(context.Context, common.Address) ([]model.LogEntry, error){
		source.Outgoing,
		source.Incoming,
		source.IncomingEther,
		source.Multisig,
		source.Module,
	}

	results := make([][]model.LogEntry, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, query := range queries {
		i, query := i, query
		g.Go(func() error {
			entries, err := query(gctx, account)
			if err != nil {
				return err
			}
			results[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return MergeLogs(results...), nil
}

func hasMultisig(groups []model.GroupedLogs) bool {
	for _, group := range groups {
		topic := group.Parent.Topic0()
		if topic == safe.ExecutionSuccessTopic || topic == safe.ExecutionFailureTopic {
			return true
		}
	}
	return false
}

func reversed(entries []model.LogEntry) []model.LogEntry {
	out := make([]model.LogEntry, len(entries))
	for i, entry := range entries {
		out[len(entries)-1-i] = entry
	}
	return out
}
