package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"safeTasks/internal/chain"
	"safeTasks/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "safetasks",
		Short:        "Safe multisig tasks",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	root.AddCommand(newHistoryCmd())
	root.AddCommand(newInfoCmd())
	root.AddCommand(newProposeCmd())
	root.AddCommand(newShowProposalCmd())
	root.AddCommand(newSignProposalCmd())
	root.AddCommand(newSubmitProposalCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRPCFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "RPC URL")
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts per RPC call")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().Duration("rpc-timeout", 30*time.Second, "timeout of a single RPC attempt")
	cmd.Flags().Float64("rate-limit", 0, "maximum RPC requests per second, 0 disables")
	cmd.Flags().Uint64("max-block-range", 0, "maximum blocks per log query, 0 means unlimited")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func dialChain(ctx context.Context, cfg config.RPCConfig) (*chain.Client, error) {
	client, err := chain.NewClient(ctx, cfg.URL, chain.Options{
		MaxRetries:    cfg.MaxRetries,
		RetryBackoff:  cfg.RetryBackoff,
		Timeout:       cfg.Timeout,
		RateLimit:     cfg.RateLimit,
		MaxBlockRange: cfg.MaxBlockRange,
	})
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	return client, nil
}

func printJSON(value interface{}) error {
	out, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(os.Stdout, string(out))
	return err
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
