package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"safeTasks/internal/config"
	"safeTasks/internal/history"
	"safeTasks/internal/storage"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent transactions of a Safe, newest first",
		RunE:  runHistory,
	}
	addRPCFlags(cmd)
	cmd.Flags().String("address", "", "Safe address")
	cmd.Flags().Int("start", 0, "index of the first transaction group to return")
	cmd.Flags().Int("page-size", history.DefaultPageSize, "transaction groups per page")
	cmd.Flags().String("out", "", "append to this JSONL file instead of printing JSON")
	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadHistory(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := dialChain(ctx, cfg.RPC)
	if err != nil {
		return err
	}
	defer chainClient.Close()

	logger.Info("history start",
		zap.String("rpc", cfg.RPC.URL),
		zap.String("account", cfg.Account.Hex()),
		zap.Int("start", cfg.Start),
		zap.Int("page_size", cfg.PageSize),
	)

	loader := history.NewLoader(chainClient, logger)
	loader.PageSize = cfg.PageSize
	events, err := loader.LoadHistory(ctx, cfg.Account, cfg.Start)
	if err != nil {
		return err
	}
	logger.Info("history loaded", zap.Int("events", len(events)))

	if cfg.Out == "" {
		return printJSON(events)
	}
	return storage.NewJsonlStorage(cfg.Out).PutEvents(events)
}
