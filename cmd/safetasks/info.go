package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"safeTasks/internal/config"
	"safeTasks/internal/safe"
)

const infoModulePageSize = 10

type safeInfo struct {
	Safe            common.Address   `json:"safe"`
	Singleton       common.Address   `json:"singleton"`
	Version         string           `json:"version"`
	Owners          []common.Address `json:"owners"`
	Threshold       uint64           `json:"threshold"`
	Nonce           uint64           `json:"nonce"`
	FallbackHandler common.Address   `json:"fallback_handler"`
	Modules         []common.Address `json:"modules"`
}

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print Safe information",
		RunE:  runInfo,
	}
	addRPCFlags(cmd)
	cmd.Flags().String("address", "", "Safe address")
	return cmd
}

func runInfo(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadInfo(cfgFile, cmd.Flags())
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

	info := safeInfo{Safe: cfg.Safe}
	if info.Singleton, err = safe.Singleton(ctx, chainClient, cfg.Safe); err != nil {
		return err
	}
	if info.Version, err = safe.Version(ctx, chainClient, cfg.Safe); err != nil {
		return err
	}
	if info.Owners, err = safe.Owners(ctx, chainClient, cfg.Safe); err != nil {
		return err
	}
	if info.Threshold, err = safe.Threshold(ctx, chainClient, cfg.Safe); err != nil {
		return err
	}
	if info.Nonce, err = safe.Nonce(ctx, chainClient, cfg.Safe); err != nil {
		return err
	}
	if info.FallbackHandler, err = safe.FallbackHandler(ctx, chainClient, cfg.Safe); err != nil {
		return err
	}
	if info.Modules, err = safe.Modules(ctx, chainClient, cfg.Safe, infoModulePageSize); err != nil {
		return err
	}
	return printJSON(info)
}
