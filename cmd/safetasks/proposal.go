package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"safeTasks/internal/config"
	"safeTasks/internal/model"
	"safeTasks/internal/proposal"
	"safeTasks/internal/signer"
	"safeTasks/internal/storage/postgres"
	"safeTasks/internal/submit"
)

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("store", config.StoreFile, "proposal store (file, postgres)")
	cmd.Flags().String("cache-dir", proposal.DefaultCacheDir, "directory of the file store")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN of the postgres store")
}

func newProposeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "propose",
		Short: "Create a Safe transaction proposal at the current nonce",
		RunE:  runPropose,
	}
	addRPCFlags(cmd)
	addStoreFlags(cmd)
	cmd.Flags().String("address", "", "Safe address")
	cmd.Flags().String("to", "", "target address")
	cmd.Flags().String("value", "0", "value in ETH")
	cmd.Flags().String("data", "0x", "calldata as hex string")
	cmd.Flags().Bool("delegatecall", false, "execute as delegatecall")
	return cmd
}

func newShowProposalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show-proposal",
		Short: "Show a stored proposal and its signatures",
		RunE:  runShowProposal,
	}
	addRPCFlags(cmd)
	addStoreFlags(cmd)
	cmd.Flags().String("hash", "", "Safe transaction hash")
	return cmd
}

func newSignProposalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign-proposal",
		Short: "Sign a stored proposal as a Safe owner",
		RunE:  runSignProposal,
	}
	addRPCFlags(cmd)
	addStoreFlags(cmd)
	cmd.Flags().String("hash", "", "Safe transaction hash")
	cmd.Flags().String("private-key", "", "owner private key (prefer SAFE_PRIVATE_KEY)")
	cmd.Flags().Bool("eth-sign", false, "sign with the eth_sign prefix")
	return cmd
}

func newSubmitProposalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit-proposal",
		Short: "Execute a stored proposal with the collected signatures",
		RunE:  runSubmitProposal,
	}
	addRPCFlags(cmd)
	addStoreFlags(cmd)
	cmd.Flags().String("hash", "", "Safe transaction hash")
	cmd.Flags().String("private-key", "", "submitter private key (prefer SAFE_PRIVATE_KEY)")
	cmd.Flags().Bool("use-access-list", false, "send an EIP-2930 access list with the singleton")
	cmd.Flags().Duration("poll-interval", 2*time.Second, "receipt polling interval")
	return cmd
}

type proposalEnv struct {
	cfg    config.ProposalConfig
	logger *zap.Logger
	store  proposal.Store
	close  func()
}

func setupProposal(ctx context.Context, cmd *cobra.Command) (*proposalEnv, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadProposal(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	env := &proposalEnv{cfg: cfg, logger: logger, close: func() { _ = logger.Sync() }}
	switch cfg.Store {
	case config.StorePostgres:
		pg, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		env.store = pg
		env.close = func() {
			pg.Close()
			_ = logger.Sync()
		}
	default:
		env.store = proposal.NewFileStore(cfg.CacheDir)
	}
	return env, nil
}

func runPropose(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := setupProposal(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.close()
	if !env.cfg.HasSafe {
		return fmt.Errorf("address is required")
	}
	if !env.cfg.HasTo {
		return fmt.Errorf("to is required")
	}

	chainClient, err := dialChain(ctx, env.cfg.RPC)
	if err != nil {
		return err
	}
	defer chainClient.Close()

	p, err := proposal.Propose(ctx, chainClient, env.store, proposal.Request{
		Safe:         env.cfg.Safe,
		To:           env.cfg.To,
		Value:        env.cfg.Value,
		Data:         env.cfg.Data,
		DelegateCall: env.cfg.DelegateCall,
	})
	if err != nil {
		return err
	}
	env.logger.Info("proposal created",
		zap.String("safe", p.Safe.Hex()),
		zap.Uint64("nonce", p.Tx.Nonce),
		zap.String("safe_tx_hash", p.SafeTxHash.Hex()),
	)
	return printJSON(p)
}

func runShowProposal(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := setupProposal(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.close()
	if !env.cfg.HasHash {
		return fmt.Errorf("hash is required")
	}

	chainClient, err := dialChain(ctx, env.cfg.RPC)
	if err != nil {
		return err
	}
	defer chainClient.Close()

	status, err := proposal.Show(ctx, chainClient, env.store, env.cfg.Hash)
	if err != nil {
		return err
	}
	if status.NonceUsed() {
		env.logger.Warn("nonce has already been used",
			zap.Uint64("proposal_nonce", status.Proposal.Tx.Nonce),
			zap.Uint64("safe_nonce", status.CurrentNonce),
		)
	}
	return printJSON(struct {
		Proposal   model.Proposal   `json:"proposal"`
		Signatures model.Signatures `json:"signatures"`
		NonceUsed  bool             `json:"nonce_used"`
	}{status.Proposal, status.Signatures, status.NonceUsed()})
}

func runSignProposal(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := setupProposal(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.close()
	if !env.cfg.HasHash {
		return fmt.Errorf("hash is required")
	}
	owner, err := signer.FromHex(env.cfg.PrivateKey)
	if err != nil {
		return err
	}

	chainClient, err := dialChain(ctx, env.cfg.RPC)
	if err != nil {
		return err
	}
	defer chainClient.Close()

	sig, err := proposal.Sign(ctx, chainClient, env.store, owner, env.cfg.Hash, env.cfg.EthSign)
	if err != nil {
		return err
	}
	env.logger.Info("proposal signed",
		zap.String("safe_tx_hash", env.cfg.Hash.Hex()),
		zap.String("signer", sig.Signer.Hex()),
	)
	return printJSON(map[string]string{"signer": sig.Signer.Hex(), "signature": sig.Hex()})
}

func runSubmitProposal(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := setupProposal(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.close()
	if !env.cfg.HasHash {
		return fmt.Errorf("hash is required")
	}
	submitterKey, err := signer.FromHex(env.cfg.PrivateKey)
	if err != nil {
		return err
	}

	chainClient, err := dialChain(ctx, env.cfg.RPC)
	if err != nil {
		return err
	}
	defer chainClient.Close()

	p, err := env.store.LoadProposal(ctx, env.cfg.Hash)
	if err != nil {
		return err
	}
	signatures, err := env.store.LoadSignatures(ctx, env.cfg.Hash)
	if err != nil {
		return err
	}

	submitter := &submit.Submitter{
		Backend:       chainClient,
		Signer:        submitterKey,
		Logger:        env.logger,
		UseAccessList: env.cfg.UseAccessList,
		PollInterval:  env.cfg.PollInterval,
	}
	receipt, err := submitter.Submit(ctx, p, signatures)
	if err != nil {
		return err
	}
	env.logger.Info("safe transaction mined",
		zap.String("tx", receipt.TxHash.Hex()),
		zap.Uint64("status", receipt.Status),
		zap.Uint64("gas_used", receipt.GasUsed),
	)
	return printJSON(receipt)
}
