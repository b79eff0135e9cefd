package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
)

// Proposal store backends.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// ProposalConfig holds configuration for the proposal commands. Fields that a
// command does not use may be left empty.
type ProposalConfig struct {
	RPC RPCConfig

	Safe         common.Address
	HasSafe      bool
	To           common.Address
	HasTo        bool
	Value        string
	Data         []byte
	DelegateCall bool
	Hash         common.Hash
	HasHash      bool

	Store    string
	CacheDir string
	PGDSN    string

	PrivateKey    string
	EthSign       bool
	UseAccessList bool
	PollInterval  time.Duration

	LogLevel string
}

// LoadProposal merges config file, environment variables, and flags into ProposalConfig.
func LoadProposal(cfgFile string, flags *pflag.FlagSet) (ProposalConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"value":           "0",
		"data":            "0x",
		"store":           StoreFile,
		"cache-dir":       "cli_cache",
		"poll-interval":   2 * time.Second,
		"delegatecall":    false,
		"eth-sign":        false,
		"use-access-list": false,
	})
	if err != nil {
		return ProposalConfig{}, err
	}
	rpc, err := rpcConfig(v)
	if err != nil {
		return ProposalConfig{}, err
	}

	cfg := ProposalConfig{
		RPC:           rpc,
		Value:         strings.TrimSpace(v.GetString("value")),
		DelegateCall:  v.GetBool("delegatecall"),
		Store:         strings.ToLower(strings.TrimSpace(v.GetString("store"))),
		CacheDir:      v.GetString("cache-dir"),
		PGDSN:         v.GetString("pg-dsn"),
		PrivateKey:    v.GetString("private-key"),
		EthSign:       v.GetBool("eth-sign"),
		UseAccessList: v.GetBool("use-access-list"),
		PollInterval:  v.GetDuration("poll-interval"),
		LogLevel:      v.GetString("log-level"),
	}
	if cfg.Safe, cfg.HasSafe, err = ParseAddress(v.GetString("address")); err != nil {
		return ProposalConfig{}, err
	}
	if cfg.To, cfg.HasTo, err = ParseAddress(v.GetString("to")); err != nil {
		return ProposalConfig{}, err
	}
	if cfg.Hash, cfg.HasHash, err = ParseHash(v.GetString("hash")); err != nil {
		return ProposalConfig{}, err
	}
	if cfg.Data, err = ParseData(v.GetString("data")); err != nil {
		return ProposalConfig{}, err
	}

	switch cfg.Store {
	case StoreFile:
	case StorePostgres:
		if cfg.PGDSN == "" {
			return ProposalConfig{}, fmt.Errorf("pg-dsn is required for the postgres store")
		}
	default:
		return ProposalConfig{}, fmt.Errorf("unknown store %q", cfg.Store)
	}
	return cfg, nil
}
