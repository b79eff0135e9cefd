package config

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
)

// HistoryConfig holds configuration for the history command.
type HistoryConfig struct {
	RPC      RPCConfig
	Account  common.Address
	Start    int
	PageSize int
	// Out is a JSONL file to append to. Empty prints JSON to stdout.
	Out      string
	LogLevel string
}

// LoadHistory merges config file, environment variables, and flags into HistoryConfig.
func LoadHistory(cfgFile string, flags *pflag.FlagSet) (HistoryConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"start":     0,
		"page-size": 5,
		"out":       "",
	})
	if err != nil {
		return HistoryConfig{}, err
	}
	rpc, err := rpcConfig(v)
	if err != nil {
		return HistoryConfig{}, err
	}
	account, ok, err := ParseAddress(v.GetString("address"))
	if err != nil {
		return HistoryConfig{}, err
	}
	if !ok {
		return HistoryConfig{}, fmt.Errorf("address is required")
	}

	cfg := HistoryConfig{
		RPC:      rpc,
		Account:  account,
		Start:    v.GetInt("start"),
		PageSize: v.GetInt("page-size"),
		Out:      v.GetString("out"),
		LogLevel: v.GetString("log-level"),
	}
	if cfg.Start < 0 {
		return HistoryConfig{}, fmt.Errorf("start must not be negative")
	}
	if cfg.PageSize <= 0 {
		return HistoryConfig{}, fmt.Errorf("page-size must be positive")
	}
	return cfg, nil
}
