package config

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
)

// InfoConfig holds configuration for the info command.
type InfoConfig struct {
	RPC      RPCConfig
	Safe     common.Address
	LogLevel string
}

// LoadInfo merges config file, environment variables, and flags into InfoConfig.
func LoadInfo(cfgFile string, flags *pflag.FlagSet) (InfoConfig, error) {
	v, err := newViper(cfgFile, flags, nil)
	if err != nil {
		return InfoConfig{}, err
	}
	rpc, err := rpcConfig(v)
	if err != nil {
		return InfoConfig{}, err
	}
	safe, ok, err := ParseAddress(v.GetString("address"))
	if err != nil {
		return InfoConfig{}, err
	}
	if !ok {
		return InfoConfig{}, fmt.Errorf("address is required")
	}
	return InfoConfig{RPC: rpc, Safe: safe, LogLevel: v.GetString("log-level")}, nil
}
