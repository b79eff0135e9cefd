package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. SAFE_RPC.
const EnvPrefix = "SAFE"

// RPCConfig tunes the chain client.
type RPCConfig struct {
	URL          string
	MaxRetries   int
	RetryBackoff time.Duration
	Timeout      time.Duration
	RateLimit    float64
	// MaxBlockRange caps the block span of one eth_getLogs call. Zero is unlimited.
	MaxBlockRange uint64
}

// newViper merges config file, environment variables, and flags. Flags win
// over env, env over file, file over defaults.
func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("rpc-timeout", 30*time.Second)
	v.SetDefault("rate-limit", 0.0)
	v.SetDefault("max-block-range", uint64(0))
	v.SetDefault("log-level", "info")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func rpcConfig(v *viper.Viper) (RPCConfig, error) {
	cfg := RPCConfig{
		URL:           strings.TrimSpace(v.GetString("rpc")),
		MaxRetries:    v.GetInt("max-retries"),
		RetryBackoff:  v.GetDuration("retry-backoff"),
		Timeout:       v.GetDuration("rpc-timeout"),
		RateLimit:     v.GetFloat64("rate-limit"),
		MaxBlockRange: v.GetUint64("max-block-range"),
	}
	if cfg.URL == "" {
		return RPCConfig{}, fmt.Errorf("rpc is required")
	}
	if cfg.RateLimit < 0 {
		return RPCConfig{}, fmt.Errorf("rate-limit must not be negative")
	}
	return cfg, nil
}
