package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// ServeConfig holds configuration for the HTTP service.
type ServeConfig struct {
	Listen          string
	Store           string
	PGDSN           string
	PGMaxConns      int32
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	SummaryCacheTTL time.Duration
	ChainID         uint64
	ContractAddress string
	RPCURL          string
	MaxRetries      int
	RetryBackoff    time.Duration
	CORSOrigins     []string
	APIKey          string
	LogLevel        string
}

// Load merges config file, environment variables, and flags into ServeConfig.
func Load(cfgFile string, flags *pflag.FlagSet) (ServeConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("listen", ":8080")
		v.SetDefault("store", StorePostgres)
		v.SetDefault("pg-max-conns", 10)
		v.SetDefault("redis-db", 0)
		v.SetDefault("summary-cache-ttl", 5*time.Second)
		v.SetDefault("rpc-max-retries", 5)
		v.SetDefault("rpc-retry-backoff", 500*time.Millisecond)
		v.SetDefault("log-level", "info")
	})
	if err != nil {
		return ServeConfig{}, err
	}

	cfg := ServeConfig{
		Listen:          v.GetString("listen"),
		Store:           strings.ToLower(strings.TrimSpace(v.GetString("store"))),
		PGDSN:           v.GetString("pg-dsn"),
		PGMaxConns:      v.GetInt32("pg-max-conns"),
		RedisAddr:       v.GetString("redis-addr"),
		RedisPassword:   v.GetString("redis-password"),
		RedisDB:         v.GetInt("redis-db"),
		SummaryCacheTTL: v.GetDuration("summary-cache-ttl"),
		ChainID:         v.GetUint64("chain-id"),
		ContractAddress: strings.TrimSpace(v.GetString("contract-address")),
		RPCURL:          v.GetString("rpc"),
		MaxRetries:      v.GetInt("rpc-max-retries"),
		RetryBackoff:    v.GetDuration("rpc-retry-backoff"),
		CORSOrigins:     getStringSlice(v, "cors-origins"),
		APIKey:          v.GetString("api-key"),
		LogLevel:        v.GetString("log-level"),
	}

	switch cfg.Store {
	case StorePostgres, StoreMemory:
	default:
		return ServeConfig{}, fmt.Errorf("unknown store %q (want %s or %s)", cfg.Store, StorePostgres, StoreMemory)
	}
	if cfg.Listen == "" {
		return ServeConfig{}, fmt.Errorf("listen address is required")
	}

	return cfg, nil
}

// newViper builds a viper instance with flags > env (DICELEDGER_*) > config file precedence.
func newViper(cfgFile string, flags *pflag.FlagSet, defaults func(*viper.Viper)) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("DICELEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if defaults != nil {
		defaults(v)
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

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
