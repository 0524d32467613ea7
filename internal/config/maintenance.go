package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// MaintenanceConfig holds configuration for the offline commands
// (migrate, rebuild, export, latest, summary).
type MaintenanceConfig struct {
	PGDSN      string
	PGMaxConns int32
	Out        string
	Checkpoint string
	Append     bool
	PageSize   int
	LogLevel   string
}

// LoadMaintenance merges config file, environment variables, and flags into MaintenanceConfig.
func LoadMaintenance(cfgFile string, flags *pflag.FlagSet) (MaintenanceConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("pg-max-conns", 4)
		v.SetDefault("out", "./data/events.jsonl")
		v.SetDefault("page-size", 500)
		v.SetDefault("log-level", "info")
	})
	if err != nil {
		return MaintenanceConfig{}, err
	}

	cfg := MaintenanceConfig{
		PGDSN:      v.GetString("pg-dsn"),
		PGMaxConns: v.GetInt32("pg-max-conns"),
		Out:        v.GetString("out"),
		Checkpoint: v.GetString("checkpoint"),
		Append:     v.GetBool("append"),
		PageSize:   v.GetInt("page-size"),
		LogLevel:   v.GetString("log-level"),
	}

	if cfg.PGDSN == "" {
		return MaintenanceConfig{}, fmt.Errorf("pg dsn is required")
	}
	if cfg.PageSize <= 0 {
		return MaintenanceConfig{}, fmt.Errorf("page size must be greater than zero")
	}

	return cfg, nil
}
