package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config bundles every tunable petro needs to stand up a buffer pool
// and a B+Tree index: frame count and eviction sensitivity for the
// pool, I/O fan-out for the disk scheduler, and page fanout for the
// tree. Load fills any field a config file leaves unset from Defaults.
type Config struct {
	NumFrames         int    `mapstructure:"num_frames"`
	LruK              int    `mapstructure:"lru_k"`
	WorkerThreadCount int    `mapstructure:"worker_thread_count"`
	LeafMaxSize       int32  `mapstructure:"leaf_max_size"`
	InternalMaxSize   int32  `mapstructure:"internal_max_size"`
	DbPath            string `mapstructure:"db_path"`
}

// Defaults mirrors the values a developer running petro without any
// config file would want: small enough to exercise eviction on a
// laptop, large enough that ordinary benchmarks don't thrash.
func Defaults() Config {
	return Config{
		NumFrames:         64,
		LruK:              2,
		WorkerThreadCount: 4,
		LeafMaxSize:       32,
		InternalMaxSize:   32,
		DbPath:            "petro.db",
	}
}

// Load reads a YAML config file at path, falling back to Defaults for
// any field path doesn't set. An empty path returns Defaults
// untouched.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("num_frames", cfg.NumFrames)
	v.SetDefault("lru_k", cfg.LruK)
	v.SetDefault("worker_thread_count", cfg.WorkerThreadCount)
	v.SetDefault("leaf_max_size", cfg.LeafMaxSize)
	v.SetDefault("internal_max_size", cfg.InternalMaxSize)
	v.SetDefault("db_path", cfg.DbPath)

	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}
