// Package config loads the typed configuration shared by the coordinator
// hosting process and the shardnode process (splitctl takes its split
// settings from its own command-line flags instead). It
// generalizes the teacher's getenv-with-default idiom (cmd/node/main.go,
// cmd/coordinator/main.go) into a single loader, and additionally binds
// through viper so the same fields can come from a config file or flags.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config is every tunable this repo's processes read at startup.
type Config struct {
	// ListenAddr is the address the process's own HTTP server binds to.
	ListenAddr string

	// ShardConfigPath is the file a configstore.FilePersister reads the
	// live ShardConfigurationSet from.
	ShardConfigPath string

	// MetricsEnabled toggles a metrics.Prometheus recorder vs metrics.Noop.
	MetricsEnabled bool

	// EventBatchSize is the Splitter's per-batch read/write size.
	EventBatchSize int

	// FilterGroupEventsByHashRange is the Splitter's default for whether
	// Group-kind events are restricted to the hash range being split.
	FilterGroupEventsByHashRange bool

	// SourceWriterOpsCompleteCheckRetryAttempts bounds the Splitter's drain
	// poll before it gives up and fails the split.
	SourceWriterOpsCompleteCheckRetryAttempts int

	// SourceWriterOpsCompleteCheckRetryInterval is the wait between drain
	// polls.
	SourceWriterOpsCompleteCheckRetryInterval time.Duration
}

// defaults mirrors the literal fallback values the teacher's main.go
// hardcodes next to each getenv call (":8080", ":8081", and so on).
func defaults() Config {
	return Config{
		ListenAddr:                                 ":8080",
		ShardConfigPath:                            "shards.json",
		MetricsEnabled:                              true,
		EventBatchSize:                              500,
		FilterGroupEventsByHashRange:                true,
		SourceWriterOpsCompleteCheckRetryAttempts:   10,
		SourceWriterOpsCompleteCheckRetryInterval:   500 * time.Millisecond,
	}
}

// Load reads configuration from environment variables prefixed ACCESSCOORD_
// (e.g. ACCESSCOORD_LISTEN_ADDR), falling back to the values in defaults()
// for anything unset. A config file at configPath is merged first if it
// exists and is non-empty, env taking precedence over it, matching viper's
// usual binding order.
func Load(configPath string) (Config, error) {
	cfg := defaults()

	v := viper.New()
	v.SetEnvPrefix("ACCESSCOORD")
	v.AutomaticEnv()
	v.SetDefault("listen_addr", cfg.ListenAddr)
	v.SetDefault("shard_config_path", cfg.ShardConfigPath)
	v.SetDefault("metrics_enabled", cfg.MetricsEnabled)
	v.SetDefault("event_batch_size", cfg.EventBatchSize)
	v.SetDefault("filter_group_events_by_hash_range", cfg.FilterGroupEventsByHashRange)
	v.SetDefault("source_writer_ops_complete_check_retry_attempts", cfg.SourceWriterOpsCompleteCheckRetryAttempts)
	v.SetDefault("source_writer_ops_complete_check_retry_interval", cfg.SourceWriterOpsCompleteCheckRetryInterval.String())

	if configPath != "" {
		if _, statErr := os.Stat(configPath); statErr == nil {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("config: reading %s: %w", configPath, err)
			}
		}
	}

	interval, err := time.ParseDuration(v.GetString("source_writer_ops_complete_check_retry_interval"))
	if err != nil {
		return Config{}, fmt.Errorf("config: invalid source_writer_ops_complete_check_retry_interval: %w", err)
	}

	return Config{
		ListenAddr:                                 v.GetString("listen_addr"),
		ShardConfigPath:                            v.GetString("shard_config_path"),
		MetricsEnabled:                              v.GetBool("metrics_enabled"),
		EventBatchSize:                              v.GetInt("event_batch_size"),
		FilterGroupEventsByHashRange:                v.GetBool("filter_group_events_by_hash_range"),
		SourceWriterOpsCompleteCheckRetryAttempts:   v.GetInt("source_writer_ops_complete_check_retry_attempts"),
		SourceWriterOpsCompleteCheckRetryInterval:   interval,
	}, nil
}
