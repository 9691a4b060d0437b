package config

import "time"

// DefaultConfig returns a Config with sensible default values and no
// guardrails configured.
func DefaultConfig() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			BlockConcurrency: 8,
			MonitorWorkers:   4,
			MonitorQueueSize: 64,
			DefaultTimeout:   5 * time.Second,
		},
		Streaming: StreamingConfig{
			IdleTimeout:     5 * time.Minute,
			JanitorInterval: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
