package config

import (
	"time"

	"github.com/virtualsteve-star/stinger-sub001/internal/guardrail/builtin"
)

// Config is the top-level stinger configuration.
type Config struct {
	Core       CoreConfig                `yaml:"core" mapstructure:"core"`
	Scheduler  SchedulerConfig           `yaml:"scheduler" mapstructure:"scheduler"`
	Streaming  StreamingConfig           `yaml:"streaming" mapstructure:"streaming"`
	Audit      AuditConfig               `yaml:"audit" mapstructure:"audit"`
	Logging    LoggingConfig             `yaml:"logging" mapstructure:"logging"`
	Input      []builtin.GuardrailConfig `yaml:"input" mapstructure:"input"`
	Output     []builtin.GuardrailConfig `yaml:"output" mapstructure:"output"`
}

// CoreConfig holds settings shared across pipelines.
type CoreConfig struct {
	Debug bool `yaml:"debug" mapstructure:"debug"`
}

// SchedulerConfig bounds guardrail execution.
type SchedulerConfig struct {
	BlockConcurrency int           `yaml:"block_concurrency" mapstructure:"block_concurrency" validate:"min=0,max=256"`
	MonitorWorkers   int           `yaml:"monitor_workers" mapstructure:"monitor_workers" validate:"min=0,max=256"`
	MonitorQueueSize int           `yaml:"monitor_queue_size" mapstructure:"monitor_queue_size" validate:"min=0"`
	DefaultTimeout   time.Duration `yaml:"default_timeout" mapstructure:"default_timeout"`
}

// StreamingConfig controls streaming session lifecycle.
type StreamingConfig struct {
	IdleTimeout     time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	JanitorInterval time.Duration `yaml:"janitor_interval" mapstructure:"janitor_interval"`
}

// AuditConfig controls the audit trail and its optional persistent sink.
type AuditConfig struct {
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" mapstructure:"format" validate:"omitempty,oneof=text json"`
}
