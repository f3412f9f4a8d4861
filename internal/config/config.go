// Package config handles configuration loading using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"firestige.xyz/ipsniff/internal/core"
)

// Capture source types
const (
	SourceRaw  = "raw"
	SourceFile = "file"
)

// Sink types
const (
	SinkFile    = "file"
	SinkConsole = "console"
)

// Protocols accepted by capture.protocol
var validProtocols = map[string]bool{"tcp": true, "udp": true, "icmp": true, "igmp": true, "all": true}

const (
	minSnapLen = 20
	maxSnapLen = 65536
)

// Config represents the top-level configuration.
// Maps to the `ipsniff:` root key in YAML.
type Config struct {
	Capture CaptureConfig `mapstructure:"capture" yaml:"capture"`
	Sink    SinkConfig    `mapstructure:"sink" yaml:"sink"`
	Status  StatusConfig  `mapstructure:"status" yaml:"status"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// ─── Capture ───

// CaptureConfig selects and tunes the capture source.
type CaptureConfig struct {
	Source      string        `mapstructure:"source" yaml:"source"`       // raw | file
	Protocol    string        `mapstructure:"protocol" yaml:"protocol"`   // tcp | udp | icmp | igmp | all (raw only)
	Interface   string        `mapstructure:"interface" yaml:"interface"` // Empty = all interfaces (raw only)
	File        string        `mapstructure:"file" yaml:"file"`           // pcap path (file only)
	SnapLen     int           `mapstructure:"snap_len" yaml:"snap_len"`
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"` // Receive wakeup interval for shutdown checks
	Record      string        `mapstructure:"record" yaml:"record"`             // Optional pcap file of captured datagrams
}

// ─── Sink ───

// SinkConfig configures where packet reports are written.
type SinkConfig struct {
	Type      string         `mapstructure:"type" yaml:"type"` // file | console
	Path      string         `mapstructure:"path" yaml:"path"`
	Async     bool           `mapstructure:"async" yaml:"async"`
	QueueSize int            `mapstructure:"queue_size" yaml:"queue_size"`
	Rotation  RotationConfig `mapstructure:"rotation" yaml:"rotation"`
}

// RotationConfig configures file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb" yaml:"max_size_mb"`   // MB, 0 = lumberjack default
	MaxAgeDays int  `mapstructure:"max_age_days" yaml:"max_age_days"` // Days, 0 = keep forever
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool `mapstructure:"compress" yaml:"compress"`
}

// ─── Status / Metrics ───

// StatusConfig controls the live counter line.
type StatusConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"` // 0 = refresh on every datagram
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level" yaml:"level"`     // trace / debug / info / warn / error
	Pattern string           `mapstructure:"pattern" yaml:"pattern"` // %time [%level] %field %msg
	Time    string           `mapstructure:"time" yaml:"time"`       // Go time layout
	File    FileOutputConfig `mapstructure:"file" yaml:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled" yaml:"enabled"`
	Path     string         `mapstructure:"path" yaml:"path"`
	Rotation RotationConfig `mapstructure:"rotation" yaml:"rotation"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `ipsniff: ...`.
type configRoot struct {
	IPSniff Config `mapstructure:"ipsniff"`
}

// Load loads configuration from file. An empty path loads defaults and environment only.
// Env vars use the IPSNIFF_ prefix (e.g., IPSNIFF_CAPTURE_PROTOCOL).
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// The `ipsniff.` key prefix maps to `IPSNIFF_` in env vars via the key replacer
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.IPSniff

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file and no env overrides are given.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		// Defaults are static and always valid
		panic(err)
	}
	return cfg
}

// setDefaults sets default values for configuration.
// All keys use "ipsniff." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Capture defaults
	v.SetDefault("ipsniff.capture.source", SourceRaw)
	v.SetDefault("ipsniff.capture.protocol", "tcp")
	v.SetDefault("ipsniff.capture.interface", "")
	v.SetDefault("ipsniff.capture.file", "")
	v.SetDefault("ipsniff.capture.snap_len", maxSnapLen)
	v.SetDefault("ipsniff.capture.read_timeout", "1s")
	v.SetDefault("ipsniff.capture.record", "")

	// Sink defaults
	v.SetDefault("ipsniff.sink.type", SinkFile)
	v.SetDefault("ipsniff.sink.path", "log.txt")
	v.SetDefault("ipsniff.sink.async", true)
	v.SetDefault("ipsniff.sink.queue_size", 4096)
	v.SetDefault("ipsniff.sink.rotation.max_size_mb", 100)
	v.SetDefault("ipsniff.sink.rotation.max_age_days", 0)
	v.SetDefault("ipsniff.sink.rotation.max_backups", 5)
	v.SetDefault("ipsniff.sink.rotation.compress", false)

	// Status defaults
	v.SetDefault("ipsniff.status.enabled", true)
	v.SetDefault("ipsniff.status.interval", "0s")

	// Metrics defaults
	v.SetDefault("ipsniff.metrics.enabled", false)
	v.SetDefault("ipsniff.metrics.listen", ":9091")
	v.SetDefault("ipsniff.metrics.path", "/metrics")

	// Log defaults
	v.SetDefault("ipsniff.log.level", "info")
	v.SetDefault("ipsniff.log.pattern", "%time [%level] %field %msg\n")
	v.SetDefault("ipsniff.log.time", "2006-01-02 15:04:05")
	v.SetDefault("ipsniff.log.file.enabled", false)
	v.SetDefault("ipsniff.log.file.path", "/var/log/ipsniff/ipsniff.log")
	v.SetDefault("ipsniff.log.file.rotation.max_size_mb", 100)
	v.SetDefault("ipsniff.log.file.rotation.max_age_days", 30)
	v.SetDefault("ipsniff.log.file.rotation.max_backups", 5)
	v.SetDefault("ipsniff.log.file.rotation.compress", true)
}

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
func (cfg *Config) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: log level %q (must be trace/debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	if cfg.Log.File.Enabled && cfg.Log.File.Path == "" {
		return fmt.Errorf("%w: log.file.path is required when log.file.enabled=true", core.ErrConfigInvalid)
	}

	// ── Capture validation ──
	c := &cfg.Capture
	c.Source = strings.ToLower(c.Source)
	switch c.Source {
	case SourceRaw:
		c.Protocol = strings.ToLower(c.Protocol)
		if !validProtocols[c.Protocol] {
			return fmt.Errorf("%w: capture.protocol %q (must be tcp/udp/icmp/igmp/all)", core.ErrConfigInvalid, c.Protocol)
		}
	case SourceFile:
		if c.File == "" {
			return fmt.Errorf("%w: capture.file is required when capture.source=file", core.ErrConfigInvalid)
		}
	default:
		return fmt.Errorf("%w: capture.source %q (must be raw/file)", core.ErrConfigInvalid, c.Source)
	}
	if c.SnapLen == 0 {
		c.SnapLen = maxSnapLen
	}
	if c.SnapLen < minSnapLen || c.SnapLen > maxSnapLen {
		return fmt.Errorf("%w: capture.snap_len %d (must be %d..%d)", core.ErrConfigInvalid, c.SnapLen, minSnapLen, maxSnapLen)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("%w: capture.read_timeout must not be negative", core.ErrConfigInvalid)
	}

	// ── Sink validation ──
	s := &cfg.Sink
	s.Type = strings.ToLower(s.Type)
	switch s.Type {
	case SinkFile:
		if s.Path == "" {
			return fmt.Errorf("%w: sink.path is required when sink.type=file", core.ErrConfigInvalid)
		}
	case SinkConsole:
	default:
		return fmt.Errorf("%w: sink.type %q (must be file/console)", core.ErrConfigInvalid, s.Type)
	}
	if s.Async && s.QueueSize <= 0 {
		return fmt.Errorf("%w: sink.queue_size must be positive when sink.async=true", core.ErrConfigInvalid)
	}

	// ── Status / metrics ──
	if cfg.Status.Interval < 0 {
		return fmt.Errorf("%w: status.interval must not be negative", core.ErrConfigInvalid)
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return fmt.Errorf("%w: metrics.listen is required when metrics.enabled=true", core.ErrConfigInvalid)
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	return nil
}
