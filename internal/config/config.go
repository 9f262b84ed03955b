// Package config handles obj-stream configuration loading and management.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

const (
	// MaxQueueSize is the largest accepted scheduler queue.
	MaxQueueSize = 8192

	// MaxSlots is the largest accepted number of parallel parse slots.
	MaxSlots = 16
)

// Config holds all obj-stream settings.
type Config struct {
	Parser    ParserConfig    `yaml:"parser"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logging   LoggingConfig   `yaml:"logging"`
	Output    OutputConfig    `yaml:"output"`
}

// ParserConfig holds parsing and mesh building settings.
type ParserConfig struct {
	PerSmoothingGroup bool     `yaml:"per_smoothing_group"` // One bucket per literal smoothing group
	UseMultiMaterials bool     `yaml:"use_multi_materials"` // Merge buckets into multi-material meshes
	MaxDiagnostics    int      `yaml:"max_diagnostics"`     // Diagnostics kept per file
	NameEncoding      string   `yaml:"name_encoding"`       // Encoding of object, group and material names
	Materials         []string `yaml:"materials"`           // Known material names, empty accepts all
}

// SchedulerConfig holds job scheduling settings.
type SchedulerConfig struct {
	MaxQueueSize int           `yaml:"max_queue_size"`
	MaxSlots     int           `yaml:"max_slots"`
	JobTimeout   time.Duration `yaml:"job_timeout"` // 0 disables the timeout
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// OutputConfig holds result output settings.
type OutputConfig struct {
	Pretty bool `yaml:"pretty"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Parser: ParserConfig{
			PerSmoothingGroup: false,
			UseMultiMaterials: false,
			MaxDiagnostics:    64,
			NameEncoding:      "utf-8",
		},
		Scheduler: SchedulerConfig{
			MaxQueueSize: MaxQueueSize,
			MaxSlots:     min(runtime.NumCPU(), MaxSlots),
			JobTimeout:   0,
		},
		Logging: LoggingConfig{
			Level:      "warn",
			LogFile:    "",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
		Output: OutputConfig{
			Pretty: false,
		},
	}
}

// logLevels lists the accepted logging levels.
var logLevels = map[string]bool{
	"disabled": true,
	"trace":    true,
	"debug":    true,
	"info":     true,
	"warn":     true,
	"warning":  true,
	"error":    true,
}

// Validate clamps scheduler limits into their ranges and rejects settings that cannot be used.
func (c *Config) Validate() error {
	c.Scheduler.MaxQueueSize = min(max(c.Scheduler.MaxQueueSize, 1), MaxQueueSize)
	c.Scheduler.MaxSlots = min(max(c.Scheduler.MaxSlots, 1), MaxSlots, c.Scheduler.MaxQueueSize)

	if c.Scheduler.JobTimeout < 0 {
		return fmt.Errorf("scheduler.job_timeout must not be negative, got %s", c.Scheduler.JobTimeout)
	}
	if c.Parser.MaxDiagnostics < 0 {
		return fmt.Errorf("parser.max_diagnostics must not be negative, got %d", c.Parser.MaxDiagnostics)
	}

	level := strings.ToLower(c.Logging.Level)
	if !logLevels[level] {
		return fmt.Errorf("unknown logging.level '%s'", c.Logging.Level)
	}
	c.Logging.Level = level

	return nil
}
