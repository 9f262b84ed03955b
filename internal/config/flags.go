package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Flag names shared by the command line and ApplyFlags.
const (
	FlagConfig            = "config"
	FlagThreads           = "threads"
	FlagQueueSize         = "queue-size"
	FlagJobTimeout        = "job-timeout"
	FlagPerSmoothingGroup = "per-smoothing-group"
	FlagMultiMaterial     = "multi-material"
	FlagMaterials         = "materials"
	FlagNameEncoding      = "name-encoding"
	FlagMaxDiagnostics    = "max-diagnostics"
	FlagPretty            = "pretty"
	FlagLogLevel          = "log-level"
	FlagLogFile           = "log-file"
)

// RegisterFlags adds the configuration flags to fs with defaults taken from Default.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()

	fs.String(FlagConfig, "", "Path to config file")

	// performance options
	fs.IntP(FlagThreads, "t", d.Scheduler.MaxSlots, "Maximum number of parallel parse slots (1-16)")
	fs.Int(FlagQueueSize, d.Scheduler.MaxQueueSize, "Maximum number of queued files (1-8192)")
	fs.Duration(FlagJobTimeout, d.Scheduler.JobTimeout, "Abort a file after this duration (0 disables)")

	// parser options
	fs.Bool(FlagPerSmoothingGroup, d.Parser.PerSmoothingGroup, "Create one bucket per smoothing group instead of flat/smooth")
	fs.Bool(FlagMultiMaterial, d.Parser.UseMultiMaterials, "Merge the buckets of an object into one multi-material mesh")
	fs.StringSlice(FlagMaterials, d.Parser.Materials, "Known material names, others are reported as default materials")
	fs.String(FlagNameEncoding, d.Parser.NameEncoding, "Encoding of names (utf-8, shift_jis, euc-jp, euc-kr, gbk, windows-1252, iso-8859-1)")
	fs.Int(FlagMaxDiagnostics, d.Parser.MaxDiagnostics, "Maximum diagnostics reported per file")

	// output options
	fs.Bool(FlagPretty, d.Output.Pretty, "Pretty-print JSON output")

	// logging options
	fs.String(FlagLogLevel, d.Logging.Level, "Set logging level (disabled, error, warn, info, debug, trace)")
	fs.String(FlagLogFile, d.Logging.LogFile, "Also write logs to a rotating log file")
}

// ConfigPath returns the explicit config path if provided via --config.
func ConfigPath(fs *pflag.FlagSet) string {
	path, err := fs.GetString(FlagConfig)
	if err != nil {
		return ""
	}
	return path
}

// ApplyFlags applies explicitly set flags over cfg (highest priority), then validates it.
func ApplyFlags(cfg *Config, fs *pflag.FlagSet) error {
	var err error
	apply := func(name string, set func() error) {
		if err == nil && fs.Changed(name) {
			err = set()
		}
	}

	apply(FlagThreads, func() (e error) {
		cfg.Scheduler.MaxSlots, e = fs.GetInt(FlagThreads)
		return
	})
	apply(FlagQueueSize, func() (e error) {
		cfg.Scheduler.MaxQueueSize, e = fs.GetInt(FlagQueueSize)
		return
	})
	apply(FlagJobTimeout, func() (e error) {
		cfg.Scheduler.JobTimeout, e = fs.GetDuration(FlagJobTimeout)
		return
	})
	apply(FlagPerSmoothingGroup, func() (e error) {
		cfg.Parser.PerSmoothingGroup, e = fs.GetBool(FlagPerSmoothingGroup)
		return
	})
	apply(FlagMultiMaterial, func() (e error) {
		cfg.Parser.UseMultiMaterials, e = fs.GetBool(FlagMultiMaterial)
		return
	})
	apply(FlagMaterials, func() (e error) {
		cfg.Parser.Materials, e = fs.GetStringSlice(FlagMaterials)
		return
	})
	apply(FlagNameEncoding, func() (e error) {
		cfg.Parser.NameEncoding, e = fs.GetString(FlagNameEncoding)
		return
	})
	apply(FlagMaxDiagnostics, func() (e error) {
		cfg.Parser.MaxDiagnostics, e = fs.GetInt(FlagMaxDiagnostics)
		return
	})
	apply(FlagPretty, func() (e error) {
		cfg.Output.Pretty, e = fs.GetBool(FlagPretty)
		return
	})
	apply(FlagLogLevel, func() (e error) {
		cfg.Logging.Level, e = fs.GetString(FlagLogLevel)
		return
	})
	apply(FlagLogFile, func() (e error) {
		cfg.Logging.LogFile, e = fs.GetString(FlagLogFile)
		return
	})

	if err != nil {
		return fmt.Errorf("reading flags: %w", err)
	}
	return cfg.Validate()
}
