package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jfenske89/go-obj-stream/internal/config"
	"github.com/jfenske89/go-obj-stream/pkg/objproc"
)

// parseOutput represents parse output in JSON format
type parseOutput struct {
	Files   []*fileResult `json:"files"`
	Summary summaryInfo   `json:"summary"`
}

// fileResult represents the outcome of parsing a single file
type fileResult struct {
	Path     string               `json:"path"`
	Error    string               `json:"error,omitempty"`
	Duration string               `json:"duration,omitempty"`
	Report   *objproc.ParseReport `json:"report,omitempty"`
	Meshes   []meshSummary        `json:"meshes"`
}

// meshSummary describes a built mesh without its buffers
type meshSummary struct {
	Name          string                        `json:"name"`
	Sequence      int                           `json:"sequence"`
	MultiMaterial bool                          `json:"multiMaterial"`
	Vertices      int                           `json:"vertices"`
	LineVertices  int                           `json:"lineVertices,omitempty"`
	HasNormals    bool                          `json:"hasNormals"`
	HasUVs        bool                          `json:"hasUvs"`
	Materials     []objproc.MaterialDescription `json:"materials"`
	Groups        []objproc.MaterialGroup       `json:"groups,omitempty"`
	Bounds        r3.Box                        `json:"bounds"`
}

// summaryInfo provides parse result summary
type summaryInfo struct {
	TotalFiles   int `json:"totalFiles"`
	FailedFiles  int `json:"failedFiles"`
	DroppedFiles int `json:"droppedFiles"`
	TotalObjects int `json:"totalObjects"`
	TotalMeshes  int `json:"totalMeshes"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := createRootCmd(ctx)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// createRootCmd creates the root command with its subcommands
func createRootCmd(ctx context.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "obj-stream",
		Short: "CLI tool for parsing OBJ geometry files",
		Long: `High-performance CLI tool for parsing Wavefront OBJ geometry files.
Files are parsed in one forward pass into per-material buckets and built into meshes,
with many files processed in parallel.`,
		Example: `  # Parse a single file
  obj-stream parse model.obj

  # Parse a directory with 8 parallel slots and multi-material meshes
  obj-stream parse -t 8 --multi-material /path/to/models

  # Use a config file and enable logging for debugging
  obj-stream parse --config obj-stream.yaml --log-level debug model.obj

  # Write the default configuration
  obj-stream config init obj-stream.yaml`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(createParseCmd(ctx), createConfigCmd())

	return rootCmd
}

// createParseCmd creates the parse command with flags
func createParseCmd(ctx context.Context) *cobra.Command {
	parseCmd := &cobra.Command{
		Use:   "parse [files or directories...]",
		Short: "Parse OBJ files and report the meshes they contain",
		Long: `Parse OBJ files and report every mesh with its materials, vertex counts and bounds.
Directories are searched recursively for .obj files.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runParse(ctx, cfg, args, cmd.OutOrStdout())
		},
	}

	config.RegisterFlags(parseCmd.Flags())
	return parseCmd
}

// createConfigCmd creates the config command for managing config files
func createConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage obj-stream configuration files",
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration",
		Long:  "Write the default configuration to path, or to the user config directory when no path is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(config.ConfigDir(), "config.yaml")
			if len(args) == 1 {
				path = args[0]
			}

			if err := config.Default().SaveTo(path); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	configCmd.AddCommand(initCmd)
	return configCmd
}

// loadConfig merges defaults, the config file and explicitly set flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(config.ConfigPath(cmd.Flags()))
	if err != nil {
		return nil, err
	}

	if err := config.ApplyFlags(cfg, cmd.Flags()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runParse executes the parse command with the provided configuration
func runParse(ctx context.Context, cfg *config.Config, paths []string, out io.Writer) error {
	// configure logging
	if closer := configureLogging(cfg.Logging); closer != nil {
		defer closer.Close()
	}

	// validate that every path exists
	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("path does not exist: %s", path)
		}
	}

	names, err := objproc.NewNameDecoder(cfg.Parser.NameEncoding, 4096)
	if err != nil {
		return err
	}

	options := objproc.JobOptions{
		Parse: objproc.ParseOptions{
			PerSmoothingGroup: cfg.Parser.PerSmoothingGroup,
			MaxDiagnostics:    cfg.Parser.MaxDiagnostics,
			Names:             names,
		},
		Materials:         cfg.Parser.Materials,
		UseMultiMaterials: cfg.Parser.UseMultiMaterials,
	}

	// callbacks run on this goroutine while the director is driven, so results need no locking
	results := make(map[string]*fileResult)
	director := objproc.NewDirector(objproc.DirectorOptions{
		MaxQueueSize: cfg.Scheduler.MaxQueueSize,
		MaxSlots:     cfg.Scheduler.MaxSlots,
		JobTimeout:   cfg.Scheduler.JobTimeout,
		Callbacks: objproc.Callbacks{
			OnMesh: func(job *objproc.Job, mesh *objproc.Mesh) {
				result := results[job.Name]
				result.Meshes = append(result.Meshes, summarizeMesh(mesh))
			},
			OnProgress: func(event *objproc.ProgressEvent) {
				log.Trace().Str("path", event.Job.Name).Int("slot", event.Slot).Msg(event.Text)
			},
			OnLoad: func(load *objproc.JobResult) {
				result := results[load.Job.Name]
				result.Report = load.Report
				result.Duration = load.Duration.String()
				if load.Err != nil {
					result.Error = load.Err.Error()
				}
			},
		},
	})

	startedAt := time.Now()
	log.Debug().
		Strs("paths", paths).
		Int("slots", director.Slots()).
		Int("queue_size", director.QueueSize()).
		Bool("multi_material", cfg.Parser.UseMultiMaterials).
		Msg("starting OBJ parse")

	var summary summaryInfo
	for _, path := range paths {
		if err := objproc.DiscoverFiles(ctx, path, func(file string) error {
			if _, seen := results[file]; seen {
				return nil
			}

			if !director.Submit(objproc.NewFileJob(file, options, objproc.Callbacks{})) {
				summary.DroppedFiles++
				log.Warn().Str("path", file).Msg("queue is full - skipping file")
				return nil
			}
			results[file] = &fileResult{Path: file, Meshes: []meshSummary{}}
			return nil
		}); err != nil {
			return fmt.Errorf("failed to discover files: %w", err)
		}
	}

	if err := director.Drive(ctx); err != nil {
		return fmt.Errorf("parse failed: %w", err)
	}

	// process results and write output
	output := parseOutput{Files: make([]*fileResult, 0, len(results))}
	for _, result := range results {
		output.Files = append(output.Files, result)
	}
	slices.SortFunc(output.Files, func(a, b *fileResult) int {
		return strings.Compare(a.Path, b.Path)
	})

	for _, result := range output.Files {
		if result.Error != "" {
			summary.FailedFiles++
		}
		if result.Report != nil {
			summary.TotalObjects += result.Report.Objects
		}
		summary.TotalMeshes += len(result.Meshes)
	}
	summary.TotalFiles = len(output.Files)
	output.Summary = summary

	log.Debug().
		Int("files", summary.TotalFiles).
		Int("failed", summary.FailedFiles).
		Int("meshes", summary.TotalMeshes).
		Str("duration", time.Since(startedAt).String()).
		Msg("OBJ parse completed")

	return outputJSON(out, output, cfg.Output.Pretty)
}

// summarizeMesh drops the buffers of a mesh
func summarizeMesh(mesh *objproc.Mesh) meshSummary {
	return meshSummary{
		Name:          mesh.Name,
		Sequence:      mesh.Sequence,
		MultiMaterial: mesh.MultiMaterial,
		Vertices:      mesh.VertexCount(),
		LineVertices:  len(mesh.LinePositions) / 3,
		HasNormals:    len(mesh.Normals) > 0,
		HasUVs:        len(mesh.UVs) > 0,
		Materials:     mesh.Materials,
		Groups:        mesh.Groups,
		Bounds:        mesh.Bounds,
	}
}

// outputJSON marshals and outputs the parse results as JSON
func outputJSON(out io.Writer, output parseOutput, pretty bool) error {
	var jsonData []byte
	var err error

	if pretty {
		jsonData, err = json.MarshalIndent(output, "", "  ")
	} else {
		jsonData, err = json.Marshal(output)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON output: %w", err)
	}

	fmt.Fprintln(out, string(jsonData))
	return nil
}

// configureLogging sets up zerolog based on the logging configuration. The returned closer,
// if any, flushes the log file.
func configureLogging(cfg config.LoggingConfig) io.Closer {
	level := strings.ToLower(cfg.Level)

	if level == "disabled" {
		// disable logging
		zerolog.SetGlobalLevel(zerolog.Disabled)
		return nil
	}

	// use a standard error console writer to keep the command output processable
	var writer io.Writer = zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}

	var closer io.Closer
	if cfg.LogFile != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
			LocalTime:  true, // use local time in rotated filename
		}
		writer = zerolog.MultiLevelWriter(writer, fileWriter)
		closer = fileWriter
	}
	log.Logger = log.Output(writer)

	// set log level
	switch level {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
		log.Warn().Str("log_level", level).Msg("unknown log level - falling back to WARN")
	}

	return closer
}
