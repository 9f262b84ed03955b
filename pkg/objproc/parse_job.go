package objproc

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// JobOptions configures parse jobs.
type JobOptions struct {
	// Parse is handed to every parser
	Parse ParseOptions

	// Materials is the known material set, empty accepts every material
	Materials []string

	// UseMultiMaterials merges the buckets of an object into one multi-material mesh
	UseMultiMaterials bool
}

// NewFileJob creates a job that reads one geometry file and parses it.
func NewFileJob(path string, options JobOptions, callbacks Callbacks) *Job {
	return newParseJob(path, options, callbacks, func() ([]byte, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file '%s': %w", path, err)
		}
		return data, nil
	})
}

// NewBufferJob creates a job that parses an in-memory buffer. The buffer must not be modified
// while the job runs.
func NewBufferJob(name string, data []byte, options JobOptions, callbacks Callbacks) *Job {
	return newParseJob(name, options, callbacks, func() ([]byte, error) {
		return data, nil
	})
}

func newParseJob(name string, options JobOptions, callbacks Callbacks, load func() ([]byte, error)) *Job {
	return &Job{
		Name:      name,
		Callbacks: callbacks,
		Run: func(ctx context.Context, progress ProgressFunc, meshes MeshHandler) (*ParseReport, error) {
			data, err := load()
			if err != nil {
				return nil, err
			}
			progress(fmt.Sprintf("loaded %d bytes", len(data)))

			builder := &progressBuilder{
				next:     NewMeshCreator(options.Materials, options.UseMultiMaterials, meshes),
				progress: progress,
			}

			report, err := NewParser(builder, options.Parse).Parse(ctx, data)
			if err != nil {
				return report, fmt.Errorf("failed to parse '%s': %w", name, err)
			}

			progress(fmt.Sprintf("completed %d objects", report.Objects))
			return report, nil
		},
	}
}

// progressBuilder reports every completed object before handing it on.
type progressBuilder struct {
	next     MeshBuilder
	progress ProgressFunc
}

func (b *progressBuilder) BuildMesh(object *CompletedObject) error {
	b.progress(fmt.Sprintf("object %d completed: %s", object.Sequence, object.Report.Name))
	return b.next.BuildMesh(object)
}

// PathHandler defines a handler function for discovered files.
type PathHandler func(path string) error

// DiscoverFiles recursively walks dir and passes every geometry file to handler.
// A single path is passed to handler as is.
func DiscoverFiles(ctx context.Context, dir string, handler PathHandler) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("error walking directory '%s': %w", dir, err)
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		if path == dir || strings.HasSuffix(strings.ToLower(d.Name()), ".obj") {
			return handler(path)
		}
		return nil
	})
}
