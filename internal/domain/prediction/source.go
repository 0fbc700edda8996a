package prediction

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// DefaultArtifactPath is where the trainer writes and the server reads the model.
const DefaultArtifactPath = "data/svm-prediction-model.json"

// Source provides the artifact. Implementations must return the same content
// on every call for a given deployment.
type Source interface {
	Load(ctx context.Context) (*Artifact, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (*Artifact, error)

// Load calls f.
func (f SourceFunc) Load(ctx context.Context) (*Artifact, error) { return f(ctx) }

// Static returns a Source that always yields a.
func Static(a *Artifact) Source {
	return SourceFunc(func(context.Context) (*Artifact, error) {
		if a == nil {
			return nil, ErrModelNotFound
		}
		return a, nil
	})
}

// FileSource reads the artifact from a JSON file.
type FileSource struct {
	Path string
}

// Load reads and decodes the file. A missing file yields ErrModelNotFound.
func (s FileSource) Load(ctx context.Context) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.Path
	if path == "" {
		path = DefaultArtifactPath
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, path)
		}
		return nil, fmt.Errorf("%w: open %s: %w", ErrModelNotFound, path, err)
	}
	defer f.Close()

	a, err := DecodeArtifact(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrModelNotFound, path, err)
	}
	return a, nil
}
