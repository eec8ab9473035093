package config

import "context"

// Loader resolves a Config. The CLI handler depends on this rather than on
// the file system so it can be exercised without a home directory.
type Loader interface {
	Load(ctx context.Context) (*Config, error)
}

// LoaderFunc adapts a plain function to the Loader interface.
type LoaderFunc func(ctx context.Context) (*Config, error)

// Load calls f(ctx).
func (f LoaderFunc) Load(ctx context.Context) (*Config, error) {
	return f(ctx)
}

// FileLoader loads configuration from a fixed path.
type FileLoader struct {
	Path string
}

// NewFileLoader returns a loader for path. An empty path means DefaultPath().
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{Path: path}
}

// Load implements Loader.
func (l *FileLoader) Load(ctx context.Context) (*Config, error) {
	path := l.Path
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return Resolve(ctx, path)
}
