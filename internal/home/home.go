package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the lexreview home directory.
	DefaultDirName = ".lexreview"

	// VectorsDirName holds the embedded chromem vector store.
	VectorsDirName = "vectors"

	// PostgresDirName is bound into the managed Postgres container.
	PostgresDirName = "postgres"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir is the ~/.lexreview layout.
type Dir struct {
	path string
}

// New creates a Dir. An empty path uses ~/.lexreview.
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}
	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// VectorsPath returns the chromem persistence directory.
func (d *Dir) VectorsPath() string {
	return filepath.Join(d.path, VectorsDirName)
}

// PostgresPath returns the host directory for Postgres data.
func (d *Dir) PostgresPath() string {
	return filepath.Join(d.path, PostgresDirName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// EnsureExists creates the home directory and its subdirectories.
func (d *Dir) EnsureExists() error {
	for _, p := range []string{d.VectorsPath(), d.PostgresPath()} {
		if err := os.MkdirAll(p, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", p, err)
		}
	}
	return nil
}

// Exists reports whether the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists reports whether the config file exists.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
