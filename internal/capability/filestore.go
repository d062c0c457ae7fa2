package capability

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// FileStore persists a Grant to a YAML file, typically .rw/capabilities.yaml.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// ConfigPath returns the path this store reads from and writes to.
func (s *FileStore) ConfigPath() string { return s.path }

type grantFile struct {
	Capabilities []Capability `yaml:"capabilities"`
}

// Load reads the saved grant, returning an empty Grant if the file does
// not exist yet.
func (s *FileStore) Load() (Grant, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return NewGrant(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading capability store %s: %w", s.path, err)
	}
	var f grantFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing capability store %s: %w", s.path, err)
	}
	return Grant(f.Capabilities), nil
}

// Save atomically writes grant to the store.
func (s *FileStore) Save(grant Grant) error {
	data, err := yaml.Marshal(grantFile{Capabilities: []Capability(grant)})
	if err != nil {
		return fmt.Errorf("encoding capability store: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating capability store directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".capabilities-*.yaml")
	if err != nil {
		return fmt.Errorf("creating temp capability store: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing capability store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
