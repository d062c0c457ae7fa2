// Package state persists per-file checksums used for drift detection
// across applies. Grounded on the teacher's atomic-write YAML persistence
// idiom (internal/infrastructure/capabilities/file_store.go) generalized
// to the file-checksum shape from the original repo-weaver's state.rs.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
)

// FileRecord is the recorded checksum and last-write timestamp for one
// managed file, keyed by absolute path in State.Files.
type FileRecord struct {
	Checksum    string    `yaml:"checksum"`
	LastUpdated time.Time `yaml:"last_updated"`
}

// State is a mapping from absolute file path to its recorded checksum.
// Entries are authoritative for drift detection; every entry refers to a
// file weaver has previously written.
type State struct {
	Files map[string]FileRecord `yaml:"files"`
}

// New returns an empty state.
func New() *State {
	return &State{Files: make(map[string]FileRecord)}
}

// Managed reports whether path has a recorded entry.
func (s *State) Managed(path string) bool {
	_, ok := s.Files[path]
	return ok
}

// Get returns the recorded entry for path, if any.
func (s *State) Get(path string) (FileRecord, bool) {
	rec, ok := s.Files[path]
	return rec, ok
}

// ChecksumSnapshot returns a flat path->checksum view of the state,
// for ensures whose plan/execute needs drift awareness (spec.md 4.D's
// EnsureContext.Snapshot) without exposing the full FileRecord shape.
func (s *State) ChecksumSnapshot() map[string]string {
	out := make(map[string]string, len(s.Files))
	for path, rec := range s.Files {
		out[path] = rec.Checksum
	}
	return out
}

// Set records (or overwrites) the entry for path.
func (s *State) Set(path string, checksum string, at time.Time) {
	if s.Files == nil {
		s.Files = make(map[string]FileRecord)
	}
	s.Files[path] = FileRecord{Checksum: checksum, LastUpdated: at}
}

// Load reads state from path. A missing file is not an error: it yields an
// empty State, matching spec.md's "empty if absent" contract.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("reading state %s: %w", path, err)
	}
	if len(data) == 0 {
		return New(), nil
	}
	var s State
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing state %s: %w", path, err)
	}
	if s.Files == nil {
		s.Files = make(map[string]FileRecord)
	}
	return &s, nil
}

// Save writes state to path atomically: it writes to a temp file in the
// same directory and renames into place, so a concurrent reader on the
// same host never observes a partially written file.
func Save(path string, s *State) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating state directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.yaml.tmp")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp state file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming state file into place: %w", err)
	}
	return nil
}

// Checksum returns the lowercase hex SHA-256 digest of the file at path.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s for checksum: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ChecksumBytes returns the lowercase hex SHA-256 digest of an in-memory
// byte slice. ChecksumBytes(b) must equal Checksum(path) for any path whose
// contents equal b — this is exercised directly by the checksum-invariance
// property (spec.md 8.5).
func ChecksumBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
