// Package redact scrubs secrets out of plugin stdout/stderr, ensure
// subprocess output, and rendered list/describe/check output before any
// of it reaches a terminal or log line.
//
// Detection layers gitleaks' packaged pattern set (the same library the
// workspace's git-history scanning depends on) over a small set of
// high-confidence fallback regexes, so redaction still works when
// gitleaks' rule config fails to load.
package redact

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/spf13/viper"
	gitleaksconfig "github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
)

// Config holds the configuration for a Redactor.
type Config struct {
	// Patterns are additional regexes to redact, e.g. "INT-[A-Z0-9]{16}".
	Patterns []string
	// Paths are dot-notation map keys whose values are always redacted
	// wholesale, regardless of whether they look like a secret.
	Paths []string
	// HashMode replaces matches with a salted HMAC fragment instead of
	// the literal string "[REDACTED]", so repeated occurrences of the
	// same secret remain correlatable without being recoverable.
	HashMode bool
	// Salt keys the HMAC when HashMode is set. An empty salt still
	// hashes, just deterministically and without resistance to a
	// precomputed table.
	Salt string
	// DisableGitleaks skips loading the gitleaks detector, relying on
	// defaultPatterns and Patterns alone. Tests set this to avoid the
	// detector's config-load cost and keep assertions to one pattern.
	DisableGitleaks bool
}

// Redactor sanitizes strings and nested data structures. Safe for
// concurrent use: all fields are fixed at construction and Track is the
// only mutator, guarded by its own lock.
type Redactor struct {
	patterns []*regexp.Regexp
	paths    []string
	hashMode bool
	salt     string

	gitleaksDetector *detect.Detector

	mu      sync.RWMutex
	tracked []string // values registered via Track, e.g. resolved secret inputs
}

// New builds a Redactor from cfg.
func New(cfg Config) (*Redactor, error) {
	r := &Redactor{
		paths:    cfg.Paths,
		hashMode: cfg.HashMode,
		salt:     cfg.Salt,
		patterns: make([]*regexp.Regexp, 0, len(cfg.Patterns)+len(defaultPatterns)),
	}

	if !cfg.DisableGitleaks {
		if detector, err := newGitleaksDetector(); err == nil {
			r.gitleaksDetector = detector
		}
		// A detector load failure degrades to regex-only redaction
		// rather than failing construction.
	}

	for _, p := range defaultPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compiling default redaction pattern %q: %w", p, err)
		}
		r.patterns = append(r.patterns, re)
	}
	for _, p := range cfg.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compiling redaction pattern %q: %w", p, err)
		}
		r.patterns = append(r.patterns, re)
	}

	return r, nil
}

func newGitleaksDetector() (*detect.Detector, error) {
	v := viper.New()
	v.SetConfigType("toml")
	if err := v.ReadConfig(strings.NewReader(gitleaksconfig.DefaultConfig)); err != nil {
		return nil, fmt.Errorf("reading gitleaks default config: %w", err)
	}
	var vc gitleaksconfig.ViperConfig
	if err := v.Unmarshal(&vc); err != nil {
		return nil, fmt.Errorf("unmarshaling gitleaks config: %w", err)
	}
	cfg, err := vc.Translate()
	if err != nil {
		return nil, fmt.Errorf("translating gitleaks config: %w", err)
	}
	return detect.NewDetector(cfg), nil
}

// Track registers value (e.g. a resolved secret input, a plugin's
// verify-command output containing a one-time token) so ScrubString
// masks it even though it matches no pattern.
func (r *Redactor) Track(value string) {
	if value == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracked = append(r.tracked, value)
}

// ScrubString replaces every tracked value and every detected secret in
// input with "[REDACTED]" (or its HMAC in HashMode).
func (r *Redactor) ScrubString(input string) string {
	if input == "" {
		return ""
	}
	result := input

	r.mu.RLock()
	tracked := make([]string, len(r.tracked))
	copy(tracked, r.tracked)
	r.mu.RUnlock()
	for _, secret := range tracked {
		result = strings.ReplaceAll(result, secret, r.replacement(secret))
	}

	if r.gitleaksDetector != nil {
		findings := r.gitleaksDetector.Detect(detect.Fragment{Raw: result})
		for _, finding := range findings {
			result = strings.ReplaceAll(result, finding.Secret, r.replacement(finding.Secret))
		}
	}

	for _, re := range r.patterns {
		result = re.ReplaceAllStringFunc(result, r.replacement)
	}

	return result
}

// Redact sanitizes a decoded JSON/YAML value in place (maps, slices,
// strings), used to scrub describe/check output before it is rendered.
func (r *Redactor) Redact(data any) any {
	return r.walk(data, "")
}

func (r *Redactor) walk(data any, path string) any {
	switch v := data.(type) {
	case string:
		if r.isPathMatch(path) {
			return r.replacement(v)
		}
		return r.ScrubString(v)
	case map[string]any:
		for k, val := range v {
			next := k
			if path != "" {
				next = path + "." + k
			}
			v[k] = r.walk(val, next)
		}
		return v
	case []any:
		for i, val := range v {
			v[i] = r.walk(val, path)
		}
		return v
	default:
		return v
	}
}

func (r *Redactor) isPathMatch(path string) bool {
	for _, p := range r.paths {
		if p == path || strings.HasSuffix(path, "."+p) {
			return true
		}
	}
	return false
}

func (r *Redactor) replacement(secret string) string {
	if r.hashMode {
		return r.hash(secret)
	}
	return "[REDACTED]"
}

// hash returns a truncated HMAC-SHA256 of secret, keyed by salt.
// Truncation to 16 hex chars keeps the token short while still letting
// two occurrences of the same secret be correlated in a log.
func (r *Redactor) hash(secret string) string {
	mac := hmac.New(sha256.New, []byte(r.salt))
	mac.Write([]byte(secret))
	sum := hex.EncodeToString(mac.Sum(nil))
	return fmt.Sprintf("[hmac:%s]", sum[:16])
}

// defaultPatterns backstops gitleaks with a handful of high-confidence,
// zero-config patterns so disabling (or failing to load) the detector
// never means redaction does nothing.
var defaultPatterns = []string{
	`\b((?:AKIA|ABIA|ACCA|ASIA)[0-9A-Z]{16})\b`,
	`-----BEGIN [A-Z ]+ PRIVATE KEY-----`,
	`gh[pousr]_[A-Za-z0-9_]{36,255}`,
	`xox[baprs]-([0-9a-zA-Z]{10,48})?`,
}

// Writer wraps an io.Writer, scrubbing every Write through r before
// passing it on. Used to wrap a plugin's captured stdout/stderr and an
// ensure's subprocess output before either is logged or displayed.
type Writer struct {
	underlying io.Writer
	redactor   *Redactor
	mu         sync.Mutex
}

// NewWriter returns a Writer over w. A nil redactor makes Writer a
// pass-through, so callers can wrap unconditionally.
func NewWriter(w io.Writer, r *Redactor) *Writer {
	return &Writer{underlying: w, redactor: r}
}

func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.redactor == nil {
		return w.underlying.Write(p)
	}
	redacted := []byte(w.redactor.ScrubString(string(p)))
	if _, err := w.underlying.Write(redacted); err != nil {
		return 0, err
	}
	// Report the original length so callers relying on io.Writer's
	// "n == len(p) on success" contract never see a short write.
	return len(p), nil
}

// SafeError wraps err, scrubbing r's tracked values out of its message.
// Returns err unchanged if no redaction was necessary, preserving its
// type for errors.As/errors.Is callers.
func SafeError(err error, r *Redactor) error {
	if err == nil || r == nil {
		return err
	}
	msg := err.Error()
	scrubbed := r.ScrubString(msg)
	if scrubbed == msg {
		return err
	}
	return fmt.Errorf("%s", scrubbed)
}
