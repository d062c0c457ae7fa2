// Package registry resolves and fetches ensure plugins published to an
// OCI registry (spec.md 4.D's registry resolution step), generalizing the
// spec's literal <registry-url>/plugins/<name>/latest/plugin.wasm
// template into an OCI artifact pull so the same backend serves both
// `weaver plugins pull`/`push` and ensure-time resolution.
package registry

import (
	"context"
	"fmt"
	"os"
	"time"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content/file"
	"oras.land/oras-go/v2/content/memory"
	"oras.land/oras-go/v2/registry/remote"
)

// pluginMediaType identifies the single plugin.wasm layer of a pushed
// artifact manifest.
const pluginMediaType = "application/vnd.weaver.plugin.wasm"

// pluginArtifactType tags the manifest itself, distinguishing a weaver
// plugin artifact from an arbitrary OCI image sharing the same registry.
const pluginArtifactType = "application/vnd.weaver.plugin.manifest.v1"

// DefaultURL is used when neither WEAVER_REGISTRY_URL nor RW_REGISTRY_URL
// is set and the workspace config leaves registry.url empty.
const DefaultURL = "ghcr.io/weaver-dev/plugins"

// Client fetches plugin artifacts from an OCI registry.
type Client struct {
	BaseURL string
}

// New returns a Client targeting baseURL.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{BaseURL: baseURL}
}

// ResolveURL honors WEAVER_REGISTRY_URL, falls back to the legacy
// RW_REGISTRY_URL, then configURL, then DefaultURL.
func ResolveURL(configURL string) string {
	if v := os.Getenv("WEAVER_REGISTRY_URL"); v != "" {
		return v
	}
	if v := os.Getenv("RW_REGISTRY_URL"); v != "" {
		return v
	}
	if configURL != "" {
		return configURL
	}
	return DefaultURL
}

// backoffDelays is the fixed exponential schedule spec.md 4.D mandates:
// three attempts, 100ms/200ms/400ms between them.
var backoffDelays = []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}

// Pull fetches <BaseURL>/plugins/<name>:<version> and writes its single
// plugin.wasm layer into destDir, retrying on transient failure per
// spec.md's backoff schedule.
func (c *Client) Pull(ctx context.Context, name, version, destDir string) (string, error) {
	ref := fmt.Sprintf("%s/plugins/%s:%s", c.BaseURL, name, version)

	repo, err := remote.NewRepository(ref)
	if err != nil {
		return "", fmt.Errorf("parsing registry reference %q: %w", ref, err)
	}

	store, err := file.New(destDir)
	if err != nil {
		return "", fmt.Errorf("opening plugin destination %q: %w", destDir, err)
	}
	defer store.Close()

	var lastErr error
	for attempt := 0; attempt <= len(backoffDelays); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoffDelays[attempt-1]):
			}
		}

		if _, err := oras.Copy(ctx, repo, version, store, version, oras.DefaultCopyOptions); err != nil {
			lastErr = err
			continue
		}

		return destDir + "/plugin.wasm", nil
	}

	return "", fmt.Errorf("fetching plugin %q version %q after %d attempts: %w", name, version, len(backoffDelays)+1, lastErr)
}

// Push uploads wasmPath as the plugin.wasm layer of an OCI artifact
// manifest tagged <BaseURL>/plugins/<name>:<version>, packed via
// oras.PackManifest so the pushed artifact carries a proper OCI manifest
// (not a bare blob) that generic OCI tooling can inspect.
func (c *Client) Push(ctx context.Context, name, version, wasmPath string) error {
	ref := fmt.Sprintf("%s/plugins/%s:%s", c.BaseURL, name, version)

	repo, err := remote.NewRepository(ref)
	if err != nil {
		return fmt.Errorf("parsing registry reference %q: %w", ref, err)
	}

	data, err := os.ReadFile(wasmPath)
	if err != nil {
		return fmt.Errorf("reading plugin artifact: %w", err)
	}

	store := memory.New()
	layerDesc, err := oras.PushBytes(ctx, store, pluginMediaType, data)
	if err != nil {
		return fmt.Errorf("staging plugin artifact: %w", err)
	}

	manifestDesc, err := oras.PackManifest(ctx, store, oras.PackManifestVersion1_1, pluginArtifactType, oras.PackManifestOptions{
		Layers: []ocispec.Descriptor{layerDesc},
	})
	if err != nil {
		return fmt.Errorf("packing plugin manifest: %w", err)
	}
	if err := store.Tag(ctx, manifestDesc, version); err != nil {
		return fmt.Errorf("tagging plugin manifest %q: %w", version, err)
	}

	if _, err := oras.Copy(ctx, store, version, repo, version, oras.DefaultCopyOptions); err != nil {
		return fmt.Errorf("pushing plugin %q version %q: %w", name, version, err)
	}
	return nil
}

// Tags lists every published version tag of name, used to resolve a
// semver constraint (SPEC_FULL 3's Plugin Declaration version field)
// against the registry's actual catalog.
func (c *Client) Tags(ctx context.Context, name string) ([]string, error) {
	ref := fmt.Sprintf("%s/plugins/%s", c.BaseURL, name)
	repo, err := remote.NewRepository(ref)
	if err != nil {
		return nil, fmt.Errorf("parsing registry reference %q: %w", ref, err)
	}

	var tags []string
	if err := repo.Tags(ctx, "", func(page []string) error {
		tags = append(tags, page...)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("listing tags for %q: %w", name, err)
	}
	return tags, nil
}
