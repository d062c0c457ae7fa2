package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/weaver-dev/weaver/internal/cliutil"
	"github.com/weaver-dev/weaver/internal/config"
	"github.com/weaver-dev/weaver/internal/pluginhost"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "Manage the cached ensure plugins",
	Long:  `Manage ensure plugins resolved from local paths, git dev-mode checkouts, or the OCI registry.`,
}

func init() {
	pluginsCmd.AddCommand(pluginsListCmd, pluginsVerifyCmd, pluginsUpdateCmd, pluginsPruneCmd)
}

// globalCacheRoot returns the per-user plugin cache root, spec.md 6's
// ~/.rw/plugins/<name>/<version>/plugin.wasm.
func globalCacheRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".rw", "plugins"), nil
}

// declarationFor projects a workspace's config.Plugin declaration into
// the pluginhost.Declaration shape the resolver chain consumes.
func declarationFor(name string, p config.Plugin) pluginhost.Declaration {
	return pluginhost.Declaration{
		Name:             name,
		LocalPath:        p.LocalPath,
		GitSource:        p.GitSource,
		Ref:              p.Ref,
		Version:          p.Version,
		RequireSignature: p.RequireSignature,
		PublicKeyRef:     p.PublicKeyRef,
	}
}

// resolverChain builds the spec.md 4.D local -> cache -> dev-mode ->
// registry chain for c's workspace.
func resolverChain(c *cliutil.Context, cacheRoot string, offline bool) *pluginhost.Chain {
	return pluginhost.NewChain(
		pluginhost.LocalResolver{},
		pluginhost.CacheResolver{CacheRoot: cacheRoot, OfflineMode: offline},
		pluginhost.DevModeResolver{StartDir: c.WorkspaceDir},
		pluginhost.RegistryResolver{Client: c.Registry, CacheRoot: cacheRoot},
	)
}
