package main

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/weaver-dev/weaver/internal/cliutil"
	"github.com/weaver-dev/weaver/internal/pluginhost"
)

var pluginsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List plugins cached under the global cache root",
	RunE:  cliutil.WrapNoConfig(runPluginsList),
}

// runPluginsList walks ~/.rw/plugins/<name>/<version>/plugin.wasm,
// grounded on the teacher's plugins_list.go tabwriter rendering but
// routed through output.Formatter instead of a raw text/tabwriter call.
func runPluginsList(c *cliutil.Context, cmd *cobra.Command, args []string) error {
	root, err := globalCacheRoot()
	if err != nil {
		return err
	}

	type row struct{ name, version, sha string }
	var rows []row

	names, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		names = nil
	} else if err != nil {
		return err
	}
	for _, nameEnt := range names {
		if !nameEnt.IsDir() {
			continue
		}
		versions, err := os.ReadDir(filepath.Join(root, nameEnt.Name()))
		if err != nil {
			continue
		}
		for _, verEnt := range versions {
			if !verEnt.IsDir() {
				continue
			}
			wasmPath := filepath.Join(root, nameEnt.Name(), verEnt.Name(), "plugin.wasm")
			sum, err := pluginhost.Checksum(wasmPath)
			if err != nil {
				continue
			}
			if len(sum) > 12 {
				sum = sum[:12]
			}
			rows = append(rows, row{nameEnt.Name(), verEnt.Name(), sum})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].name != rows[j].name {
			return rows[i].name < rows[j].name
		}
		return rows[i].version < rows[j].version
	})

	f, err := c.Formatter()
	if err != nil {
		return err
	}
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{r.name, r.version, r.sha})
	}
	return f.Write([]string{"NAME", "VERSION", "SHA256"}, out)
}
