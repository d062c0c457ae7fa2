package hostfuncs

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// Register builds the "weaver_host" module and registers the single
// exec_command host function spec.md 4.D defines, gated by checker.
func Register(ctx context.Context, runtime wazero.Runtime, checker Checker) error {
	builder := runtime.NewHostModuleBuilder("weaver_host")

	// Parameter: packed reqPtr<<32|reqLen (i64). Returns: packed resPtr<<32|resLen (i64).
	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			Exec(ctx, mod, stack, checker)
		}), []api.ValueType{api.ValueTypeI64}, []api.ValueType{api.ValueTypeI64}).
		Export("exec_command")

	_, err := builder.Instantiate(ctx)
	return err
}
