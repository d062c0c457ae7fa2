package hostfuncs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tetratelabs/wazero/api"
	"github.com/weaver-dev/weaver/internal/wireformat"
)

// Re-export wire format types so callers in this package don't need to
// import internal/wireformat directly.
type (
	ContextWireFormat = wireformat.ContextWireFormat
	ExecRequestWire    = wireformat.ExecRequestWire
	ExecResponseWire   = wireformat.ExecResponseWire
	ErrorDetail       = wireformat.ErrorDetail
)

func createContextFromWire(parent context.Context, wireCtx ContextWireFormat) (context.Context, context.CancelFunc) {
	if wireCtx.Cancelled {
		ctx, cancel := context.WithCancel(parent)
		cancel()
		return ctx, cancel
	}
	if wireCtx.Deadline != nil && !wireCtx.Deadline.IsZero() {
		return context.WithDeadline(parent, *wireCtx.Deadline)
	}
	if wireCtx.TimeoutMs > 0 {
		return context.WithTimeout(parent, time.Duration(wireCtx.TimeoutMs)*time.Millisecond)
	}
	return context.WithCancel(parent)
}

func toErrorDetail(err error) *ErrorDetail {
	if err == nil {
		return nil
	}
	return &ErrorDetail{Message: err.Error(), Type: "internal"}
}

// hostWriteResponse marshals response, writes it into the guest's memory
// via its exported allocate(), and returns the packed ptr+len result.
func hostWriteResponse(ctx context.Context, mod api.Module, response any) uint64 {
	data, err := json.Marshal(response)
	if err != nil {
		slog.ErrorContext(ctx, "hostfuncs: failed to marshal response", "error", err)
		data, _ = json.Marshal(ExecResponseWire{
			Error: &ErrorDetail{Message: fmt.Sprintf("marshal failure: %v", err), Type: "internal"},
		})
	}

	allocateFn := mod.ExportedFunction("allocate")
	if allocateFn == nil {
		slog.ErrorContext(ctx, "hostfuncs: guest does not export allocate()")
		return 0
	}
	results, err := allocateFn.Call(ctx, uint64(len(data)))
	if err != nil || len(results) == 0 {
		slog.ErrorContext(ctx, "hostfuncs: guest allocate() call failed", "error", err)
		return 0
	}
	ptr := uint32(results[0])
	if !mod.Memory().Write(ptr, data) {
		slog.ErrorContext(ctx, "hostfuncs: failed to write response into guest memory")
		return 0
	}
	return packPtrLen(ptr, uint32(len(data)))
}

func packPtrLen(ptr, length uint32) uint64 {
	return (uint64(ptr) << 32) | uint64(length)
}

func unpackPtrLen(packed uint64) (ptr, length uint32) {
	return uint32(packed >> 32), uint32(packed)
}
