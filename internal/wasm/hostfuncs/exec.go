package hostfuncs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/tetratelabs/wazero/api"
)

// Exec implements the exec host function: exec_command(reqPtr, reqLen) -> resPtr.
// It is the only host capability spec.md 4.D wires through.
func Exec(ctx context.Context, mod api.Module, stack []uint64, checker Checker) {
	ptr, length := unpackPtrLen(stack[0])

	requestBytes, ok := mod.Memory().Read(ptr, length)
	if !ok {
		writeExecError(ctx, mod, stack, "hostfuncs: failed to read exec request from guest memory", "internal")
		return
	}

	var request ExecRequestWire
	if err := json.Unmarshal(requestBytes, &request); err != nil {
		writeExecError(ctx, mod, stack, fmt.Sprintf("hostfuncs: failed to unmarshal exec request: %v", err), "internal")
		return
	}

	execCtx, cancel := createContextFromWire(ctx, request.Context)
	defer cancel()

	pluginName := mod.Name()
	if name, ok := PluginNameFromContext(ctx); ok {
		pluginName = name
	}

	if isShellExecution(request.Command) && len(request.Args) > 0 {
		if err := checker.Check(pluginName, "exec", request.Command); err != nil {
			msg := fmt.Sprintf("shell execution requires 'exec:%s' capability (prevents command injection)", request.Command)
			slog.WarnContext(ctx, msg, "command", request.Command, "plugin", pluginName)
			writeExecError(ctx, mod, stack, msg, "capability")
			return
		}
		slog.InfoContext(ctx, "shell execution granted", "command", request.Command, "plugin", pluginName)
	} else if err := checker.Check(pluginName, "exec", request.Command); err != nil {
		msg := fmt.Sprintf("permission denied: %v", err)
		slog.WarnContext(ctx, msg, "command", request.Command, "plugin", pluginName)
		writeExecError(ctx, mod, stack, msg, "capability")
		return
	}

	cmd := exec.CommandContext(execCtx, request.Command, request.Args...)
	if request.Dir != "" {
		cmd.Dir = request.Dir
	}
	switch {
	case request.InheritEnv && len(request.Env) > 0:
		cmd.Env = append(cmd.Environ(), request.Env...)
	case len(request.Env) > 0:
		cmd.Env = request.Env
	}
	if request.Stdin != "" {
		cmd.Stdin = strings.NewReader(request.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	exitCode := 0
	var errorDetail *ErrorDetail
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			errorDetail = toErrorDetail(err)
			if execCtx.Err() == context.DeadlineExceeded {
				errorDetail.Type = "timeout"
				errorDetail.Code = "ETIMEDOUT"
			} else {
				errorDetail.Type = "execution"
			}
		}
	}

	slog.DebugContext(ctx, "plugin exec", "plugin", pluginName, "command", request.Command, "args", request.Args, "exit_code", exitCode, "duration", duration)

	stack[0] = hostWriteResponse(ctx, mod, ExecResponseWire{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
		Error:    errorDetail,
	})
}

func writeExecError(ctx context.Context, mod api.Module, stack []uint64, message, kind string) {
	slog.ErrorContext(ctx, message)
	stack[0] = hostWriteResponse(ctx, mod, ExecResponseWire{
		Error: &ErrorDetail{Message: message, Type: kind},
	})
}

// isShellExecution reports whether command's basename names a shell, the
// case spec.md's capability model singles out to prevent a plugin from
// laundering arbitrary commands through a shell -c invocation.
func isShellExecution(command string) bool {
	base := command
	if idx := strings.LastIndex(command, "/"); idx >= 0 {
		base = command[idx+1:]
	}
	shells := []string{"sh", "bash", "dash", "zsh", "ksh", "csh", "tcsh", "fish"}
	for _, shell := range shells {
		if base == shell {
			return true
		}
	}
	return false
}
