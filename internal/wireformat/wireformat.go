// Package wireformat defines the JSON wire format exchanged between the
// WASM host and guest plugins (spec.md 4.D). These types are the ABI
// contract and must stay backward compatible.
package wireformat

import (
	"fmt"
	"time"
)

// ContextWireFormat carries the pieces of a context.Context that can
// cross the host/guest boundary: a deadline, a derived timeout, a
// correlation ID for logs, and whether the context is already done.
type ContextWireFormat struct {
	Deadline  *time.Time `json:"deadline,omitempty"`
	TimeoutMs int64      `json:"timeout_ms,omitempty"`
	RequestID string     `json:"request_id,omitempty"`
	Cancelled bool       `json:"cancelled,omitempty"`
}

// ExecRequestWire is a guest's request for the host to spawn a subprocess
// (spec.md §3: "Provides one host-side capability: exec(ExecRequest) ->
// ExecResult").
type ExecRequestWire struct {
	Context    ContextWireFormat `json:"context"`
	Command    string            `json:"command"`
	Args       []string          `json:"args,omitempty"`
	Dir        string            `json:"dir,omitempty"`
	Env        []string          `json:"env,omitempty"`
	InheritEnv bool              `json:"inherit_env,omitempty"`
	Stdin      string            `json:"stdin,omitempty"`
}

// ExecResponseWire is the host's reply to an ExecRequestWire.
type ExecResponseWire struct {
	Stdout   string       `json:"stdout,omitempty"`
	Stderr   string       `json:"stderr,omitempty"`
	ExitCode int          `json:"exit_code"`
	Error    *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail is structured error information shared across the host and
// plugin SDKs. Type is one of "capability", "execution", "timeout",
// "validation", "internal".
type ErrorDetail struct {
	Message string       `json:"message"`
	Type    string       `json:"type"`
	Code    string       `json:"code,omitempty"`
	Wrapped *ErrorDetail `json:"wrapped,omitempty"`
}

// Error implements the error interface for ErrorDetail.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Type != "" && e.Type != "internal" {
		msg = fmt.Sprintf("%s: %s", e.Type, msg)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	if e.Wrapped != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Wrapped.Error())
	}
	return msg
}

// EnsureRequestWire is the guest request for a plan()/execute() call,
// carrying the EnsureContext spec.md 4.D defines: the app path, whether
// this is a dry run, and the variant's own config.
type EnsureRequestWire struct {
	Context  ContextWireFormat `json:"context"`
	AppPath  string            `json:"app_path"`
	DryRun   bool              `json:"dry_run"`
	Config   map[string]any    `json:"config,omitempty"`
	Snapshot map[string]string `json:"snapshot,omitempty"` // path -> checksum, from State
}

// EnsurePlanWire is a guest's plan() reply: a description and the list
// of action strings spec.md 4.D's Plan type names.
type EnsurePlanWire struct {
	Description string       `json:"description"`
	Actions     []string     `json:"actions,omitempty"`
	Error       *ErrorDetail `json:"error,omitempty"`
}

// EnsureErrorWire is a guest's execute() reply on failure.
type EnsureErrorWire struct {
	Error *ErrorDetail `json:"error"`
}
