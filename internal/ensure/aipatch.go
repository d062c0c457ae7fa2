package ensure

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// PatchGenerator produces a unified diff for verifyCommand's working
// directory when verification fails. The production binary wires a real
// model call here; ai.patch's contract only requires "mock acceptable
// for tests" (spec.md 4.D), so tests supply a scripted PatchGenerator.
type PatchGenerator interface {
	GeneratePatch(ctx context.Context, appPath string, verifyOutput string) (patch []byte, err error)
}

// aiPatchEnsure implements ai.patch: verify, and only if verification
// fails, generate+apply a patch and re-verify.
type aiPatchEnsure struct {
	verifyCommand string
	generator     PatchGenerator
}

// NewAIPatchFactory binds generator into a Factory suitable for
// Registry.Register("ai.patch", ...). Production wiring supplies a real
// model-backed PatchGenerator; tests supply a scripted one.
func NewAIPatchFactory(generator PatchGenerator) Factory {
	return func(config map[string]any) (Ensure, error) {
		cmd := stringField(config, "verify_command")
		if cmd == "" {
			return nil, fmt.Errorf("ai.patch requires verify_command")
		}
		return &aiPatchEnsure{verifyCommand: cmd, generator: generator}, nil
	}
}

// NoopPatchGenerator is the mock scaffold spec.md 4.D permits ("execute
// generates a patch via an external model (mock acceptable for tests)").
// It always returns an empty patch, so Execute's git apply is a no-op
// and the post-apply re-verify simply repeats the failing check unless
// a test substitutes its own PatchGenerator.
type NoopPatchGenerator struct{}

func (NoopPatchGenerator) GeneratePatch(ctx context.Context, appPath string, verifyOutput string) ([]byte, error) {
	return nil, fmt.Errorf("ai.patch: no PatchGenerator configured")
}

func (e *aiPatchEnsure) verify(ctx context.Context, appPath string) (ok bool, output string, err error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", e.verifyCommand)
	cmd.Dir = appPath
	out, runErr := cmd.CombinedOutput()
	return runErr == nil, string(out), nil
}

func (e *aiPatchEnsure) Plan(ctx context.Context, ectx Context) (*Plan, error) {
	ok, _, err := e.verify(ctx, ectx.AppPath)
	if err != nil {
		return nil, err
	}
	if ok {
		return &Plan{Description: "verified (no action)"}, nil
	}
	return &Plan{
		Description: "verification failed; a patch will be generated and applied",
		Actions:     []string{"generate patch", "apply patch", fmt.Sprintf("re-run %q", e.verifyCommand)},
	}, nil
}

func (e *aiPatchEnsure) Execute(ctx context.Context, ectx Context) error {
	ok, output, err := e.verify(ctx, ectx.AppPath)
	if err != nil {
		return err
	}
	if ok || ectx.DryRun {
		return nil
	}

	patch, err := e.generator.GeneratePatch(ctx, ectx.AppPath, output)
	if err != nil {
		return fmt.Errorf("ai.patch: generating patch: %w", err)
	}

	patchFile, err := os.CreateTemp(ectx.AppPath, "ai-patch-*.diff")
	if err != nil {
		return fmt.Errorf("ai.patch: creating patch file: %w", err)
	}
	patchPath := patchFile.Name()
	defer os.Remove(patchPath)

	if _, err := patchFile.Write(patch); err != nil {
		patchFile.Close()
		return fmt.Errorf("ai.patch: writing patch file: %w", err)
	}
	if err := patchFile.Close(); err != nil {
		return fmt.Errorf("ai.patch: closing patch file: %w", err)
	}

	applyCmd := exec.CommandContext(ctx, "git", "apply", filepath.Base(patchPath))
	applyCmd.Dir = ectx.AppPath
	if applyOut, err := applyCmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ai.patch: applying patch: %w: %s", err, applyOut)
	}

	ok, reverifyOutput, err := e.verify(ctx, ectx.AppPath)
	if err != nil {
		return err
	}
	if !ok {
		rollbackCmd := exec.CommandContext(ctx, "git", "apply", "-R", filepath.Base(patchPath))
		rollbackCmd.Dir = ectx.AppPath
		_ = rollbackCmd.Run()
		return fmt.Errorf("ai.patch: verification still failing after patch applied: %s", reverifyOutput)
	}
	return nil
}
