package terraform

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/buildandburn/bb/internal/errors"
	"github.com/buildandburn/bb/internal/output"
)

// stderrTailLimit caps how much captured stderr travels inside a
// ProvisioningError.
const stderrTailLimit = 4096

// ExecEngine runs the terraform binary in one working directory.
type ExecEngine struct {
	binary  string
	workDir string
	logPath string
}

var _ Engine = (*ExecEngine)(nil)

// NewExecEngine builds an engine around the given binary. The binary must
// be resolvable now; a missing engine should fail before any environment
// state is created.
func NewExecEngine(binary, workDir string) (*ExecEngine, error) {
	if binary == "" {
		binary = "terraform"
	}

	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("provisioning engine binary %q not found: %w", binary, err)
	}

	return &ExecEngine{
		binary:  path,
		workDir: workDir,
		logPath: filepath.Join(workDir, "terraform.log"),
	}, nil
}

// Init prepares the working directory. -reconfigure keeps a re-run from
// tripping over the backend override of a previous attempt.
func (e *ExecEngine) Init(ctx context.Context) error {
	_, err := e.run(ctx, "init", "-reconfigure", "-input=false")
	return err
}

// Plan saves an execution plan to tfplan and a human-readable copy next
// to the log.
func (e *ExecEngine) Plan(ctx context.Context) error {
	if _, err := e.run(ctx, "plan", "-out=tfplan", "-input=false"); err != nil {
		return err
	}

	show, err := e.run(ctx, "show", "tfplan")
	if err != nil {
		return err
	}

	planPath := filepath.Join(e.workDir, "terraform.plan.txt")
	if err := os.WriteFile(planPath, show, 0o644); err != nil {
		output.Warn("saving readable plan", "error", err)
	}

	return nil
}

// Apply provisions the infrastructure.
func (e *ExecEngine) Apply(ctx context.Context) error {
	_, err := e.run(ctx, "apply", "-auto-approve", "-input=false")
	return err
}

// Destroy tears infrastructure down, optionally limited to targets.
func (e *ExecEngine) Destroy(ctx context.Context, targets ...string) error {
	args := []string{"destroy", "-auto-approve", "-input=false"}
	for _, t := range targets {
		args = append(args, "-target="+t)
	}

	_, err := e.run(ctx, args...)
	return err
}

// Outputs reads the output values of the current state.
func (e *ExecEngine) Outputs(ctx context.Context) (Outputs, error) {
	raw, err := e.run(ctx, "output", "-json")
	if err != nil {
		return nil, err
	}

	return parseOutputs(raw)
}

// run executes one engine command, teeing stdout into the engine log and
// returning it. Stderr travels in the ProvisioningError on failure.
func (e *ExecEngine) run(ctx context.Context, args ...string) ([]byte, error) {
	action := args[0]
	output.Debug("running provisioning engine", "action", action, "dir", e.workDir)

	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Dir = e.workDir

	var stdout, stderr bytes.Buffer

	logFile, err := os.OpenFile(e.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err == nil {
		defer logFile.Close()
		fmt.Fprintf(logFile, "\n==> %s %s\n", e.binary, strings.Join(args, " "))
		cmd.Stdout = io.MultiWriter(&stdout, logFile)
		cmd.Stderr = io.MultiWriter(&stderr, logFile)
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	if err := cmd.Run(); err != nil {
		return nil, &errors.ProvisioningError{
			Action: action,
			Stderr: tail(stderr.String(), stderrTailLimit),
			Err:    err,
		}
	}

	return stdout.Bytes(), nil
}

func tail(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return "..." + s[len(s)-limit:]
}
