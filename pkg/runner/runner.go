// Package runner provides the process execution seam used by all adapters
// that shell out to external tools (apachectl, a2ensite, wp-cli, systemctl).
// Commands are always built as argument vectors; nothing is ever passed
// through a shell.
package runner

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner abstracts external command execution to support tests and dry-run flows.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner executes commands using os/exec.
type ExecRunner struct {
	DryRun bool
}

// Run executes a command and returns its combined output. A non-zero exit
// status is returned as an error that carries the trimmed output, so callers
// can surface the tool's own diagnostic text.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	if r.DryRun {
		return fmt.Sprintf("dry-run: %s %s", name, strings.Join(args, " ")), nil
	}
	// Command names and arguments come from adapter-owned call sites.
	//nolint:gosec // G204
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("exec %s %s: %w (%s)", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// LookPath reports whether a binary can be resolved on PATH.
func LookPath(name string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("command %q not found on PATH: %w", name, err)
	}
	return nil
}
