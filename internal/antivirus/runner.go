// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package antivirus

import (
	"context"
	"errors"
	"os/exec"
)

// CommandRunner runs an external program and reports its combined output and
// exit code. err is non-nil only when the program could not be run to
// completion (not installed, killed by ctx).
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (output []byte, exitCode int, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements CommandRunner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, int, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // G204: binary paths come from configuration
	out, err := cmd.CombinedOutput()
	if err == nil {
		return out, 0, nil
	}
	if ctx.Err() != nil {
		return out, -1, ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		return out, exitErr.ExitCode(), nil
	}
	return out, -1, err
}
