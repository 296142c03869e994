// SPDX-License-Identifier: MPL-2.0

// Package toolchain invokes the external build collaborators: the bundler
// that compiles source entries into format-specific outputs and the type
// compiler that emits declaration files. Both are black boxes reached
// through a shell command line; tsforge only sequences them and interprets
// exit status.
package toolchain

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// Runner executes one shell command line in a working directory.
type Runner interface {
	Run(ctx context.Context, dir, command string, stdout, stderr io.Writer) error
}

// VirtualRunner executes commands through the embedded mvdan/sh interpreter,
// so command lines behave identically across platforms without relying on a
// system shell.
type VirtualRunner struct{}

// Run parses and interprets command inside dir.
func (VirtualRunner) Run(ctx context.Context, dir, command string, stdout, stderr io.Writer) error {
	prog, err := syntax.NewParser().Parse(strings.NewReader(command), "command")
	if err != nil {
		return err
	}
	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(os.Environ()...)),
		interp.StdIO(nil, stdout, stderr),
	)
	if err != nil {
		return err
	}
	return runner.Run(ctx, prog)
}

// SystemRunner executes commands through the system shell ($SHELL, falling
// back to sh). Selected via the use_system_shell config option for users who
// depend on shell-specific startup files.
type SystemRunner struct{}

// Run invokes the system shell with -c.
func (SystemRunner) Run(ctx context.Context, dir, command string, stdout, stderr io.Writer) error {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "sh"
	}
	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Dir = dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}
