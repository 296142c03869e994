// SPDX-License-Identifier: MPL-2.0

package toolchain

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tsforge/internal/issue"
	"tsforge/internal/plan"
)

// recordingRunner captures the command lines it is asked to run.
type recordingRunner struct {
	commands []string
	dirs     []string
	err      error
}

func (r *recordingRunner) Run(_ context.Context, dir, command string, _, _ io.Writer) error {
	r.commands = append(r.commands, command)
	r.dirs = append(r.dirs, dir)
	return r.err
}

func TestVirtualRunnerRunsCommand(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var out bytes.Buffer
	err := VirtualRunner{}.Run(context.Background(), dir, "echo hello && pwd", &out, &out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "hello") {
		t.Errorf("output = %q, missing echo result", out.String())
	}
	if !strings.Contains(out.String(), filepath.Base(dir)) {
		t.Errorf("output = %q, command did not run in %q", out.String(), dir)
	}
}

func TestVirtualRunnerPropagatesExitStatus(t *testing.T) {
	t.Parallel()

	err := VirtualRunner{}.Run(context.Background(), t.TempDir(), "exit 3", io.Discard, io.Discard)
	if err == nil {
		t.Fatal("expected non-zero exit to surface as error")
	}
}

func TestTsupBundlerComposesDeterministicCommand(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{}
	b := &TsupBundler{Runner: runner, Stdout: io.Discard, Stderr: io.Discard}

	req := BuildRequest{
		Dir: "/pkg",
		Entries: map[string]string{
			"zebra": "./src/zebra.ts",
			"index": "./src/index.ts",
		},
		Format:    plan.FormatESM,
		OutDir:    "esm",
		Splitting: true,
	}
	if err := b.Build(context.Background(), req); err != nil {
		t.Fatal(err)
	}

	if len(runner.commands) != 1 {
		t.Fatalf("commands = %v", runner.commands)
	}
	cmd := runner.commands[0]
	if !strings.HasPrefix(cmd, "npx tsup") {
		t.Errorf("command = %q", cmd)
	}
	// Entries in sorted order.
	if strings.Index(cmd, "--entry.index") > strings.Index(cmd, "--entry.zebra") {
		t.Errorf("entries not sorted: %q", cmd)
	}
	for _, want := range []string{"--format esm", `--out-dir "esm"`, "--splitting"} {
		if !strings.Contains(cmd, want) {
			t.Errorf("command %q missing %q", cmd, want)
		}
	}
	if strings.Contains(cmd, "--watch") {
		t.Errorf("watch flag present without Watch: %q", cmd)
	}
}

func TestTsupBundlerNoEntries(t *testing.T) {
	t.Parallel()

	b := &TsupBundler{Runner: &recordingRunner{}, Stdout: io.Discard, Stderr: io.Discard}
	err := b.Build(context.Background(), BuildRequest{Dir: "/pkg", Format: plan.FormatCJS, OutDir: "cjs"})

	var pe *issue.PackageError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *issue.PackageError", err)
	}
}

func TestTsupBundlerWrapsFailure(t *testing.T) {
	t.Parallel()

	cause := errors.New("exit status 1")
	b := &TsupBundler{
		Runner: &recordingRunner{err: cause},
		Stdout: io.Discard, Stderr: io.Discard,
	}
	err := b.Build(context.Background(), BuildRequest{
		Dir:     "/pkg",
		Entries: map[string]string{"index": "./src/index.ts"},
		Format:  plan.FormatCJS,
		OutDir:  "cjs",
	})
	if !errors.Is(err, cause) {
		t.Errorf("error chain lost the runner failure: %v", err)
	}
}

func TestTscCompilerDeletesCacheFirst(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cache := filepath.Join(dir, "tsconfig.tsbuildinfo")
	if err := os.WriteFile(cache, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	runner := &recordingRunner{}
	c := &TscCompiler{Runner: runner, Stdout: io.Discard, Stderr: io.Discard}
	err := c.Compile(context.Background(), TypesRequest{
		Dir:           dir,
		ConfigPath:    "tsconfig.build.json",
		OutDir:        "esm",
		BuildInfoFile: "tsconfig.tsbuildinfo",
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, statErr := os.Stat(cache); !os.IsNotExist(statErr) {
		t.Error("incremental cache survived Compile")
	}
	if len(runner.commands) != 1 || !strings.Contains(runner.commands[0], "--emitDeclarationOnly") {
		t.Errorf("commands = %v", runner.commands)
	}
}
