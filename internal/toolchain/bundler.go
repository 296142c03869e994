// SPDX-License-Identifier: MPL-2.0

package toolchain

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tsforge/internal/issue"
	"tsforge/internal/plan"
)

type (
	// BuildRequest describes one bundler invocation: a set of named entry
	// points compiled into a single format's output directory.
	BuildRequest struct {
		// Dir is the package root the bundler runs in.
		Dir string

		// Entries maps entry names to package-relative source paths.
		Entries map[string]string

		Format plan.Format

		// OutDir is the output directory name, relative to Dir.
		OutDir string

		// Splitting enables shared-chunk code splitting.
		Splitting bool

		// Watch keeps the bundler running, rebuilding on change, until the
		// context is cancelled.
		Watch bool
	}

	// Bundler compiles entry points into one output format. Implementations
	// either populate OutDir or return a descriptive error.
	Bundler interface {
		Build(ctx context.Context, req BuildRequest) error
	}

	// TypesRequest describes one declaration-compiler invocation.
	TypesRequest struct {
		// Dir is the package root the compiler runs in.
		Dir string

		// ConfigPath is the compiler configuration file, relative to Dir.
		ConfigPath string

		// OutDir receives the declaration files.
		OutDir string

		// BuildInfoFile is the incremental cache; it is deleted before each
		// run so stale state never leaks into a fresh build.
		BuildInfoFile string
	}

	// TypeCompiler emits declaration files. Success means exit code 0.
	TypeCompiler interface {
		Compile(ctx context.Context, req TypesRequest) error
	}

	// TsupBundler drives the tsup bundler through a Runner.
	TsupBundler struct {
		Runner Runner
		Stdout io.Writer
		Stderr io.Writer
	}

	// TscCompiler drives the TypeScript compiler through a Runner.
	TscCompiler struct {
		Runner Runner
		Stdout io.Writer
		Stderr io.Writer
	}
)

// Build composes and runs one tsup command line. Entries are passed in
// sorted order so the command is deterministic for identical inputs.
func (b *TsupBundler) Build(ctx context.Context, req BuildRequest) error {
	if len(req.Entries) == 0 {
		return issue.NewPackageError(fmt.Errorf("no entry points"), "run bundler", req.Dir)
	}

	names := make([]string, 0, len(req.Entries))
	for name := range req.Entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var cmd strings.Builder
	cmd.WriteString("npx tsup")
	for _, name := range names {
		fmt.Fprintf(&cmd, " --entry.%s=%q", name, req.Entries[name])
	}
	fmt.Fprintf(&cmd, " --format %s --out-dir %q", req.Format, req.OutDir)
	if req.Splitting {
		cmd.WriteString(" --splitting")
	}
	if req.Watch {
		cmd.WriteString(" --watch")
	}

	if err := b.Runner.Run(ctx, req.Dir, cmd.String(), b.Stdout, b.Stderr); err != nil {
		return issue.NewPackageError(err, fmt.Sprintf("run bundler (%s)", req.Format), req.Dir)
	}
	return nil
}

// Compile deletes the incremental cache, then runs one tsc invocation that
// emits declarations only.
func (c *TscCompiler) Compile(ctx context.Context, req TypesRequest) error {
	if req.BuildInfoFile != "" {
		cache := filepath.Join(req.Dir, req.BuildInfoFile)
		if err := os.Remove(cache); err != nil && !os.IsNotExist(err) {
			return issue.NewPackageError(err, "remove type-compiler cache", req.Dir)
		}
	}

	cmd := fmt.Sprintf(
		"npx tsc -p %q --outDir %q --declaration --emitDeclarationOnly",
		req.ConfigPath, req.OutDir,
	)
	if err := c.Runner.Run(ctx, req.Dir, cmd, c.Stdout, c.Stderr); err != nil {
		return issue.NewPackageError(err, "compile type declarations", req.Dir)
	}
	return nil
}
