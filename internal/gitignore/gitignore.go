// SPDX-License-Identifier: MPL-2.0

// Package gitignore maintains a delimited, idempotently replaceable block of
// generated-directory entries inside a package's .gitignore. Content outside
// the markers is preserved verbatim.
package gitignore

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tsforge/internal/issue"
)

const (
	// FileName is the ignore file at the package root.
	FileName = ".gitignore"

	beginMarker = "# tsforge: generated directories (begin)"
	endMarker   = "# tsforge: generated directories (end)"
)

// Update rewrites the managed block in pkgDir's ignore file to list exactly
// dirs (sorted, one "/"-suffixed entry per line). The file is created when
// missing; an existing block is replaced in place, anything else kept as is.
func Update(pkgDir string, dirs []string) error {
	path := filepath.Join(pkgDir, FileName)

	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return issue.NewPackageError(err, "read ignore file", pkgDir)
	}

	out := replaceBlock(string(existing), renderBlock(dirs))
	if out == string(existing) {
		return nil
	}
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return issue.NewPackageError(err, "write ignore file", pkgDir)
	}
	return nil
}

// renderBlock produces the managed block: markers around the sorted entries.
func renderBlock(dirs []string) string {
	sorted := make([]string, len(dirs))
	copy(sorted, dirs)
	sort.Strings(sorted)

	var b strings.Builder
	b.WriteString(beginMarker)
	b.WriteString("\n")
	for _, d := range sorted {
		b.WriteString("/" + strings.TrimSuffix(d, "/") + "/\n")
	}
	b.WriteString(endMarker)
	return b.String()
}

// replaceBlock swaps the existing managed block for block, or appends it
// (separated by a blank line) when no markers exist.
func replaceBlock(content, block string) string {
	begin := strings.Index(content, beginMarker)
	end := strings.Index(content, endMarker)

	if begin >= 0 && end > begin {
		return content[:begin] + block + content[end+len(endMarker):]
	}

	switch {
	case content == "":
		return block + "\n"
	case strings.HasSuffix(content, "\n\n"):
		return content + block + "\n"
	case strings.HasSuffix(content, "\n"):
		return content + "\n" + block + "\n"
	default:
		return content + "\n\n" + block + "\n"
	}
}
