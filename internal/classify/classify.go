// SPDX-License-Identifier: MPL-2.0

// Package classify walks a package's source directory and classifies entries
// into build entry points and public export points. Classification is
// recomputed from disk on every invocation; nothing is cached.
package classify

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"tsforge/internal/issue"
	"tsforge/internal/manifest"
)

// SourceDir is the source directory name at every package root.
const SourceDir = "src"

// sourceExts are the recognized source file extensions, including the
// module-system-qualified TypeScript/JavaScript variants.
var sourceExts = map[string]bool{
	".js":  true,
	".jsx": true,
	".ts":  true,
	".tsx": true,
	".mjs": true,
	".cjs": true,
	".mts": true,
	".cts": true,
}

// indexExts is the detection order for index files: the first extension for
// which src/index.<ext> exists wins.
var indexExts = []string{".js", ".ts", ".mjs", ".cjs", ".jsx", ".tsx", ".mts", ".cts"}

// Result holds the two classification maps. Keys are logical export keys:
// slash-joined paths relative to the source directory with the extension
// stripped and a trailing "/index" collapsed to the directory name. Values
// are absolute file paths.
type Result struct {
	// Build lists every build entry point, including files that only back
	// bin commands.
	Build map[string]string

	// Public lists export-eligible files. A directory's files are excluded
	// wholesale when every source file under it is referenced by a bin
	// entry.
	Public map[string]string
}

// Classify walks pkgDir/src and produces the build/public classification for
// pkg. A package that declares bin but neither main nor module is a pure-CLI
// package: both maps collapse to just the root index file.
func Classify(pkgDir string, pkg *manifest.Package) (*Result, error) {
	srcDir := filepath.Join(pkgDir, SourceDir)

	info, err := os.Stat(srcDir)
	if err != nil || !info.IsDir() {
		return nil, issue.NewConfigError("locate source directory").
			WithResource(srcDir).
			WithSuggestion("Create a '" + SourceDir + "' directory at the package root").
			WithSuggestion("Add at least one source file (e.g., " + SourceDir + "/index.ts)").
			Build()
	}

	if pkg.Bin.IsSet() && pkg.Main == "" && pkg.Module == "" {
		return classifyPureCLI(srcDir)
	}

	binSet := binTargets(pkg.Bin)
	res := &Result{
		Build:  make(map[string]string),
		Public: make(map[string]string),
	}
	if err := walk(srcDir, "", res.Build, res.Public, binSet); err != nil {
		return nil, err
	}

	if len(res.Build) == 0 {
		return nil, issue.NewConfigError("classify source files").
			WithResource(srcDir).
			WithSuggestion("Add at least one non-test source file under '" + SourceDir + "'").
			Build()
	}
	return res, nil
}

// classifyPureCLI handles packages whose only build product is an
// executable. Both maps collapse to the root index file with no recursion.
func classifyPureCLI(srcDir string) (*Result, error) {
	for _, ext := range indexExts {
		candidate := filepath.Join(srcDir, "index"+ext)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return &Result{
				Build:  map[string]string{"index": candidate},
				Public: map[string]string{"index": candidate},
			}, nil
		}
	}
	return nil, issue.NewConfigError("locate CLI entry point").
		WithResource(srcDir).
		WithSuggestion("A package with only 'bin' set needs an index file (e.g., " + SourceDir + "/index.ts)").
		WithSuggestion("Alternatively set 'main' or 'module' to build library entry points").
		Build()
}

// walk classifies one directory level into the accumulator maps and recurses
// into subdirectories. Child keys override parent keys on collision. The
// public map receives a subdirectory's files only when the subtree is not
// fully covered by bin entries.
func walk(dir, rel string, build, public map[string]string, binSet map[string]struct{}) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return issue.NewPackageError(err, "read source directory", dir)
	}
	// os.ReadDir sorts by name; re-sort defensively for deterministic keys.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	// Files first, subdirectories after: a subtree's keys are merged over
	// the level's own, so on collision (src/foo.ts vs src/foo/index.ts) the
	// child entry wins.
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || isTestFile(name) || !sourceExts[filepath.Ext(name)] {
			continue
		}
		key := exportKey(path.Join(rel, name))
		abs := filepath.Join(dir, name)
		build[key] = abs
		public[key] = abs
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		childRel := path.Join(rel, name)
		abs := filepath.Join(dir, name)

		subBuild := make(map[string]string)
		subPublic := make(map[string]string)
		if err := walk(abs, childRel, subBuild, subPublic, binSet); err != nil {
			return err
		}
		for k, v := range subBuild {
			build[k] = v
		}
		if !coveredByBin(subBuild, binSet) {
			for k, v := range subPublic {
				public[k] = v
			}
		}
	}
	return nil
}

// coveredByBin reports whether every classified file in subtree maps to a
// declared bin target. An empty subtree is not considered covered.
func coveredByBin(subtree map[string]string, binSet map[string]struct{}) bool {
	if len(binSet) == 0 || len(subtree) == 0 {
		return false
	}
	for key := range subtree {
		if _, ok := binSet[key]; !ok {
			return false
		}
	}
	return true
}

// isTestFile reports whether a file name follows a test naming convention
// (contains ".test." or ".spec." before its final extension).
func isTestFile(name string) bool {
	return strings.Contains(name, ".test.") || strings.Contains(name, ".spec.")
}

// exportKey derives the logical key for a source-relative path: extension
// stripped, trailing "/index" collapsed to the containing directory.
func exportKey(rel string) string {
	key := strings.TrimSuffix(rel, path.Ext(rel))
	if dir, base := path.Split(key); base == "index" && dir != "" {
		key = strings.TrimSuffix(dir, "/")
	}
	return key
}

// NormalizeBinPath reduces a declared bin target to the same normal form as
// classification keys: leading "./" and "src/" prefixes are stripped, the
// file extension is stripped, and a trailing "/index" collapses exactly like
// exportKey. This single normalization is used for both the directory-level
// and the file-level bin-exclusion checks.
func NormalizeBinPath(p string) string {
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimPrefix(p, SourceDir+"/")
	return exportKey(p)
}

// binTargets returns the normalized set of all declared bin target paths.
func binTargets(bin manifest.Bin) map[string]struct{} {
	set := make(map[string]struct{})
	for _, p := range bin.Paths() {
		set[NormalizeBinPath(p)] = struct{}{}
	}
	return set
}

// IsBinTarget reports whether the classification key matches any declared
// bin target after normalization.
func IsBinTarget(key string, bin manifest.Bin) bool {
	_, ok := binTargets(bin)[key]
	return ok
}

// DetectIndexExt returns the extension of the root index file inside
// pkgDir/src, checking the recognized index extensions in order and
// defaulting to .js when none exists.
func DetectIndexExt(pkgDir string) string {
	return ResolveSourceExt(pkgDir, "index")
}

// ResolveSourceExt returns the extension under which pkgDir/src/<stem> exists
// on disk, probing the recognized extensions in index-detection order and
// defaulting to .js when no candidate exists. stem is a slash-separated path
// relative to the source directory without extension.
func ResolveSourceExt(pkgDir, stem string) string {
	srcDir := filepath.Join(pkgDir, SourceDir)
	for _, ext := range indexExts {
		if info, err := os.Stat(filepath.Join(srcDir, filepath.FromSlash(stem)+ext)); err == nil && !info.IsDir() {
			return ext
		}
	}
	return ".js"
}
