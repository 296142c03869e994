// SPDX-License-Identifier: MPL-2.0

package exports

import (
	"path"
	"strings"

	"tsforge/internal/classify"
)

// PathMode classifies which tree a manifest path points into. Bin paths are
// rewritten between modes by Rebase instead of ad hoc string substitution, so
// unanticipated path shapes are reported rather than silently left behind.
type PathMode int

const (
	// PathUnknown is any shape Rebase does not recognize.
	PathUnknown PathMode = iota
	// PathSource points into the source directory ("./src/...").
	PathSource
	// PathCJS points into the CommonJS output ("./cjs/...").
	PathCJS
	// PathESM points into the ES-module output ("./esm/...").
	PathESM
)

// modePrefix returns the directory prefix for a known mode.
func modePrefix(m PathMode) string {
	switch m {
	case PathSource:
		return "./" + classify.SourceDir + "/"
	case PathCJS:
		return "./cjs/"
	case PathESM:
		return "./esm/"
	}
	return ""
}

// modeExt returns the file extension paths carry in a known mode. Source and
// ESM scripts are plain .js; CJS scripts are .cjs.
func modeExt(m PathMode) string {
	if m == PathCJS {
		return ".cjs"
	}
	return ".js"
}

// DetectPathMode classifies p by its directory prefix. A "src/..." path
// without the leading "./" is also recognized as source-relative.
func DetectPathMode(p string) PathMode {
	for _, m := range []PathMode{PathSource, PathCJS, PathESM} {
		prefix := modePrefix(m)
		if strings.HasPrefix(p, prefix) || strings.HasPrefix(p, prefix[2:]) {
			return m
		}
	}
	return PathUnknown
}

// Rebase maps p from its detected mode into target mode, swapping the
// directory prefix and extension. It reports false, returning p unchanged,
// when the path's shape is not recognized; callers surface that instead of
// silently no-oping.
func Rebase(p string, target PathMode) (string, bool) {
	from := DetectPathMode(p)
	if from == PathUnknown || target == PathUnknown {
		return p, false
	}
	if from == target {
		return p, true
	}

	rest := strings.TrimPrefix(p, "./")
	rest = rest[strings.Index(rest, "/")+1:]
	rest = strings.TrimSuffix(rest, path.Ext(rest))
	return modePrefix(target) + rest + modeExt(target), true
}
