// SPDX-License-Identifier: MPL-2.0

// Package plan derives which output formats a package build produces from
// the manifest's main/module/bin fields.
package plan

import (
	"sort"

	"tsforge/internal/issue"
	"tsforge/internal/manifest"
)

// Format identifies one module-system output.
type Format string

const (
	// FormatCJS is the CommonJS output, driven by the manifest main field.
	FormatCJS Format = "cjs"
	// FormatESM is the ES-module output, driven by the manifest module
	// field, and the default for bin-only packages.
	FormatESM Format = "esm"
)

// Plan maps each required format to its output directory name (relative to
// the package root). Derived fresh per invocation, never persisted.
type Plan map[Format]string

// Derive computes the build plan: cjs iff main is set, esm iff module is
// set, esm as a fallback when only bin is set. An empty result is a
// configuration error.
func Derive(pkg *manifest.Package) (Plan, error) {
	p := Plan{}
	if pkg.Main != "" {
		p[FormatCJS] = string(FormatCJS)
	}
	if pkg.Module != "" {
		p[FormatESM] = string(FormatESM)
	}
	if len(p) == 0 && pkg.Bin.IsSet() {
		p[FormatESM] = string(FormatESM)
	}
	if len(p) == 0 {
		return nil, issue.NewConfigError("derive build plan").
			WithResource(pkg.Name).
			WithSuggestion("Set 'main' to enable a CommonJS build (e.g., \"cjs/index.cjs\")").
			WithSuggestion("Set 'module' to enable an ES module build (e.g., \"esm/index.js\")").
			WithSuggestion("Set 'bin' for a CLI-only package").
			Build()
	}
	return p, nil
}

// HasCJS reports whether the plan includes a CommonJS output.
func (p Plan) HasCJS() bool {
	_, ok := p[FormatCJS]
	return ok
}

// HasESM reports whether the plan includes an ES-module output.
func (p Plan) HasESM() bool {
	_, ok := p[FormatESM]
	return ok
}

// TypesDir returns the output directory whose declaration files back the
// types condition: ESM is preferred over CJS when both exist.
func (p Plan) TypesDir() string {
	if dir, ok := p[FormatESM]; ok {
		return dir
	}
	return p[FormatCJS]
}

// OutDirs returns the plan's output directory names in sorted order.
func (p Plan) OutDirs() []string {
	dirs := make([]string, 0, len(p))
	for _, dir := range p {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}

// Formats returns the plan's formats in deterministic order (cjs before esm)
// so sequential build steps run in a stable sequence.
func (p Plan) Formats() []Format {
	formats := make([]Format, 0, len(p))
	for _, f := range []Format{FormatCJS, FormatESM} {
		if _, ok := p[f]; ok {
			formats = append(formats, f)
		}
	}
	return formats
}
