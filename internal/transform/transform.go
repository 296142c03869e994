// SPDX-License-Identifier: MPL-2.0

// Package transform toggles a package manifest between its development
// (source pointing) and production (build-output pointing) shapes. Every
// invocation re-reads the manifest, reclassifies the source tree, and
// re-derives the build plan; no derived state is cached. The write is a
// single all-or-nothing call, skipped when the serialized output matches the
// original file byte for byte.
package transform

import (
	"fmt"
	"path"
	"strings"

	"tsforge/internal/classify"
	"tsforge/internal/exports"
	"tsforge/internal/issue"
	"tsforge/internal/manifest"
	"tsforge/internal/plan"
)

// Result reports what a transform computed and whether it touched disk.
type Result struct {
	// Doc is the mutated in-memory manifest.
	Doc *manifest.Document

	// Wrote is true when Save actually rewrote the file.
	Wrote bool

	// Warnings lists non-fatal oddities, currently bin paths whose shape
	// the path-mode mapper did not recognize and therefore left unchanged.
	Warnings []string
}

// ToDev rewrites the manifest at pkgDir into development shape.
func ToDev(pkgDir string) (*Result, error) {
	return apply(pkgDir, exports.Dev, true)
}

// ToProd rewrites the manifest at pkgDir into production shape.
func ToProd(pkgDir string) (*Result, error) {
	return apply(pkgDir, exports.Prod, true)
}

// Generate computes the manifest shape for mode without writing anything.
// Used for previews and round-trip tests.
func Generate(pkgDir string, mode exports.Mode) (*Result, error) {
	return apply(pkgDir, mode, false)
}

// apply runs the full pipeline: read, parse, classify, derive, synthesize,
// mutate in place, optionally save.
func apply(pkgDir string, mode exports.Mode, write bool) (*Result, error) {
	doc, err := manifest.Load(pkgDir)
	if err != nil {
		return nil, err
	}
	pkg, err := manifest.Parse(doc)
	if err != nil {
		return nil, issue.NewPackageError(err, "validate manifest", pkgDir)
	}

	// Types presence is decided here, before any mutation, and is the only
	// thing that can ever allow a types value to be written.
	hadTypes := pkg.HadTypes

	classified, err := classify.Classify(pkgDir, pkg)
	if err != nil {
		return nil, err
	}
	buildPlan, err := plan.Derive(pkg)
	if err != nil {
		return nil, err
	}

	syn := exports.Synthesize(exports.Input{
		Public:   classified.Public,
		PkgDir:   pkgDir,
		Plan:     buildPlan,
		Mode:     mode,
		HadTypes: hadTypes,
		Bin:      pkg.Bin,
	})

	res := &Result{Doc: doc}

	if syn.Fields.Main != "" {
		doc.Set("main", syn.Fields.Main)
	}
	if syn.Fields.Module != "" {
		doc.Set("module", syn.Fields.Module)
	}
	if hadTypes && syn.Fields.Types != "" {
		doc.Set(pkg.TypesKey, syn.Fields.Types)
	}

	rewriteBin(doc, pkg, pkgDir, buildPlan, mode, res)

	doc.Set("exports", syn.Value())

	if write {
		wrote, err := doc.Save()
		if err != nil {
			return nil, err
		}
		res.Wrote = wrote
	}
	return res, nil
}

// rewriteBin maps the declared bin path(s) into the target mode's tree:
// source-relative in dev, cjs-relative (or esm-relative without a cjs build)
// in prod. Paths the mapper does not recognize stay untouched and are
// reported as warnings.
func rewriteBin(doc *manifest.Document, pkg *manifest.Package, pkgDir string, buildPlan plan.Plan, mode exports.Mode, res *Result) {
	if !pkg.Bin.IsSet() {
		return
	}

	target := exports.PathSource
	if mode == exports.Prod {
		target = exports.PathESM
		if buildPlan.HasCJS() {
			target = exports.PathCJS
		}
	}

	rebase := func(p string) string {
		out, ok := exports.Rebase(p, target)
		if !ok {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("bin path %q has an unrecognized shape and was left unchanged", p))
			return out
		}
		if target == exports.PathSource {
			out = sourceBinPath(pkgDir, out)
		}
		return out
	}

	if pkg.Bin.Single != "" {
		doc.Set("bin", rebase(pkg.Bin.Single))
		return
	}
	om := manifest.NewObject()
	for _, cmd := range pkg.Bin.Commands {
		om.Set(cmd.Name, rebase(cmd.Path))
	}
	doc.Set("bin", om)
}

// sourceBinPath corrects the extension of a rebased source-mode bin path to
// the file that actually exists: rebasing compiled output always yields .js,
// but the source may be .ts, .mts, or another recognized extension.
func sourceBinPath(pkgDir, p string) string {
	prefix := "./" + classify.SourceDir + "/"
	stem := strings.TrimSuffix(strings.TrimPrefix(p, prefix), path.Ext(p))
	return prefix + stem + classify.ResolveSourceExt(pkgDir, stem)
}
