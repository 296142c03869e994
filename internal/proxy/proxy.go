// SPDX-License-Identifier: MPL-2.0

// Package proxy materializes forwarding manifests for non-root export
// subpaths, so consumers on resolvers without exports support can import
// "<pkg>/<subpath>" and land on the build outputs.
package proxy

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"tsforge/internal/classify"
	"tsforge/internal/exports"
	"tsforge/internal/manifest"
	"tsforge/internal/plan"
)

// Generate writes one proxy package per non-root export subpath of the
// package at pkgDir and returns the created directories (relative to
// pkgDir). Individual subpath failures are logged and skipped; they never
// abort the build.
func Generate(pkgDir string, logger *log.Logger) ([]string, error) {
	subpaths, buildPlan, hadTypes, rootName, err := resolve(pkgDir)
	if err != nil {
		return nil, err
	}

	var created []string
	for _, sub := range subpaths {
		if err := writeProxy(pkgDir, sub, rootName, buildPlan, hadTypes); err != nil {
			logger.Warn("skipping proxy package", "subpath", sub, "error", err)
			continue
		}
		created = append(created, sub)
	}
	return created, nil
}

// Remove deletes the proxy directories for every non-root export subpath,
// then prunes any parent directories left empty. Missing directories are
// fine; other removal failures are logged, not fatal.
func Remove(pkgDir string, logger *log.Logger) {
	subpaths, _, _, _, err := resolve(pkgDir)
	if err != nil {
		logger.Debug("no proxy subpaths to remove", "error", err)
		return
	}
	for _, sub := range subpaths {
		dir := filepath.Join(pkgDir, filepath.FromSlash(sub))
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("could not remove proxy package", "dir", dir, "error", err)
			continue
		}
		// Prune now-empty parents up to the package root.
		for parent := filepath.Dir(dir); parent != pkgDir; parent = filepath.Dir(parent) {
			if os.Remove(parent) != nil {
				break
			}
		}
	}
}

// resolve recomputes the export subpaths from the current manifest and
// source tree.
func resolve(pkgDir string) (subpaths []string, buildPlan plan.Plan, hadTypes bool, rootName string, err error) {
	doc, err := manifest.Load(pkgDir)
	if err != nil {
		return nil, nil, false, "", err
	}
	pkg, err := manifest.Parse(doc)
	if err != nil {
		return nil, nil, false, "", err
	}
	classified, err := classify.Classify(pkgDir, pkg)
	if err != nil {
		return nil, nil, false, "", err
	}
	buildPlan, err = plan.Derive(pkg)
	if err != nil {
		return nil, nil, false, "", err
	}

	syn := exports.Synthesize(exports.Input{
		Public:   classified.Public,
		PkgDir:   pkgDir,
		Plan:     buildPlan,
		Mode:     exports.Prod,
		HadTypes: pkg.HadTypes,
		Bin:      pkg.Bin,
	})
	return syn.SubpathKeys(), buildPlan, pkg.HadTypes, pkg.Name, nil
}

// writeProxy creates the subpath directory and its forwarding manifest.
// Internal paths climb out with one "../" per subpath segment.
func writeProxy(pkgDir, sub, rootName string, buildPlan plan.Plan, hadTypes bool) error {
	dir := filepath.Join(pkgDir, filepath.FromSlash(sub))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	escape := strings.Repeat("../", strings.Count(sub, "/")+1)

	om := manifest.NewObject()
	om.Set("name", rootName+"/"+sub)
	om.Set("private", true)
	om.Set("sideEffects", false)
	if buildPlan.HasCJS() {
		om.Set("main", escape+buildPlan[plan.FormatCJS]+"/"+sub+".cjs")
	}
	if buildPlan.HasESM() {
		om.Set("module", escape+buildPlan[plan.FormatESM]+"/"+sub+".js")
	}
	if hadTypes {
		om.Set("types", escape+buildPlan.TypesDir()+"/"+sub+".d.ts")
	}

	data, err := manifest.EncodeObject(om)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, manifest.FileName), data, 0o644)
}
