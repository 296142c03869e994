// SPDX-License-Identifier: MPL-2.0

// Package exports synthesizes the manifest exports mapping and the top-level
// main/module/types values for a package, in either development (source
// pointing) or production (build-output pointing) shape. Synthesis is a pure
// computation; the caller performs the manifest write.
package exports

import (
	"path/filepath"
	"sort"

	"github.com/iancoleman/orderedmap"

	"tsforge/internal/classify"
	"tsforge/internal/manifest"
	"tsforge/internal/plan"
)

// Mode selects which manifest shape synthesis targets.
type Mode int

const (
	// Dev points every entry at the on-disk source files.
	Dev Mode = iota
	// Prod points every entry at the compiled build outputs.
	Prod
)

// String returns the mode name for logs.
func (m Mode) String() string {
	if m == Prod {
		return "prod"
	}
	return "dev"
}

// selfReference is the export subpath every package maps to itself.
const selfReference = "./package.json"

type (
	// Input carries everything synthesis depends on.
	Input struct {
		// Public is the classifier's public map: export key → absolute path.
		Public map[string]string

		// PkgDir is the package root, used to relativize source paths and
		// detect the index file extension.
		PkgDir string

		Plan plan.Plan
		Mode Mode

		// HadTypes reflects the original manifest, before any mutation.
		// When false, no types condition or field is ever produced.
		HadTypes bool

		// Bin is consulted for the file-level exclusion: a file whose
		// normalized path matches a bin target never becomes an export.
		Bin manifest.Bin
	}

	// Entry is one export value: either a plain path (single-condition
	// development resolution) or a conditional object.
	Entry struct {
		// Plain is set for single-file resolution; the condition fields are
		// then empty.
		Plain string

		Types   string
		Import  string
		Require string
	}

	// KeyedEntry pairs an export subpath with its entry, preserving the
	// serialization order: ".", sorted subpaths, "./package.json".
	KeyedEntry struct {
		Key   string
		Entry Entry
	}

	// Fields holds the synthesized top-level entry fields. Empty means the
	// field is not part of the target shape and must be left alone.
	Fields struct {
		Main   string
		Module string
		Types  string
	}

	// Result is the complete synthesis output.
	Result struct {
		Exports []KeyedEntry
		Fields  Fields
	}
)

// Synthesize computes the export map and top-level fields for in.
func Synthesize(in Input) *Result {
	res := &Result{
		Exports: []KeyedEntry{},
	}

	// Root entry first, then subpaths in sorted order.
	subKeys := make([]string, 0, len(in.Public))
	for key := range in.Public {
		if classify.IsBinTarget(key, in.Bin) {
			continue
		}
		if key == "index" {
			continue
		}
		subKeys = append(subKeys, key)
	}
	sort.Strings(subKeys)

	if path, ok := in.Public["index"]; ok && !classify.IsBinTarget("index", in.Bin) {
		res.Exports = append(res.Exports, KeyedEntry{Key: ".", Entry: in.entryFor("index", path)})
	}
	for _, key := range subKeys {
		res.Exports = append(res.Exports, KeyedEntry{Key: "./" + key, Entry: in.entryFor(key, in.Public[key])})
	}
	res.Exports = append(res.Exports, KeyedEntry{Key: selfReference, Entry: Entry{Plain: selfReference}})

	res.Fields = in.topLevelFields()
	return res
}

// entryFor produces the export value for one classified public file.
func (in Input) entryFor(key, absPath string) Entry {
	if in.Mode == Prod {
		e := Entry{}
		if in.HadTypes {
			e.Types = "./" + in.Plan.TypesDir() + "/" + key + ".d.ts"
		}
		if in.Plan.HasESM() {
			e.Import = "./" + in.Plan[plan.FormatESM] + "/" + key + ".js"
		}
		if in.Plan.HasCJS() {
			e.Require = "./" + in.Plan[plan.FormatCJS] + "/" + key + ".cjs"
		}
		return e
	}

	// Development: point at the literal source file, preserving its real
	// extension. With a single resolution condition the entry is a plain
	// string; with several, each condition repeats the same source path,
	// since no compiled artifact exists yet.
	src := in.sourceRef(absPath)
	conditions := 0
	if in.HadTypes {
		conditions++
	}
	if in.Plan.HasESM() {
		conditions++
	}
	if in.Plan.HasCJS() {
		conditions++
	}
	if conditions <= 1 {
		return Entry{Plain: src}
	}
	e := Entry{}
	if in.HadTypes {
		e.Types = src
	}
	if in.Plan.HasESM() {
		e.Import = src
	}
	if in.Plan.HasCJS() {
		e.Require = src
	}
	return e
}

// sourceRef converts an absolute source path to a "./"-prefixed
// package-relative reference with forward slashes.
func (in Input) sourceRef(absPath string) string {
	rel, err := filepath.Rel(in.PkgDir, absPath)
	if err != nil {
		rel = absPath
	}
	return "./" + filepath.ToSlash(rel)
}

// topLevelFields computes the main/module/types values for the target shape.
// Presence follows the build plan (main iff cjs, module iff esm) and the
// original types presence.
func (in Input) topLevelFields() Fields {
	f := Fields{}
	if in.Mode == Prod {
		if in.Plan.HasCJS() {
			f.Main = "./" + in.Plan[plan.FormatCJS] + "/index.cjs"
		}
		if in.Plan.HasESM() {
			f.Module = "./" + in.Plan[plan.FormatESM] + "/index.js"
		}
		if in.HadTypes {
			f.Types = "./" + in.Plan.TypesDir() + "/index.d.ts"
		}
		return f
	}

	index := "./" + classify.SourceDir + "/index" + classify.DetectIndexExt(in.PkgDir)
	if in.Plan.HasCJS() {
		f.Main = index
	}
	if in.Plan.HasESM() {
		f.Module = index
	}
	if in.HadTypes {
		f.Types = index
	}
	return f
}

// Value renders the export map as an order-preserving JSON object suitable
// for a manifest document.
func (r *Result) Value() *orderedmap.OrderedMap {
	om := manifest.NewObject()
	for _, ke := range r.Exports {
		om.Set(ke.Key, ke.Entry.value())
	}
	return om
}

// value renders one entry as its JSON form: plain string or conditional
// object with types first, then import, then require.
func (e Entry) value() any {
	if e.Plain != "" {
		return e.Plain
	}
	om := manifest.NewObject()
	if e.Types != "" {
		om.Set("types", e.Types)
	}
	if e.Import != "" {
		om.Set("import", e.Import)
	}
	if e.Require != "" {
		om.Set("require", e.Require)
	}
	return om
}

// SubpathKeys returns the non-root, non-self-reference export subpaths with
// their leading "./" stripped, in map order. These are the proxy package
// directories.
func (r *Result) SubpathKeys() []string {
	var out []string
	for _, ke := range r.Exports {
		if ke.Key == "." || ke.Key == selfReference {
			continue
		}
		out = append(out, ke.Key[2:])
	}
	return out
}
