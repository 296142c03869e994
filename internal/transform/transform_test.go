// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"tsforge/internal/exports"
)

// mkPackage creates a package directory with the given manifest content and
// source files.
func mkPackage(t *testing.T, manifestJSON string, srcFiles ...string) string {
	t.Helper()
	pkgDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(pkgDir, "package.json"), []byte(manifestJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, rel := range srcFiles {
		abs := filepath.Join(pkgDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abs, []byte("export {}\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return pkgDir
}

func readManifest(t *testing.T, pkgDir string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(pkgDir, "package.json"))
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("reparse written manifest: %v\n%s", err, data)
	}
	return m
}

const dualFormatManifest = `{
  "name": "pkg",
  "main": "cjs/index.cjs",
  "module": "esm/index.js",
  "types": "esm/index.d.ts"
}
`

func TestToDevScenarioDualFormat(t *testing.T) {
	t.Parallel()

	pkgDir := mkPackage(t, dualFormatManifest, "src/index.ts")
	res, err := ToDev(pkgDir)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Wrote {
		t.Error("first ToDev should write")
	}

	m := readManifest(t, pkgDir)
	wantExports := map[string]any{
		".": map[string]any{
			"types":   "./src/index.ts",
			"import":  "./src/index.ts",
			"require": "./src/index.ts",
		},
		"./package.json": "./package.json",
	}
	if !reflect.DeepEqual(m["exports"], wantExports) {
		t.Errorf("exports = %#v, want %#v", m["exports"], wantExports)
	}
	if m["main"] != "./src/index.ts" || m["module"] != "./src/index.ts" || m["types"] != "./src/index.ts" {
		t.Errorf("top-level fields = main:%v module:%v types:%v", m["main"], m["module"], m["types"])
	}
}

func TestToProdScenarioDualFormat(t *testing.T) {
	t.Parallel()

	pkgDir := mkPackage(t, dualFormatManifest, "src/index.ts")
	if _, err := ToProd(pkgDir); err != nil {
		t.Fatal(err)
	}

	m := readManifest(t, pkgDir)
	wantExports := map[string]any{
		".": map[string]any{
			"types":   "./esm/index.d.ts",
			"import":  "./esm/index.js",
			"require": "./cjs/index.cjs",
		},
		"./package.json": "./package.json",
	}
	if !reflect.DeepEqual(m["exports"], wantExports) {
		t.Errorf("exports = %#v, want %#v", m["exports"], wantExports)
	}
	if m["main"] != "./cjs/index.cjs" || m["module"] != "./esm/index.js" || m["types"] != "./esm/index.d.ts" {
		t.Errorf("top-level fields = main:%v module:%v types:%v", m["main"], m["module"], m["types"])
	}
}

func TestToDevIdempotent(t *testing.T) {
	t.Parallel()

	pkgDir := mkPackage(t, dualFormatManifest, "src/index.ts")
	if _, err := ToDev(pkgDir); err != nil {
		t.Fatal(err)
	}

	first, err := os.ReadFile(filepath.Join(pkgDir, "package.json"))
	if err != nil {
		t.Fatal(err)
	}

	res, err := ToDev(pkgDir)
	if err != nil {
		t.Fatal(err)
	}
	if res.Wrote {
		t.Error("second ToDev performed a write; expected byte-identical skip")
	}

	second, err := os.ReadFile(filepath.Join(pkgDir, "package.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Error("manifest content changed across idempotent ToDev")
	}
}

func TestRoundTripRestoresShape(t *testing.T) {
	t.Parallel()

	pkgDir := mkPackage(t, dualFormatManifest, "src/index.ts", "src/utils/index.ts")
	if _, err := ToDev(pkgDir); err != nil {
		t.Fatal(err)
	}
	before := readManifest(t, pkgDir)

	if _, err := ToProd(pkgDir); err != nil {
		t.Fatal(err)
	}
	if _, err := ToDev(pkgDir); err != nil {
		t.Fatal(err)
	}
	after := readManifest(t, pkgDir)

	if !reflect.DeepEqual(before, after) {
		t.Errorf("round trip changed manifest:\nbefore: %#v\nafter:  %#v", before, after)
	}
}

func TestTypesStickiness(t *testing.T) {
	t.Parallel()

	noTypes := `{
  "name": "pkg",
  "main": "cjs/index.cjs",
  "module": "esm/index.js"
}
`
	pkgDir := mkPackage(t, noTypes, "src/index.ts")

	for _, step := range []func(string) (*Result, error){ToProd, ToDev, ToProd} {
		if _, err := step(pkgDir); err != nil {
			t.Fatal(err)
		}
		m := readManifest(t, pkgDir)
		if _, ok := m["types"]; ok {
			t.Fatal("types field introduced for a manifest that never had one")
		}
		if exp, ok := m["exports"].(map[string]any); ok {
			if root, ok := exp["."].(map[string]any); ok {
				if _, ok := root["types"]; ok {
					t.Fatal("types condition introduced in exports")
				}
			}
		}
	}
}

func TestTypingsAliasPreserved(t *testing.T) {
	t.Parallel()

	withTypings := `{
  "name": "pkg",
  "module": "esm/index.js",
  "typings": "esm/index.d.ts"
}
`
	pkgDir := mkPackage(t, withTypings, "src/index.ts")
	if _, err := ToProd(pkgDir); err != nil {
		t.Fatal(err)
	}

	m := readManifest(t, pkgDir)
	if _, ok := m["types"]; ok {
		t.Error("transform renamed typings to types")
	}
	if m["typings"] != "./esm/index.d.ts" {
		t.Errorf("typings = %v, want ./esm/index.d.ts", m["typings"])
	}
}

// Scenario D: an untouched custom key keeps its value and position.
func TestUnrelatedKeysPreservedInPlace(t *testing.T) {
	t.Parallel()

	content := `{
  "name": "pkg",
  "sideEffects": false,
  "main": "cjs/index.cjs",
  "license": "MIT"
}
`
	pkgDir := mkPackage(t, content, "src/index.ts")
	if _, err := ToProd(pkgDir); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(pkgDir, "package.json"))
	if err != nil {
		t.Fatal(err)
	}

	order := topLevelKeys(data)
	wantPrefix := []string{"name", "sideEffects", "main", "license"}
	if len(order) < len(wantPrefix) {
		t.Fatalf("keys = %v", order)
	}
	for i, k := range wantPrefix {
		if order[i] != k {
			t.Fatalf("key order = %v, want prefix %v", order, wantPrefix)
		}
	}

	m := readManifest(t, pkgDir)
	if m["sideEffects"] != false {
		t.Errorf("sideEffects = %v, want false", m["sideEffects"])
	}
	if m["license"] != "MIT" {
		t.Errorf("license = %v, want MIT", m["license"])
	}
}

func TestBinRewrite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		manifest string
		step     func(string) (*Result, error)
		wantBin  any
	}{
		{
			name: "prod rewrites mapping to cjs",
			manifest: `{
  "name": "pkg",
  "main": "cjs/index.cjs",
  "bin": {"mycli": "./src/cli.js"}
}
`,
			step:    ToProd,
			wantBin: map[string]any{"mycli": "./cjs/cli.cjs"},
		},
		{
			name: "prod without cjs build targets esm",
			manifest: `{
  "name": "pkg",
  "module": "esm/index.js",
  "bin": {"mycli": "./src/cli.js"}
}
`,
			step:    ToProd,
			wantBin: map[string]any{"mycli": "./esm/cli.js"},
		},
		{
			name: "dev reverses single-string bin",
			manifest: `{
  "name": "pkg",
  "main": "cjs/index.cjs",
  "bin": "./cjs/cli.cjs"
}
`,
			step:    ToDev,
			wantBin: "./src/cli.js",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pkgDir := mkPackage(t, tt.manifest, "src/index.ts", "src/cli.js")
			if _, err := tt.step(pkgDir); err != nil {
				t.Fatal(err)
			}
			m := readManifest(t, pkgDir)
			if !reflect.DeepEqual(m["bin"], tt.wantBin) {
				t.Errorf("bin = %#v, want %#v", m["bin"], tt.wantBin)
			}
		})
	}
}

func TestModuleFlavoredTypescriptSources(t *testing.T) {
	t.Parallel()

	// A package whose sources are all .mts must get dev fields and bin
	// paths pointing at the files that exist, not at ./src/*.js.
	content := `{
  "name": "pkg",
  "module": "esm/index.js",
  "bin": {"mycli": "./esm/cli.js"}
}
`
	pkgDir := mkPackage(t, content, "src/index.mts", "src/cli.mts")
	if _, err := ToDev(pkgDir); err != nil {
		t.Fatal(err)
	}

	m := readManifest(t, pkgDir)
	if m["module"] != "./src/index.mts" {
		t.Errorf("module = %v, want ./src/index.mts", m["module"])
	}
	if !reflect.DeepEqual(m["bin"], map[string]any{"mycli": "./src/cli.mts"}) {
		t.Errorf("bin = %#v, want ./src/cli.mts", m["bin"])
	}
}

func TestBinUnrecognizedShapeWarns(t *testing.T) {
	t.Parallel()

	content := `{
  "name": "pkg",
  "main": "cjs/index.cjs",
  "bin": {"mycli": "./scripts/cli.js"}
}
`
	pkgDir := mkPackage(t, content, "src/index.ts")
	res, err := ToProd(pkgDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Warnings) == 0 {
		t.Error("expected a warning for unrecognized bin path shape")
	}

	m := readManifest(t, pkgDir)
	if !reflect.DeepEqual(m["bin"], map[string]any{"mycli": "./scripts/cli.js"}) {
		t.Errorf("unrecognized bin path was rewritten: %#v", m["bin"])
	}
}

func TestGenerateDoesNotWrite(t *testing.T) {
	t.Parallel()

	pkgDir := mkPackage(t, dualFormatManifest, "src/index.ts")
	original, err := os.ReadFile(filepath.Join(pkgDir, "package.json"))
	if err != nil {
		t.Fatal(err)
	}

	res, err := Generate(pkgDir, exports.Prod)
	if err != nil {
		t.Fatal(err)
	}
	if res.Wrote {
		t.Error("Generate reported a write")
	}
	if got, _ := res.Doc.GetString("main"); got != "./cjs/index.cjs" {
		t.Errorf("generated main = %q", got)
	}

	after, err := os.ReadFile(filepath.Join(pkgDir, "package.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(original) != string(after) {
		t.Error("Generate modified the file on disk")
	}
}

// topLevelKeys extracts the top-level key order from a manifest in the
// serializer's canonical 2-space-indented form: top-level keys sit on lines
// starting with exactly two spaces and a quote.
func topLevelKeys(data []byte) []string {
	var keys []string
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, `  "`) || strings.HasPrefix(line, `   `) {
			continue
		}
		rest := line[3:]
		if end := strings.Index(rest, `"`); end >= 0 {
			keys = append(keys, rest[:end])
		}
	}
	return keys
}
