// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDocumentPreservesKeyOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeManifest(t, dir, `{
  "name": "pkg",
  "sideEffects": false,
  "version": "1.0.0",
  "main": "cjs/index.cjs"
}
`)

	doc, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	// Mutating an existing key must not move it.
	doc.Set("main", "./src/index.ts")
	out, err := doc.Encode()
	if err != nil {
		t.Fatal(err)
	}

	want := `{
  "name": "pkg",
  "sideEffects": false,
  "version": "1.0.0",
  "main": "./src/index.ts"
}
`
	if string(out) != want {
		t.Errorf("Encode() =\n%s\nwant\n%s", out, want)
	}
}

func TestDocumentSaveSkipsUnchanged(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := "{\n  \"name\": \"pkg\"\n}\n"
	path := writeManifest(t, dir, content)

	doc, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	wrote, err := doc.Save()
	if err != nil {
		t.Fatal(err)
	}
	if wrote {
		t.Error("Save() wrote an unchanged document")
	}

	doc.Set("version", "0.1.0")
	wrote, err = doc.Save()
	if err != nil {
		t.Fatal(err)
	}
	if !wrote {
		t.Error("Save() skipped a changed document")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Error("saved manifest missing trailing newline")
	}
	if !strings.Contains(string(data), "\"version\": \"0.1.0\"") {
		t.Errorf("saved manifest missing new field:\n%s", data)
	}
}

func TestDocumentPreservesNumberLiterals(t *testing.T) {
	t.Parallel()

	// 9007199254740993 is 2^53+1: it has no exact float64 representation, so
	// a float64-based decode would silently rewrite it. Exponent forms must
	// also survive untouched through a read-modify-write cycle.
	doc, err := FromBytes([]byte(`{
  "name": "pkg",
  "someBigNum": 9007199254740993,
  "config": {
    "limit": 1e3
  },
  "sizes": [123456789012345678]
}
`))
	if err != nil {
		t.Fatal(err)
	}
	doc.Set("version", "0.1.0")

	out, err := doc.Encode()
	if err != nil {
		t.Fatal(err)
	}
	for _, literal := range []string{"9007199254740993", "1e3", "123456789012345678"} {
		if !strings.Contains(string(out), literal) {
			t.Errorf("Encode() lost number literal %q:\n%s", literal, out)
		}
	}
}

func TestDocumentEncodeNoHTMLEscaping(t *testing.T) {
	t.Parallel()

	doc, err := FromBytes([]byte(`{"name": "a<b>&c"}`))
	if err != nil {
		t.Fatal(err)
	}
	out, err := doc.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "a<b>&c") {
		t.Errorf("Encode() escaped HTML characters: %s", out)
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		json    string
		check   func(t *testing.T, pkg *Package)
		wantErr []string // substrings of field errors
	}{
		{
			name: "full dual-format manifest",
			json: `{"name":"pkg","version":"1.0.0","main":"cjs/index.cjs","module":"esm/index.js","types":"esm/index.d.ts"}`,
			check: func(t *testing.T, pkg *Package) {
				if pkg.Main != "cjs/index.cjs" || pkg.Module != "esm/index.js" {
					t.Errorf("entries = (%q, %q)", pkg.Main, pkg.Module)
				}
				if !pkg.HadTypes || pkg.TypesKey != "types" {
					t.Errorf("HadTypes=%v TypesKey=%q", pkg.HadTypes, pkg.TypesKey)
				}
			},
		},
		{
			name: "typings alias detected",
			json: `{"name":"pkg","typings":"index.d.ts"}`,
			check: func(t *testing.T, pkg *Package) {
				if pkg.TypesKey != "typings" || pkg.Types != "index.d.ts" {
					t.Errorf("TypesKey=%q Types=%q", pkg.TypesKey, pkg.Types)
				}
			},
		},
		{
			name: "types absent is sticky-absent",
			json: `{"name":"pkg","main":"cjs/index.cjs"}`,
			check: func(t *testing.T, pkg *Package) {
				if pkg.HadTypes {
					t.Error("HadTypes = true for manifest without types")
				}
			},
		},
		{
			name: "bin as single string",
			json: `{"name":"pkg","bin":"./src/cli.js"}`,
			check: func(t *testing.T, pkg *Package) {
				if !pkg.Bin.IsSet() || pkg.Bin.Single != "./src/cli.js" {
					t.Errorf("Bin = %+v", pkg.Bin)
				}
				if got := pkg.Bin.Paths(); len(got) != 1 || got[0] != "./src/cli.js" {
					t.Errorf("Paths() = %v", got)
				}
			},
		},
		{
			name: "bin as ordered mapping",
			json: `{"name":"pkg","bin":{"zeta":"./src/zeta.js","alpha":"./src/alpha.js"}}`,
			check: func(t *testing.T, pkg *Package) {
				if len(pkg.Bin.Commands) != 2 {
					t.Fatalf("Commands = %+v", pkg.Bin.Commands)
				}
				// Declaration order, not lexicographic.
				if pkg.Bin.Commands[0].Name != "zeta" || pkg.Bin.Commands[1].Name != "alpha" {
					t.Errorf("Commands order = %+v", pkg.Bin.Commands)
				}
			},
		},
		{
			name:    "missing name",
			json:    `{"version":"1.0.0"}`,
			wantErr: []string{"name"},
		},
		{
			name:    "wrong field types collected together",
			json:    `{"name":"pkg","main":5,"private":"yes","bin":{"x":1}}`,
			wantErr: []string{"main", "private", "bin.x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc, err := FromBytes([]byte(tt.json))
			if err != nil {
				t.Fatal(err)
			}
			pkg, err := Parse(doc)

			if len(tt.wantErr) > 0 {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("Parse() error = %v, want *ValidationError", err)
				}
				for _, field := range tt.wantErr {
					found := false
					for _, fe := range verr.Fields {
						if strings.Contains(fe.Field, field) {
							found = true
						}
					}
					if !found {
						t.Errorf("ValidationError missing field %q: %v", field, verr.Fields)
					}
				}
				return
			}

			if err != nil {
				t.Fatal(err)
			}
			tt.check(t, pkg)
		})
	}
}
