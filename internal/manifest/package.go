// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"fmt"
	"strings"

	"github.com/iancoleman/orderedmap"
)

type (
	// Package is the typed view of the manifest fields tsforge derives
	// behavior from. It is decoded from a Document by Parse; all other
	// fields pass through the Document untouched.
	Package struct {
		Name    string
		Version string
		Private bool

		// Main is the CommonJS entry, Module the ES-module entry. Empty
		// means the field is absent.
		Main   string
		Module string

		// Types is the type-declaration entry; TypesKey records which field
		// name carried it ("types" or "typings"). HadTypes is determined at
		// parse time, before any mutation, and decides whether transforms
		// may ever write a types value.
		Types    string
		TypesKey string
		HadTypes bool

		// Bin is the executable declaration, if any.
		Bin Bin

		// HasExports reports whether an exports field was present.
		HasExports bool
	}

	// Bin models the manifest bin field: either a single path string or an
	// ordered command-name → path mapping.
	Bin struct {
		// Single is set when bin was a plain string.
		Single string

		// Commands preserves declaration order when bin was a mapping.
		Commands []BinCommand
	}

	// BinCommand is one command-name → path pair from a bin mapping.
	BinCommand struct {
		Name string
		Path string
	}

	// FieldError describes one structurally invalid manifest field.
	FieldError struct {
		Field  string
		Detail string
	}

	// ValidationError aggregates every field error found while parsing a
	// manifest into its typed view.
	ValidationError struct {
		Fields []FieldError
	}
)

// Error implements the error interface, listing each offending field.
func (e *ValidationError) Error() string {
	var msg strings.Builder
	msg.WriteString("invalid manifest")
	for _, f := range e.Fields {
		fmt.Fprintf(&msg, "; %s: %s", f.Field, f.Detail)
	}
	return msg.String()
}

// IsSet reports whether any bin declaration is present.
func (b Bin) IsSet() bool {
	return b.Single != "" || len(b.Commands) > 0
}

// Paths returns every declared bin target path.
func (b Bin) Paths() []string {
	if b.Single != "" {
		return []string{b.Single}
	}
	paths := make([]string, 0, len(b.Commands))
	for _, c := range b.Commands {
		paths = append(paths, c.Path)
	}
	return paths
}

// Parse decodes the typed view from a Document. It returns a
// *ValidationError listing every structural problem rather than stopping at
// the first, so users can fix a manifest in one pass.
func Parse(doc *Document) (*Package, error) {
	var verr ValidationError
	pkg := &Package{}

	switch v, ok := doc.Value("name"); {
	case !ok:
		verr.Fields = append(verr.Fields, FieldError{Field: "name", Detail: "is required"})
	default:
		s, isString := v.(string)
		switch {
		case !isString:
			verr.Fields = append(verr.Fields, FieldError{Field: "name", Detail: "must be a string"})
		case s == "":
			verr.Fields = append(verr.Fields, FieldError{Field: "name", Detail: "must be non-empty"})
		default:
			pkg.Name = s
		}
	}

	pkg.Version = optionalString(doc, "version", &verr)
	pkg.Main = optionalString(doc, "main", &verr)
	pkg.Module = optionalString(doc, "module", &verr)

	if v, ok := doc.Value("private"); ok {
		b, isBool := v.(bool)
		if !isBool {
			verr.Fields = append(verr.Fields, FieldError{Field: "private", Detail: "must be a boolean"})
		}
		pkg.Private = b
	}

	// "types" wins over "typings" when both appear; npm behaves the same way.
	for _, key := range []string{"types", "typings"} {
		if doc.Has(key) {
			pkg.TypesKey = key
			pkg.HadTypes = true
			pkg.Types = optionalString(doc, key, &verr)
			break
		}
	}

	if v, ok := doc.Value("bin"); ok {
		pkg.Bin = parseBin(v, &verr)
	}

	pkg.HasExports = doc.Has("exports")

	if len(verr.Fields) > 0 {
		return nil, &verr
	}
	return pkg, nil
}

// parseBin decodes a bin field that may be a string or an object of strings.
func parseBin(v any, verr *ValidationError) Bin {
	switch val := v.(type) {
	case string:
		return Bin{Single: val}
	case orderedmap.OrderedMap:
		return parseBinMap(&val, verr)
	case *orderedmap.OrderedMap:
		return parseBinMap(val, verr)
	default:
		verr.Fields = append(verr.Fields, FieldError{Field: "bin", Detail: "must be a string or an object of strings"})
		return Bin{}
	}
}

func parseBinMap(om *orderedmap.OrderedMap, verr *ValidationError) Bin {
	var bin Bin
	for _, name := range om.Keys() {
		v, _ := om.Get(name)
		path, ok := v.(string)
		if !ok {
			verr.Fields = append(verr.Fields, FieldError{
				Field:  "bin." + name,
				Detail: "must be a string path",
			})
			continue
		}
		bin.Commands = append(bin.Commands, BinCommand{Name: name, Path: path})
	}
	return bin
}

// requireString reads a key expected to be a string, recording a field error
// on type mismatch. Absence is handled by the caller.
func requireString(doc *Document, key string, verr *ValidationError) string {
	v, ok := doc.Value(key)
	if !ok {
		return ""
	}
	s, isString := v.(string)
	if !isString {
		verr.Fields = append(verr.Fields, FieldError{Field: key, Detail: "must be a string"})
		return ""
	}
	return s
}

// optionalString reads a key that must be a string when present.
func optionalString(doc *Document, key string, verr *ValidationError) string {
	if !doc.Has(key) {
		return ""
	}
	return requireString(doc, key, verr)
}
