// SPDX-License-Identifier: MPL-2.0

// Package manifest reads and writes package.json files while preserving the
// author's key order. A Document is the raw ordered JSON structure; Package
// is the typed view of the fields tsforge derives build behavior from.
//
// Every transform operation re-reads the document from disk, mutates it in
// memory, and writes back only when the serialized output differs from the
// original file content. Serialization is deterministic: 2-space indentation,
// no HTML escaping, a single trailing newline.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/iancoleman/orderedmap"

	"tsforge/internal/issue"
)

// FileName is the package descriptor file name at every package root.
const FileName = "package.json"

// Document is a package.json file parsed into an order-preserving structure.
// Mutations through Set/Delete keep the position of existing keys; new keys
// are appended.
type Document struct {
	om   *orderedmap.OrderedMap
	raw  []byte
	path string
}

// Load reads and parses the manifest inside pkgDir. The original file bytes
// are retained for the write-skip comparison in Save.
func Load(pkgDir string) (*Document, error) {
	path := filepath.Join(pkgDir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, issue.NewPackageError(err, "read manifest", pkgDir)
	}
	doc, err := FromBytes(data)
	if err != nil {
		return nil, issue.NewPackageError(err, "parse manifest", pkgDir)
	}
	doc.path = path
	return doc, nil
}

// FromBytes parses manifest content without binding it to a file. Used for
// previews and tests; Save on such a document fails.
//
// Parsing goes through the token stream rather than orderedmap's own
// UnmarshalJSON so numbers stay json.Number: integers beyond float64's exact
// range (npm lockfile timestamps, integrity sizes) must re-serialize with the
// literal the author wrote.
func FromBytes(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("invalid JSON: manifest root must be an object")
	}
	om, err := decodeObject(dec)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("invalid JSON: trailing data after manifest object")
	}
	return &Document{om: om, raw: data}, nil
}

// decodeObject consumes the members of an object whose opening brace has
// already been read, preserving key order.
func decodeObject(dec *json.Decoder) (*orderedmap.OrderedMap, error) {
	om := orderedmap.New()
	om.SetEscapeHTML(false)
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if delim, ok := tok.(json.Delim); ok && delim == '}' {
			return om, nil
		}
		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		om.Set(tok.(string), val)
	}
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); ok {
		switch delim {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		}
		return nil, fmt.Errorf("unexpected delimiter %q", delim.String())
	}
	return tok, nil
}

func decodeArray(dec *json.Decoder) ([]any, error) {
	vals := []any{}
	for dec.More() {
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	if _, err := dec.Token(); err != nil { // closing ']'
		return nil, err
	}
	return vals, nil
}

// Path returns the file path this document was loaded from, or "" for
// documents created via FromBytes.
func (d *Document) Path() string {
	return d.path
}

// Has reports whether key is present, regardless of its value.
func (d *Document) Has(key string) bool {
	_, ok := d.om.Get(key)
	return ok
}

// Value returns the raw decoded value for key. Nested objects are
// orderedmap.OrderedMap values.
func (d *Document) Value(key string) (any, bool) {
	return d.om.Get(key)
}

// GetString returns the value for key if it is present and a string.
func (d *Document) GetString(key string) (string, bool) {
	v, ok := d.om.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Set stores a value under key. An existing key keeps its position; a new
// key is appended after all existing keys.
func (d *Document) Set(key string, value any) {
	d.om.Set(key, value)
}

// Delete removes key if present.
func (d *Document) Delete(key string) {
	d.om.Delete(key)
}

// Keys returns the document's keys in their current order.
func (d *Document) Keys() []string {
	return d.om.Keys()
}

// Encode serializes the document: 2-space indentation, HTML escaping off,
// single trailing newline.
func (d *Document) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d.om); err != nil {
		return nil, fmt.Errorf("serialize manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// Changed reports whether the serialized document differs from the bytes
// originally read from disk.
func (d *Document) Changed() (bool, error) {
	out, err := d.Encode()
	if err != nil {
		return false, err
	}
	return !bytes.Equal(out, d.raw), nil
}

// Save writes the document back to its file in a single write call, skipping
// the write entirely when the serialized output is byte-identical to what was
// read. Returns whether a write happened.
func (d *Document) Save() (bool, error) {
	if d.path == "" {
		return false, fmt.Errorf("manifest document has no backing file")
	}
	out, err := d.Encode()
	if err != nil {
		return false, issue.NewPackageError(err, "serialize manifest", filepath.Dir(d.path))
	}
	if bytes.Equal(out, d.raw) {
		return false, nil
	}
	if err := os.WriteFile(d.path, out, 0o644); err != nil {
		return false, issue.NewPackageError(err, "write manifest", filepath.Dir(d.path))
	}
	d.raw = out
	return true, nil
}

// NewObject returns an empty order-preserving JSON object for use as a
// document value (e.g., an exports entry). HTML escaping is off, matching
// Encode.
func NewObject() *orderedmap.OrderedMap {
	om := orderedmap.New()
	om.SetEscapeHTML(false)
	return om
}

// EncodeObject serializes a standalone ordered object with the same settings
// as Document.Encode. Used for generated manifests such as proxy packages.
func EncodeObject(om *orderedmap.OrderedMap) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(om); err != nil {
		return nil, fmt.Errorf("serialize object: %w", err)
	}
	return buf.Bytes(), nil
}
