// SPDX-License-Identifier: MPL-2.0

// Package issue defines the two error kinds every tsforge operation reports:
// ConfigError for package layouts that are structurally insufficient or
// ambiguous, and PackageError for operations that failed despite a valid
// configuration. Both carry enough context for user-facing rendering.
package issue

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// ConfigError means the package or source layout cannot support the
	// requested operation: a missing source directory, no derivable build
	// format, a pure-CLI package without an index file. It carries
	// remediation suggestions rendered as a bullet list.
	ConfigError struct {
		// Operation describes what was being attempted (e.g., "derive build plan").
		Operation string

		// Resource identifies the file, directory, or field involved (optional).
		Resource string

		// Suggestions are hints on how to fix the layout (optional).
		Suggestions []string

		// Cause is the underlying error, if any.
		Cause error
	}

	// PackageError means an operation failed even though the configuration
	// was valid: an I/O failure, a JSON parse failure, a non-zero exit from
	// an external tool.
	PackageError struct {
		// Operation describes what was being attempted.
		Operation string

		// PkgPath is the package directory involved (optional).
		PkgPath string

		// Cause is the underlying error, if any.
		Cause error
	}

	// ConfigErrorBuilder constructs ConfigError values incrementally.
	//
	//	return issue.NewConfigError("classify source files").
	//		WithResource(srcDir).
	//		WithSuggestion("Create a 'src' directory with an index file").
	//		Build()
	ConfigErrorBuilder struct {
		err ConfigError
	}
)

// NewConfigError starts a ConfigErrorBuilder for the given operation.
func NewConfigError(operation string) *ConfigErrorBuilder {
	return &ConfigErrorBuilder{err: ConfigError{Operation: operation}}
}

// WithResource sets the file, directory, or field involved.
func (b *ConfigErrorBuilder) WithResource(res string) *ConfigErrorBuilder {
	b.err.Resource = res
	return b
}

// WithSuggestion appends one remediation suggestion. May be called repeatedly.
func (b *ConfigErrorBuilder) WithSuggestion(s string) *ConfigErrorBuilder {
	b.err.Suggestions = append(b.err.Suggestions, s)
	return b
}

// WithSuggestions appends multiple remediation suggestions at once.
func (b *ConfigErrorBuilder) WithSuggestions(s ...string) *ConfigErrorBuilder {
	b.err.Suggestions = append(b.err.Suggestions, s...)
	return b
}

// Wrap records the underlying cause.
func (b *ConfigErrorBuilder) Wrap(err error) *ConfigErrorBuilder {
	b.err.Cause = err
	return b
}

// Build returns the constructed error.
func (b *ConfigErrorBuilder) Build() *ConfigError {
	e := b.err
	return &e
}

// Error implements the error interface with a concise single-line message.
func (e *ConfigError) Error() string {
	var msg strings.Builder
	msg.WriteString("failed to ")
	msg.WriteString(e.Operation)
	if e.Resource != "" {
		msg.WriteString(": ")
		msg.WriteString(e.Resource)
	}
	if e.Cause != nil {
		msg.WriteString(": ")
		msg.WriteString(e.Cause.Error())
	}
	return msg.String()
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Format renders the error for user display. Suggestions are rendered as a
// bullet list; verbose additionally includes the full error chain.
func (e *ConfigError) Format(verbose bool) string {
	var msg strings.Builder
	msg.WriteString(e.Error())
	for _, s := range e.Suggestions {
		msg.WriteString("\n  • ")
		msg.WriteString(s)
	}
	if verbose && e.Cause != nil {
		writeChain(&msg, e.Cause)
	}
	return msg.String()
}

// HasSuggestions reports whether any remediation suggestions are attached.
func (e *ConfigError) HasSuggestions() bool {
	return len(e.Suggestions) > 0
}

// NewPackageError wraps err with operation and package-directory context.
// Returns nil if err is nil.
func NewPackageError(err error, operation, pkgPath string) *PackageError {
	if err == nil {
		return nil
	}
	return &PackageError{Operation: operation, PkgPath: pkgPath, Cause: err}
}

// Error implements the error interface.
func (e *PackageError) Error() string {
	var msg strings.Builder
	msg.WriteString("failed to ")
	msg.WriteString(e.Operation)
	if e.PkgPath != "" {
		msg.WriteString(" for ")
		msg.WriteString(e.PkgPath)
	}
	if e.Cause != nil {
		msg.WriteString(": ")
		msg.WriteString(e.Cause.Error())
	}
	return msg.String()
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *PackageError) Unwrap() error {
	return e.Cause
}

// Format renders the error for user display, with the full chain in verbose mode.
func (e *PackageError) Format(verbose bool) string {
	var msg strings.Builder
	msg.WriteString(e.Error())
	if verbose && e.Cause != nil {
		writeChain(&msg, e.Cause)
	}
	return msg.String()
}

// writeChain appends the numbered unwrap chain of err to msg.
func writeChain(msg *strings.Builder, err error) {
	msg.WriteString("\n\nError chain:")
	depth := 1
	for err != nil {
		fmt.Fprintf(msg, "\n  %d. %s", depth, err.Error())
		err = errors.Unwrap(err)
		depth++
	}
}
