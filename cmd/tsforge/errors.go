// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"tsforge/internal/issue"
)

// formatErrorForDisplay formats an error for user display, categorized by
// kind: configuration problems render their suggestions, package failures
// render their context, anything else falls back to the plain message. In
// verbose mode the full error chain is included.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var cfgErr *issue.ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr.Format(verboseMode)
	}
	var pkgErr *issue.PackageError
	if errors.As(err, &pkgErr) {
		return pkgErr.Format(verboseMode)
	}
	return err.Error()
}

// renderError prints a styled error block to w and returns an ExitError
// carrying the appropriate exit code: 2 for configuration problems, 1 for
// everything else.
func renderError(w io.Writer, err error) error {
	var cfgErr *issue.ConfigError
	if errors.As(err, &cfgErr) {
		fmt.Fprintln(w, ErrorStyle.Render("Configuration problem: ")+headline(cfgErr))
		for _, s := range cfgErr.Suggestions {
			fmt.Fprintln(w, suggestionStyle.Render("  • ")+s)
		}
		if verbose && cfgErr.Cause != nil {
			fmt.Fprintln(w, VerboseStyle.Render(chainOf(cfgErr.Cause)))
		} else if cfgErr.Cause != nil {
			fmt.Fprintln(w, SubtitleStyle.Render("  (run with --verbose for the full error chain)"))
		}
		return &ExitError{Code: 2, Err: err}
	}

	var pkgErr *issue.PackageError
	if errors.As(err, &pkgErr) {
		fmt.Fprintln(w, ErrorStyle.Render("Build failure: ")+pkgErr.Error())
		if verbose && pkgErr.Cause != nil {
			fmt.Fprintln(w, VerboseStyle.Render(chainOf(pkgErr.Cause)))
		}
		return &ExitError{Code: 1, Err: err}
	}

	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+err.Error())
	return &ExitError{Code: 1, Err: err}
}

// headline renders the operation and resource of a ConfigError without its
// cause, which gets its own treatment.
func headline(e *issue.ConfigError) string {
	msg := "failed to " + e.Operation
	if e.Resource != "" {
		msg += ": " + PathStyle.Render(e.Resource)
	}
	return msg
}

// chainOf renders the numbered unwrap chain of err.
func chainOf(err error) string {
	var msg strings.Builder
	msg.WriteString("Error chain:")
	depth := 1
	for err != nil {
		fmt.Fprintf(&msg, "\n  %d. %s", depth, err.Error())
		err = errors.Unwrap(err)
		depth++
	}
	return msg.String()
}
