// SPDX-License-Identifier: MPL-2.0

// tsforge is a build orchestrator for JS/TS library packages.
package main

import cmd "tsforge/cmd/tsforge"

func main() {
	cmd.Execute()
}
