// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import "github.com/keyfold-org/keyfold/cmd"

func main() {
	cmd.Execute()
}
