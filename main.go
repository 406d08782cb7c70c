// SPDX-License-Identifier: MPL-2.0

// mrpack is a CLI for exporting local game instances as Modrinth
// modpacks.
package main

import cmd "mrpack-cli/cmd/mrpack"

func main() {
	cmd.Execute()
}
