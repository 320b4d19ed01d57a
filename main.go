// SPDX-License-Identifier: MIT
package main

import "specgram/cmd"

func main() {
	cmd.Execute()
}
