// The main package for the ltd-dasher executable.
package main

import (
	"github.com/JakeFAU/ltd-dasher/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
