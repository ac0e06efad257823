package main

import (
	"github.com/IBM/igc-x-json-schema/cmd"
)

// main is the entry point; all parsing, configuration and execution is
// handled by the cmd package.
func main() {
	cmd.Execute()
}
