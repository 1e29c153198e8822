// Command modeclock runs WebAssembly workloads on a tiered engine and reports
// how much time each thread spent interpreted and compiled.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
