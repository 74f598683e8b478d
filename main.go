// CodeSlim - dependency-aware source slimmer for Python corpora.
//
// CodeSlim parses a Python project from its entry files, builds the
// import graph, prunes definitions nothing depends on, and emits a
// slimmed copy of the corpus.
package main

import (
	"fmt"
	"os"

	"github.com/Asthestarsfalll/codeslim-go/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
