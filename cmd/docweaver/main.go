// Command docweaver generates grounded Markdown documentation for a software
// repository. It clones or opens a repo, chunks and indexes its files, and
// writes citation-constrained sections using an LLM.
package main

import (
	"fmt"
	"os"

	"github.com/docweaver/docweaver-go/cmd/docweaver/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
