// Command ghlog-lint runs static analysis over a Go tree.
//
// Usage:
//
//	ghlog-lint ./...
//
// It is the external command invoked by the default pipeline's lint
// stage; exit code 0 means the tree is clean.
package main

import (
	"github.com/nbr23/github-log/pkg/lint"
	"golang.org/x/tools/go/analysis/singlechecker"
)

func main() {
	singlechecker.Main(lint.Analyzer)
}
