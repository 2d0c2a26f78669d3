// Package lint provides the static analysis check run by the default
// pipeline's lint stage.
//
// The analyzer detects subprocess invocations that cannot be cancelled:
//   - exec.Command(...) instead of exec.CommandContext(ctx, ...)
//   - exec.CommandContext(context.TODO(), ...) placeholders
//
// Usage:
//
//	go install github.com/nbr23/github-log/cmd/ghlog-lint@latest
//	ghlog-lint ./...
package lint

import (
	"go/ast"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// Analyzer is the ctxexec analyzer.
var Analyzer = &analysis.Analyzer{
	Name:     "ctxexec",
	Doc:      "checks that subprocesses are started with a cancellable context",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	inspect := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{(*ast.CallExpr)(nil)}

	inspect.Preorder(nodeFilter, func(n ast.Node) {
		call := n.(*ast.CallExpr)

		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			return
		}
		pkg, ok := sel.X.(*ast.Ident)
		if !ok || pkg.Name != "exec" {
			return
		}

		switch sel.Sel.Name {
		case "Command":
			pass.Reportf(call.Pos(),
				"exec.Command cannot be cancelled - use exec.CommandContext")
		case "CommandContext":
			checkContextArg(pass, call)
		}
	})

	return nil, nil
}

// checkContextArg reports placeholder contexts passed to CommandContext.
func checkContextArg(pass *analysis.Pass, call *ast.CallExpr) {
	if len(call.Args) == 0 {
		return
	}
	inner, ok := call.Args[0].(*ast.CallExpr)
	if !ok {
		return
	}
	sel, ok := inner.Fun.(*ast.SelectorExpr)
	if !ok {
		return
	}
	pkg, ok := sel.X.(*ast.Ident)
	if !ok || pkg.Name != "context" {
		return
	}
	if sel.Sel.Name == "TODO" {
		pass.Reportf(inner.Pos(),
			"context.TODO() passed to exec.CommandContext - plumb a real context")
	}
}
