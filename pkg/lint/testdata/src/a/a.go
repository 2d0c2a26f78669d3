// Package a is a test package for the ctxexec analyzer.
package a

import (
	"context"
	"os/exec"
)

// Test cases

func plainCommand() {
	exec.Command("git", "status") // want "exec.Command cannot be cancelled - use exec.CommandContext"
}

func todoContext() {
	exec.CommandContext(context.TODO(), "git", "status") // want `context.TODO\(\) passed to exec.CommandContext - plumb a real context`
}

// Valid cases - should NOT produce warnings

func validCommandContext(ctx context.Context) {
	exec.CommandContext(ctx, "git", "status")
}

func validBackground() {
	exec.CommandContext(context.Background(), "git", "status")
}
