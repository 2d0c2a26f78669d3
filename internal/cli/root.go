// Package cli implements the command-line interface for github-log.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nbr23/github-log/internal/config"
	"github.com/nbr23/github-log/internal/storage/sqlite"
)

// cmdContext holds common resources for CLI commands.
type cmdContext struct {
	Config *config.Config
	Store  *sqlite.SQLiteStorage
}

// Close releases resources held by cmdContext.
func (c *cmdContext) Close() {
	if c.Store != nil {
		c.Store.Close()
	}
}

// initContext loads config and opens the run-history store.
func initContext(cmd *cobra.Command) *cmdContext {
	cfg, err := config.Load()
	if err != nil {
		exitError("%v", err)
	}

	st, err := sqlite.New(cfg.DatabasePath())
	if err != nil {
		exitError("failed to open store: %v", err)
	}
	if err := st.Migrate(cmd.Context()); err != nil {
		st.Close()
		exitError("failed to run migrations: %v", err)
	}

	return &cmdContext{Config: cfg, Store: st}
}

var rootCmd = &cobra.Command{
	Use:   "github-log",
	Short: "GitHub activity log and repository pipeline",
	Long: `github-log fetches a user's GitHub activity for a given day and runs
the repository pipeline: checkout, lint, and a branch-guarded sync of
the main branch to configured mirrors.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(activityCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// exitError prints an error and exits.
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// shortID returns first 8 characters of an ID.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
