package cli

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nbr23/github-log/internal/domain"
	"github.com/nbr23/github-log/internal/gitx"
	"github.com/nbr23/github-log/internal/pipeline"
	"github.com/nbr23/github-log/internal/runner"
)

var (
	runBranch   string
	runPipeline string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline for a branch",
	Long: `Execute the repository pipeline: checkout, lint, and - on the main
branch only - sync to the configured mirrors.

Stages run strictly in order and the first failure aborts the run.
Only one run per target is in flight at a time; a second invocation
waits for the current one to finish.

Examples:
  github-log run                  Run the pipeline for main
  github-log run -b feature/x     Run for a feature branch (sync skipped)`,
	Run: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runBranch, "branch", "b", "main", "Branch to run the pipeline for")
	runCmd.Flags().StringVar(&runPipeline, "pipeline", "", "Pipeline file (default: .ghlog.yml in the repo root)")
}

func runRun(cmd *cobra.Command, args []string) {
	c := initContext(cmd)
	defer c.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := loadPipeline(c)

	git := gitx.NewExecClient(c.Config.WorkPath())
	r := runner.New(p, c.Store, git, runner.NewShellRunner(), c.Config, runner.DefaultConfig(), nil)

	fmt.Printf("Running pipeline %s for branch %s...\n", p.Name, runBranch)

	run, err := r.Execute(ctx, runBranch)
	if run != nil {
		printRun(run)
	}
	if err != nil {
		exitError("%v", err)
	}
	if run.State != domain.RunStateSucceeded {
		exitError("run %s %s", shortID(run.ID), run.State)
	}
}

// loadPipeline resolves the pipeline definition: explicit flag, the
// repo's .ghlog.yml, or the built-in default.
func loadPipeline(c *cmdContext) *domain.Pipeline {
	path := runPipeline
	if path == "" {
		candidate := filepath.Join(c.Config.WorkPath(), pipeline.DefaultFile)
		if p, err := pipeline.Load(candidate); err == nil {
			return p
		}
		return pipeline.Default(c.Config.RepoURL)
	}

	p, err := pipeline.Load(path)
	if err != nil {
		exitError("%v", err)
	}
	if p.Target == "" {
		p.Target = c.Config.RepoURL
	}
	return p
}

func printRun(run *domain.Run) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	for i := range run.Stages {
		sr := &run.Stages[i]
		switch sr.Status {
		case domain.StageStatusSucceeded:
			green.Printf("  ok   %s", sr.Name)
			if d := sr.Duration(); d > 0 {
				fmt.Printf(" (%s)", d.Round(10*time.Millisecond))
			}
			fmt.Println()
		case domain.StageStatusFailed:
			red.Printf("  FAIL %s (exit %d)\n", sr.Name, sr.ExitCode)
			if sr.Log != "" {
				fmt.Println(indent(sr.Log))
			}
		case domain.StageStatusSkipped:
			yellow.Printf("  skip %s (%s)\n", sr.Name, sr.SkipReason)
		default:
			fmt.Printf("  -    %s (%s)\n", sr.Name, sr.Status)
		}
	}

	switch run.State {
	case domain.RunStateSucceeded:
		green.Printf("Run %s succeeded\n", shortID(run.ID))
	case domain.RunStateFailed:
		red.Printf("Run %s failed: %s\n", shortID(run.ID), run.Error)
	default:
		yellow.Printf("Run %s %s\n", shortID(run.ID), run.State)
	}
}

func indent(s string) string {
	return "       " + strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n       ")
}
