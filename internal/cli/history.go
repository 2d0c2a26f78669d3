package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nbr23/github-log/internal/domain"
	"github.com/nbr23/github-log/internal/storage"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent pipeline runs",
	Run:   runHistory,
}

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a pipeline run in detail",
	Args:  cobra.ExactArgs(1),
	Run:   runShow,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum runs to list")
}

func runHistory(cmd *cobra.Command, args []string) {
	c := initContext(cmd)
	defer c.Close()
	ctx := cmd.Context()

	uow, err := c.Store.Begin(ctx)
	if err != nil {
		exitError("%v", err)
	}
	defer uow.Rollback()

	runs, err := uow.Runs().List(ctx, storage.ListOptions{Limit: historyLimit})
	if err != nil {
		exitError("%v", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return
	}

	for _, run := range runs {
		fmt.Printf("%s  %-9s  %-20s  %s\n",
			shortID(run.ID), stateColor(run.State), run.Branch,
			run.CreatedAt.Local().Format(time.DateTime))
	}
}

func runShow(cmd *cobra.Command, args []string) {
	c := initContext(cmd)
	defer c.Close()
	ctx := cmd.Context()

	uow, err := c.Store.Begin(ctx)
	if err != nil {
		exitError("%v", err)
	}
	defer uow.Rollback()

	run, err := findRun(cmd, uow, args[0])
	if err != nil {
		exitError("%v", err)
	}

	fmt.Printf("Run:     %s\n", run.ID)
	fmt.Printf("Target:  %s\n", run.Target)
	fmt.Printf("Branch:  %s\n", run.Branch)
	if run.Commit != "" {
		fmt.Printf("Commit:  %s\n", run.Commit)
	}
	fmt.Printf("State:   %s\n", stateColor(run.State))
	if run.Error != "" {
		fmt.Printf("Error:   %s\n", run.Error)
	}
	fmt.Println()
	printRun(run)
}

// findRun resolves a run by full or short ID.
func findRun(cmd *cobra.Command, uow storage.UnitOfWork, ref string) (*domain.Run, error) {
	ctx := cmd.Context()

	run, err := uow.Runs().Get(ctx, ref)
	if err == nil {
		return run, nil
	}

	runs, err := uow.Runs().List(ctx, storage.ListOptions{})
	if err != nil {
		return nil, err
	}
	for _, r := range runs {
		if shortID(r.ID) == ref {
			return r, nil
		}
	}
	return nil, fmt.Errorf("no run matching %q", ref)
}

func stateColor(s domain.RunState) string {
	switch s {
	case domain.RunStateSucceeded:
		return color.GreenString(s.String())
	case domain.RunStateFailed:
		return color.RedString(s.String())
	case domain.RunStateRunning, domain.RunStatePending:
		return color.YellowString(s.String())
	default:
		return s.String()
	}
}
