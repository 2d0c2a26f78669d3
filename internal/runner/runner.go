// Package runner executes pipelines: sequential stages, branch guards,
// abort on first failure, one run in flight per target.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nbr23/github-log/internal/config"
	"github.com/nbr23/github-log/internal/domain"
	"github.com/nbr23/github-log/internal/gitx"
	"github.com/nbr23/github-log/internal/storage"
)

// Config holds runner tuning knobs.
type Config struct {
	LeaseTTL      time.Duration // how long a run may hold the target lease
	LeasePoll     time.Duration // how often a waiting run retries acquisition
	MirrorWorkers int           // parallel pushes during the sync stage
}

// DefaultConfig returns reasonable defaults.
func DefaultConfig() Config {
	return Config{
		LeaseTTL:      30 * time.Minute,
		LeasePoll:     2 * time.Second,
		MirrorWorkers: 4,
	}
}

// Runner drives a pipeline to completion and records the run.
type Runner struct {
	pipeline *domain.Pipeline
	store    storage.Storage
	git      gitx.Client
	shell    CommandRunner
	repoURL  string
	workDir  string
	mirrors  []config.Mirror
	cfg      Config
	logger   *slog.Logger
}

// New creates a Runner for the given pipeline.
func New(p *domain.Pipeline, store storage.Storage, git gitx.Client, shell CommandRunner,
	appCfg *config.Config, cfg Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		pipeline: p,
		store:    store,
		git:      git,
		shell:    shell,
		repoURL:  appCfg.RepoURL,
		workDir:  appCfg.WorkPath(),
		mirrors:  appCfg.Mirrors,
		cfg:      cfg,
		logger:   logger,
	}
}

// Execute runs the pipeline for branch. The returned run is terminal;
// a run that failed is not an error from Execute's point of view, only
// infrastructure problems are.
func (r *Runner) Execute(ctx context.Context, branch string) (*domain.Run, error) {
	if branch == "" {
		return nil, fmt.Errorf("%w: branch is required", domain.ErrInvalidArgument)
	}

	run := domain.NewRun(r.pipeline, branch)
	if err := r.createRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	if err := r.acquireLease(ctx, run); err != nil {
		run.Error = err.Error()
		_ = run.SetState(domain.RunStateCancelled)
		_ = r.saveRun(context.WithoutCancel(ctx), run)
		return run, err
	}
	defer r.releaseLease(context.WithoutCancel(ctx), run)

	if err := run.SetState(domain.RunStateRunning); err != nil {
		return nil, err
	}
	if err := r.saveRun(ctx, run); err != nil {
		return nil, err
	}

	r.logger.Info("run started", "run", run.ID, "target", run.Target, "branch", branch)

	failed := false
	for i := range r.pipeline.Stages {
		stage := &r.pipeline.Stages[i]

		if failed {
			_ = run.SkipStage(stage.Name, "earlier stage failed")
			continue
		}
		if !stage.ShouldRun(branch) {
			r.logger.Info("stage skipped", "run", run.ID, "stage", stage.Name,
				"guard", stage.Branch, "branch", branch)
			_ = run.SkipStage(stage.Name,
				fmt.Sprintf("branch %q does not match guard %q", branch, stage.Branch))
			_ = r.saveRun(ctx, run)
			continue
		}

		if err := r.runStage(ctx, run, stage); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				run.Error = err.Error()
				_ = run.SetState(domain.RunStateCancelled)
				_ = r.saveRun(context.WithoutCancel(ctx), run)
				return run, err
			}
			return nil, err
		}

		if sr := run.Stage(stage.Name); sr != nil && sr.Status == domain.StageStatusFailed {
			r.logger.Warn("stage failed", "run", run.ID, "stage", stage.Name, "exit", sr.ExitCode)
			failed = true
		}
	}

	if failed {
		if sr := run.FailedStage(); sr != nil {
			run.Error = fmt.Sprintf("stage %s failed with exit code %d", sr.Name, sr.ExitCode)
		}
		_ = run.SetState(domain.RunStateFailed)
	} else {
		_ = run.SetState(domain.RunStateSucceeded)
	}
	if err := r.saveRun(context.WithoutCancel(ctx), run); err != nil {
		return nil, err
	}

	r.logger.Info("run finished", "run", run.ID, "state", run.State.String())
	return run, nil
}

// runStage executes one stage and records its result on the run.
func (r *Runner) runStage(ctx context.Context, run *domain.Run, stage *domain.Stage) error {
	if err := run.MarkStageRunning(stage.Name); err != nil {
		return err
	}
	if err := r.saveRun(ctx, run); err != nil {
		return err
	}
	r.logger.Info("stage started", "run", run.ID, "stage", stage.Name, "kind", string(stage.Kind))

	stageCtx := ctx
	if stage.Timeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, stage.Timeout)
		defer cancel()
	}

	var exitCode int
	var log string
	switch stage.Kind {
	case domain.StageKindCheckout:
		exitCode, log = r.checkout(stageCtx, run)
	case domain.StageKindCommand:
		res, err := r.shell.Run(stageCtx, CommandSpec{
			Command:     stage.Command,
			Dir:         r.workDir,
			Environment: r.stageEnv(run, stage),
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			exitCode, log = 1, err.Error()
		} else {
			exitCode, log = res.ExitCode, res.Output
		}
	case domain.StageKindSync:
		exitCode, log = r.sync(stageCtx, run.Branch)
	default:
		exitCode, log = 1, fmt.Sprintf("unknown stage kind %q", stage.Kind)
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	if err := run.FinishStage(stage.Name, exitCode, log); err != nil {
		return err
	}
	return r.saveRun(ctx, run)
}

// checkout brings the working directory to the branch tip and resolves
// the run commit.
func (r *Runner) checkout(ctx context.Context, run *domain.Run) (int, string) {
	if err := r.git.Checkout(ctx, r.repoURL, run.Branch); err != nil {
		return 1, err.Error()
	}
	head, err := r.git.Head(ctx)
	if err != nil {
		return 1, err.Error()
	}
	run.Commit = head
	return 0, fmt.Sprintf("checked out %s at %s", run.Branch, head)
}

// sync pushes the branch to every configured mirror, bounded-parallel.
// Any single mirror failure fails the stage.
func (r *Runner) sync(ctx context.Context, branch string) (int, string) {
	if len(r.mirrors) == 0 {
		return 0, "no mirrors configured"
	}

	var mu strings.Builder
	lines := make([]string, len(r.mirrors))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.MirrorWorkers)
	for i, m := range r.mirrors {
		i, m := i, m
		g.Go(func() error {
			if err := r.git.PushBranch(gctx, m.URL, branch); err != nil {
				lines[i] = fmt.Sprintf("mirror %s: %v", m.Name, err)
				return fmt.Errorf("mirror %s: %w", m.Name, err)
			}
			lines[i] = fmt.Sprintf("mirror %s: pushed %s", m.Name, branch)
			return nil
		})
	}
	err := g.Wait()

	for _, l := range lines {
		if l != "" {
			mu.WriteString(l)
			mu.WriteString("\n")
		}
	}
	if err != nil {
		return 1, mu.String()
	}
	return 0, mu.String()
}

func (r *Runner) stageEnv(run *domain.Run, stage *domain.Stage) map[string]string {
	env := map[string]string{
		"GHLOG_RUN_ID": run.ID,
		"GHLOG_BRANCH": run.Branch,
		"GHLOG_COMMIT": run.Commit,
	}
	for k, v := range stage.Environment {
		env[k] = v
	}
	return env
}

// acquireLease blocks until the run holds the target lease or ctx ends.
// Concurrent triggers for the same target therefore queue rather than
// overlap.
func (r *Runner) acquireLease(ctx context.Context, run *domain.Run) error {
	for {
		uow, err := r.store.Begin(ctx)
		if err != nil {
			return err
		}
		err = uow.Leases().Acquire(ctx, run.Target, run.ID, r.cfg.LeaseTTL)
		if err == nil {
			if err := uow.Commit(); err != nil {
				return err
			}
			return nil
		}
		_ = uow.Rollback()

		if !errors.Is(err, domain.ErrLeaseHeld) {
			return err
		}

		r.logger.Debug("waiting on lease", "run", run.ID, "target", run.Target)
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for lease on %s: %w", run.Target, ctx.Err())
		case <-time.After(r.cfg.LeasePoll):
		}
	}
}

func (r *Runner) releaseLease(ctx context.Context, run *domain.Run) {
	uow, err := r.store.Begin(ctx)
	if err != nil {
		r.logger.Error("release lease", "run", run.ID, "error", err)
		return
	}
	if err := uow.Leases().Release(ctx, run.Target, run.ID); err != nil {
		_ = uow.Rollback()
		r.logger.Error("release lease", "run", run.ID, "error", err)
		return
	}
	if err := uow.Commit(); err != nil {
		r.logger.Error("release lease", "run", run.ID, "error", err)
	}
}

func (r *Runner) createRun(ctx context.Context, run *domain.Run) error {
	uow, err := r.store.Begin(ctx)
	if err != nil {
		return err
	}
	if err := uow.Runs().Create(ctx, run); err != nil {
		_ = uow.Rollback()
		return err
	}
	return uow.Commit()
}

func (r *Runner) saveRun(ctx context.Context, run *domain.Run) error {
	uow, err := r.store.Begin(ctx)
	if err != nil {
		return err
	}
	if err := uow.Runs().Update(ctx, run); err != nil {
		_ = uow.Rollback()
		return err
	}
	return uow.Commit()
}
