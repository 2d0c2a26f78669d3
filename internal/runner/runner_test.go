package runner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbr23/github-log/internal/config"
	"github.com/nbr23/github-log/internal/domain"
)

const repoURL = "git@github.com:nbr23/github-log.git"

func testPipeline() *domain.Pipeline {
	return &domain.Pipeline{
		Name:   "default",
		Target: "github.com/nbr23/github-log",
		Stages: []domain.Stage{
			{Name: "checkout", Kind: domain.StageKindCheckout},
			{Name: "lint", Kind: domain.StageKindCommand, Command: "ghlog-lint ./..."},
			{Name: "sync", Kind: domain.StageKindSync, Branch: "main"},
		},
	}
}

func testAppConfig() *config.Config {
	return &config.Config{
		RepoURL: repoURL,
		Mirrors: []config.Mirror{
			{Name: "backup", URL: "git@mirror.example.com:nbr23/github-log.git"},
		},
	}
}

func newTestRunner(git *FakeGit, shell *FakeShell, store *MemStorage) *Runner {
	cfg := DefaultConfig()
	cfg.LeasePoll = 5 * time.Millisecond
	return New(testPipeline(), store, git, shell, testAppConfig(), cfg, nil)
}

func stageStatus(t *testing.T, run *domain.Run, name string) domain.StageStatus {
	t.Helper()
	sr := run.Stage(name)
	require.NotNil(t, sr, "stage %s missing from run", name)
	return sr.Status
}

func TestAllStagesRunInOrderOnMain(t *testing.T) {
	git := &FakeGit{Commit: "abc123"}
	shell := &FakeShell{}
	r := newTestRunner(git, shell, NewMemStorage())

	run, err := r.Execute(context.Background(), "main")
	require.NoError(t, err)

	assert.Equal(t, domain.RunStateSucceeded, run.State)
	assert.Equal(t, "abc123", run.Commit)
	assert.Equal(t, domain.StageStatusSucceeded, stageStatus(t, run, "checkout"))
	assert.Equal(t, domain.StageStatusSucceeded, stageStatus(t, run, "lint"))
	assert.Equal(t, domain.StageStatusSucceeded, stageStatus(t, run, "sync"))

	// Checkout happens before the mirror push.
	require.Len(t, git.Calls, 2)
	assert.Equal(t, "checkout "+repoURL+" main", git.Calls[0])
	assert.Equal(t, "push git@mirror.example.com:nbr23/github-log.git main", git.Calls[1])
	assert.Equal(t, []string{"ghlog-lint ./..."}, shell.Commands)
}

func TestSyncSkippedOffMain(t *testing.T) {
	git := &FakeGit{}
	shell := &FakeShell{}
	r := newTestRunner(git, shell, NewMemStorage())

	run, err := r.Execute(context.Background(), "feature/x")
	require.NoError(t, err)

	assert.Equal(t, domain.RunStateSucceeded, run.State)
	assert.Equal(t, domain.StageStatusSucceeded, stageStatus(t, run, "checkout"))
	assert.Equal(t, domain.StageStatusSucceeded, stageStatus(t, run, "lint"))
	assert.Equal(t, domain.StageStatusSkipped, stageStatus(t, run, "sync"))
	assert.Contains(t, run.Stage("sync").SkipReason, "guard")

	for _, call := range git.Calls {
		assert.NotContains(t, call, "push", "no mirror push off main")
	}
}

func TestLintFailureBlocksSync(t *testing.T) {
	git := &FakeGit{}
	shell := &FakeShell{
		Results: map[string]CommandResult{
			"ghlog-lint ./...": {ExitCode: 1, Output: "a.go:1: exec.Command cannot be cancelled"},
		},
	}
	r := newTestRunner(git, shell, NewMemStorage())

	run, err := r.Execute(context.Background(), "main")
	require.NoError(t, err)

	assert.Equal(t, domain.RunStateFailed, run.State)
	assert.Contains(t, run.Error, "lint")
	assert.Equal(t, domain.StageStatusFailed, stageStatus(t, run, "lint"))
	assert.Equal(t, 1, run.Stage("lint").ExitCode)
	assert.Equal(t, domain.StageStatusSkipped, stageStatus(t, run, "sync"))
	assert.Equal(t, "earlier stage failed", run.Stage("sync").SkipReason)

	require.Len(t, git.Calls, 1, "no push after a failed lint")
}

func TestCheckoutFailureStopsPipeline(t *testing.T) {
	git := &FakeGit{CheckoutErr: assert.AnError}
	shell := &FakeShell{}
	r := newTestRunner(git, shell, NewMemStorage())

	run, err := r.Execute(context.Background(), "main")
	require.NoError(t, err)

	assert.Equal(t, domain.RunStateFailed, run.State)
	assert.Equal(t, domain.StageStatusFailed, stageStatus(t, run, "checkout"))
	assert.Equal(t, domain.StageStatusSkipped, stageStatus(t, run, "lint"))
	assert.Equal(t, domain.StageStatusSkipped, stageStatus(t, run, "sync"))
	assert.Empty(t, shell.Commands, "lint never executes after a failed checkout")
}

func TestMirrorFailureFailsSyncStage(t *testing.T) {
	git := &FakeGit{PushErr: assert.AnError}
	shell := &FakeShell{}
	r := newTestRunner(git, shell, NewMemStorage())

	run, err := r.Execute(context.Background(), "main")
	require.NoError(t, err)

	assert.Equal(t, domain.RunStateFailed, run.State)
	assert.Equal(t, domain.StageStatusFailed, stageStatus(t, run, "sync"))
	assert.Contains(t, run.Stage("sync").Log, "backup")
}

func TestRunIsPersisted(t *testing.T) {
	store := NewMemStorage()
	r := newTestRunner(&FakeGit{}, &FakeShell{}, store)

	run, err := r.Execute(context.Background(), "main")
	require.NoError(t, err)

	stored := store.Run(run.ID)
	require.NotNil(t, stored)
	assert.Equal(t, domain.RunStateSucceeded, stored.State)
	assert.Len(t, stored.Stages, 3)
}

// Two concurrent triggers for the same target must not overlap: the
// second waits on the lease until the first finishes.
func TestConcurrentRunsDoNotOverlap(t *testing.T) {
	store := NewMemStorage()
	git := &FakeGit{}
	shell := &slowShell{delay: 30 * time.Millisecond}

	cfg := DefaultConfig()
	cfg.LeasePoll = 5 * time.Millisecond
	r := New(testPipeline(), store, git, shell, testAppConfig(), cfg, nil)

	var wg sync.WaitGroup
	runs := make([]*domain.Run, 2)
	for i := 0; i < 2; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			run, err := r.Execute(context.Background(), "main")
			require.NoError(t, err)
			runs[i] = run
		}()
	}
	wg.Wait()

	first, second := runs[0], runs[1]
	if second.StartedAt.Before(*first.StartedAt) {
		first, second = second, first
	}
	require.NotNil(t, first.FinishedAt)
	require.NotNil(t, second.StartedAt)
	assert.False(t, second.StartedAt.Before(*first.FinishedAt),
		"second run started at %v before first finished at %v",
		second.StartedAt, first.FinishedAt)
}

// slowShell makes stages take long enough that overlapping runs would
// be observable.
type slowShell struct {
	delay time.Duration
}

func (s *slowShell) Run(ctx context.Context, spec CommandSpec) (*CommandResult, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &CommandResult{ExitCode: 0, Output: "ok"}, nil
}

func TestCancelledContextCancelsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewMemStorage()
	r := newTestRunner(&FakeGit{}, &FakeShell{}, store)

	run, err := r.Execute(ctx, "main")
	require.Error(t, err)
	require.NotNil(t, run)
	assert.Equal(t, domain.RunStateCancelled, store.Run(run.ID).State)
}

func TestEmptyBranchRejected(t *testing.T) {
	r := newTestRunner(&FakeGit{}, &FakeShell{}, NewMemStorage())
	_, err := r.Execute(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
