package domain

import (
	"errors"
	"testing"
)

func testPipeline() *Pipeline {
	return &Pipeline{
		Name:   "default",
		Target: "github.com/nbr23/github-log",
		Stages: []Stage{
			{Name: "checkout", Kind: StageKindCheckout},
			{Name: "lint", Kind: StageKindCommand, Command: "ghlog-lint ./..."},
			{Name: "sync", Kind: StageKindSync, Branch: "main"},
		},
	}
}

func TestNewRunPlansAllStages(t *testing.T) {
	run := NewRun(testPipeline(), "main")

	if run.State != RunStatePending {
		t.Errorf("State = %v, want PENDING", run.State)
	}
	if len(run.Stages) != 3 {
		t.Fatalf("len(Stages) = %d, want 3", len(run.Stages))
	}
	for _, sr := range run.Stages {
		if sr.Status != StageStatusPending {
			t.Errorf("stage %s status = %v, want PENDING", sr.Name, sr.Status)
		}
	}
}

func TestRunStateTransitions(t *testing.T) {
	run := NewRun(testPipeline(), "main")

	if err := run.SetState(RunStateSucceeded); err == nil {
		t.Error("PENDING -> SUCCEEDED should be rejected")
	}
	if err := run.SetState(RunStateRunning); err != nil {
		t.Fatalf("PENDING -> RUNNING: %v", err)
	}
	if run.StartedAt == nil {
		t.Error("StartedAt not set on RUNNING")
	}
	if err := run.SetState(RunStateFailed); err != nil {
		t.Fatalf("RUNNING -> FAILED: %v", err)
	}
	if run.FinishedAt == nil {
		t.Error("FinishedAt not set on FAILED")
	}
	if err := run.SetState(RunStateRunning); err == nil {
		t.Error("transition out of terminal state should be rejected")
	}
}

func TestPendingRunCanBeCancelled(t *testing.T) {
	run := NewRun(testPipeline(), "main")
	if err := run.SetState(RunStateCancelled); err != nil {
		t.Fatalf("PENDING -> CANCELLED: %v", err)
	}
}

func TestStageLifecycle(t *testing.T) {
	run := NewRun(testPipeline(), "main")

	if err := run.FinishStage("lint", 0, "out"); err == nil {
		t.Error("finishing a stage that never ran should fail")
	}

	if err := run.MarkStageRunning("lint"); err != nil {
		t.Fatalf("MarkStageRunning: %v", err)
	}
	if err := run.FinishStage("lint", 2, "boom"); err != nil {
		t.Fatalf("FinishStage: %v", err)
	}

	sr := run.Stage("lint")
	if sr.Status != StageStatusFailed {
		t.Errorf("status = %v, want FAILED", sr.Status)
	}
	if sr.ExitCode != 2 {
		t.Errorf("exit code = %d, want 2", sr.ExitCode)
	}
	if run.FailedStage() != sr {
		t.Error("FailedStage() did not return the failed stage")
	}
}

func TestFinishStageZeroExitSucceeds(t *testing.T) {
	run := NewRun(testPipeline(), "main")
	if err := run.MarkStageRunning("checkout"); err != nil {
		t.Fatal(err)
	}
	if err := run.FinishStage("checkout", 0, "ok"); err != nil {
		t.Fatal(err)
	}
	if got := run.Stage("checkout").Status; got != StageStatusSucceeded {
		t.Errorf("status = %v, want SUCCEEDED", got)
	}
}

func TestSkipStage(t *testing.T) {
	run := NewRun(testPipeline(), "dev")

	if err := run.SkipStage("sync", "branch guard"); err != nil {
		t.Fatalf("SkipStage: %v", err)
	}
	sr := run.Stage("sync")
	if sr.Status != StageStatusSkipped {
		t.Errorf("status = %v, want SKIPPED", sr.Status)
	}
	if sr.SkipReason != "branch guard" {
		t.Errorf("SkipReason = %q", sr.SkipReason)
	}

	if err := run.SkipStage("sync", "again"); err == nil {
		t.Error("skipping a terminal stage should fail")
	}
}

func TestStageErrorsOnUnknownStage(t *testing.T) {
	run := NewRun(testPipeline(), "main")
	if err := run.MarkStageRunning("deploy"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestShouldRun(t *testing.T) {
	guarded := Stage{Name: "sync", Kind: StageKindSync, Branch: "main"}
	open := Stage{Name: "lint", Kind: StageKindCommand, Command: "true"}

	if !guarded.ShouldRun("main") {
		t.Error("guarded stage should run on main")
	}
	if guarded.ShouldRun("dev") {
		t.Error("guarded stage should not run on dev")
	}
	if !open.ShouldRun("dev") {
		t.Error("unguarded stage should run on any branch")
	}
}

func TestPipelineValidate(t *testing.T) {
	p := testPipeline()
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	dup := testPipeline()
	dup.Stages[1].Name = "checkout"
	if err := dup.Validate(); !errors.Is(err, ErrInvalidPipeline) {
		t.Errorf("duplicate names: err = %v, want ErrInvalidPipeline", err)
	}

	empty := &Pipeline{Target: "t"}
	if err := empty.Validate(); !errors.Is(err, ErrInvalidPipeline) {
		t.Errorf("no stages: err = %v, want ErrInvalidPipeline", err)
	}

	noCmd := testPipeline()
	noCmd.Stages[1].Command = ""
	if err := noCmd.Validate(); !errors.Is(err, ErrInvalidPipeline) {
		t.Errorf("command stage without command: err = %v, want ErrInvalidPipeline", err)
	}
}
