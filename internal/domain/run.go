package domain

import (
	"fmt"
	"time"

	"github.com/nbr23/github-log/pkg/id"
)

// RunState describes the lifecycle of a pipeline run.
type RunState int

const (
	RunStateUnknown   RunState = 0
	RunStatePending   RunState = 10 // Created, waiting on the target lease
	RunStateRunning   RunState = 20 // Stages executing
	RunStateSucceeded RunState = 30 // All attempted stages passed
	RunStateFailed    RunState = 40 // A stage failed
	RunStateCancelled RunState = 50 // Aborted before completion
)

func (s RunState) String() string {
	switch s {
	case RunStatePending:
		return "PENDING"
	case RunStateRunning:
		return "RUNNING"
	case RunStateSucceeded:
		return "SUCCEEDED"
	case RunStateFailed:
		return "FAILED"
	case RunStateCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// IsFinal returns true if the run is in a terminal state.
func (s RunState) IsFinal() bool {
	return s == RunStateSucceeded || s == RunStateFailed || s == RunStateCancelled
}

// ValidRunStateTransition checks if a run state transition is allowed.
// Valid transitions: PENDING -> RUNNING -> {SUCCEEDED, FAILED, CANCELLED};
// PENDING may also be cancelled while waiting on the lease.
func ValidRunStateTransition(from, to RunState) bool {
	switch from {
	case RunStatePending:
		return to == RunStateRunning || to == RunStateCancelled
	case RunStateRunning:
		return to.IsFinal()
	case RunStateSucceeded, RunStateFailed, RunStateCancelled:
		return false
	default:
		return to == RunStatePending
	}
}

// StageStatus describes the outcome of a single stage within a run.
type StageStatus int

const (
	StageStatusUnknown   StageStatus = 0
	StageStatusPending   StageStatus = 10 // Not yet reached
	StageStatusRunning   StageStatus = 20 // Currently executing
	StageStatusSucceeded StageStatus = 30 // External call exited zero
	StageStatusFailed    StageStatus = 40 // External call exited nonzero
	StageStatusSkipped   StageStatus = 50 // Guard false, or earlier stage failed
)

func (s StageStatus) String() string {
	switch s {
	case StageStatusPending:
		return "PENDING"
	case StageStatusRunning:
		return "RUNNING"
	case StageStatusSucceeded:
		return "SUCCEEDED"
	case StageStatusFailed:
		return "FAILED"
	case StageStatusSkipped:
		return "SKIPPED"
	default:
		return "UNKNOWN"
	}
}

// IsFinal returns true if the stage result is in a terminal status.
func (s StageStatus) IsFinal() bool {
	return s == StageStatusSucceeded || s == StageStatusFailed || s == StageStatusSkipped
}

// StageResult records one stage's execution within a run.
type StageResult struct {
	Name       string
	Kind       StageKind
	Status     StageStatus
	ExitCode   int
	Log        string // combined stdout/stderr of the external call
	SkipReason string // set when Status == SKIPPED
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// Duration returns the wall time the stage spent executing, or 0.
func (r *StageResult) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// Run is a single invocation of a pipeline against a branch.
type Run struct {
	ID         string
	Target     string
	Branch     string
	Commit     string // resolved HEAD after checkout, if known
	State      RunState
	Error      string // failure summary when State == FAILED
	Stages     []StageResult
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// NewRun creates a pending run for the pipeline's stages. Every stage
// starts as PENDING so the history always shows the full plan.
func NewRun(p *Pipeline, branch string) *Run {
	stages := make([]StageResult, len(p.Stages))
	for i, st := range p.Stages {
		stages[i] = StageResult{Name: st.Name, Kind: st.Kind, Status: StageStatusPending}
	}
	return &Run{
		ID:        id.Generate(),
		Target:    p.Target,
		Branch:    branch,
		State:     RunStatePending,
		Stages:    stages,
		CreatedAt: time.Now().UTC(),
	}
}

// SetState transitions the run to a new state.
func (r *Run) SetState(newState RunState) error {
	if !ValidRunStateTransition(r.State, newState) {
		return fmt.Errorf("%w: cannot transition run from %s to %s",
			ErrInvalidState, r.State, newState)
	}
	now := time.Now().UTC()
	switch newState {
	case RunStateRunning:
		r.StartedAt = &now
	case RunStateSucceeded, RunStateFailed, RunStateCancelled:
		r.FinishedAt = &now
	}
	r.State = newState
	return nil
}

// Stage returns the result slot for the named stage, or nil.
func (r *Run) Stage(name string) *StageResult {
	for i := range r.Stages {
		if r.Stages[i].Name == name {
			return &r.Stages[i]
		}
	}
	return nil
}

// MarkStageRunning marks the named stage as executing.
func (r *Run) MarkStageRunning(name string) error {
	sr := r.Stage(name)
	if sr == nil {
		return fmt.Errorf("%w: stage %q", ErrNotFound, name)
	}
	if sr.Status != StageStatusPending {
		return fmt.Errorf("%w: stage %q is %s, not PENDING", ErrInvalidState, name, sr.Status)
	}
	now := time.Now().UTC()
	sr.Status = StageStatusRunning
	sr.StartedAt = &now
	return nil
}

// FinishStage records the outcome of a stage that ran.
func (r *Run) FinishStage(name string, exitCode int, log string) error {
	sr := r.Stage(name)
	if sr == nil {
		return fmt.Errorf("%w: stage %q", ErrNotFound, name)
	}
	if sr.Status != StageStatusRunning {
		return fmt.Errorf("%w: stage %q is %s, not RUNNING", ErrInvalidState, name, sr.Status)
	}
	now := time.Now().UTC()
	sr.ExitCode = exitCode
	sr.Log = log
	sr.FinishedAt = &now
	if exitCode == 0 {
		sr.Status = StageStatusSucceeded
	} else {
		sr.Status = StageStatusFailed
	}
	return nil
}

// SkipStage records a stage that was never attempted.
func (r *Run) SkipStage(name, reason string) error {
	sr := r.Stage(name)
	if sr == nil {
		return fmt.Errorf("%w: stage %q", ErrNotFound, name)
	}
	if sr.Status.IsFinal() {
		return fmt.Errorf("%w: stage %q already %s", ErrInvalidState, name, sr.Status)
	}
	sr.Status = StageStatusSkipped
	sr.SkipReason = reason
	return nil
}

// FailedStage returns the first failed stage result, or nil.
func (r *Run) FailedStage() *StageResult {
	for i := range r.Stages {
		if r.Stages[i].Status == StageStatusFailed {
			return &r.Stages[i]
		}
	}
	return nil
}
