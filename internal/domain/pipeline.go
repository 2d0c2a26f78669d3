package domain

import (
	"fmt"
	"time"
)

// StageKind specifies how a stage is executed.
type StageKind string

const (
	// StageKindCheckout fetches and checks out the triggering ref.
	StageKindCheckout StageKind = "checkout"
	// StageKindCommand runs a shell command; exit code decides pass/fail.
	StageKindCommand StageKind = "command"
	// StageKindSync mirrors the branch to the configured remotes.
	StageKindSync StageKind = "sync"
)

// Valid reports whether the kind is one of the known stage kinds.
func (k StageKind) Valid() bool {
	switch k {
	case StageKindCheckout, StageKindCommand, StageKindSync:
		return true
	default:
		return false
	}
}

// Stage is a named, sequential unit of pipeline execution.
type Stage struct {
	Name        string
	Kind        StageKind
	Command     string            // shell command for StageKindCommand
	Environment map[string]string // extra env for command stages
	Branch      string            // branch guard; empty means always run
	Timeout     time.Duration     // 0 means no stage-level deadline
}

// ShouldRun evaluates the stage's branch guard against the run branch.
func (s *Stage) ShouldRun(branch string) bool {
	return s.Branch == "" || s.Branch == branch
}

// Validate checks that the stage definition is well-formed.
func (s *Stage) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: stage name is required", ErrInvalidPipeline)
	}
	if !s.Kind.Valid() {
		return fmt.Errorf("%w: stage %q has unknown kind %q", ErrInvalidPipeline, s.Name, s.Kind)
	}
	if s.Kind == StageKindCommand && s.Command == "" {
		return fmt.Errorf("%w: command stage %q has no command", ErrInvalidPipeline, s.Name)
	}
	if s.Kind != StageKindCommand && s.Command != "" {
		return fmt.Errorf("%w: stage %q is %s but declares a command", ErrInvalidPipeline, s.Name, s.Kind)
	}
	return nil
}

// Pipeline is an ordered list of stages bound to a target repository.
type Pipeline struct {
	Name   string
	Target string // identity used for single-flight locking
	Stages []Stage
}

// Validate checks the pipeline definition: at least one stage, unique
// stage names, each stage individually valid.
func (p *Pipeline) Validate() error {
	if p.Target == "" {
		return fmt.Errorf("%w: pipeline target is required", ErrInvalidPipeline)
	}
	if len(p.Stages) == 0 {
		return fmt.Errorf("%w: pipeline has no stages", ErrInvalidPipeline)
	}
	seen := make(map[string]bool, len(p.Stages))
	for i := range p.Stages {
		st := &p.Stages[i]
		if err := st.Validate(); err != nil {
			return err
		}
		if seen[st.Name] {
			return fmt.Errorf("%w: duplicate stage name %q", ErrInvalidPipeline, st.Name)
		}
		seen[st.Name] = true
	}
	return nil
}

// StageNamed returns the stage with the given name, or nil.
func (p *Pipeline) StageNamed(name string) *Stage {
	for i := range p.Stages {
		if p.Stages[i].Name == name {
			return &p.Stages[i]
		}
	}
	return nil
}
