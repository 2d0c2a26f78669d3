// Package pipeline loads pipeline definitions from YAML files.
package pipeline

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nbr23/github-log/internal/domain"
)

// DefaultFile is the pipeline file looked up when none is configured.
const DefaultFile = ".ghlog.yml"

// file mirrors the YAML layout of a pipeline definition.
type file struct {
	Name   string      `yaml:"name"`
	Target string      `yaml:"target"`
	Stages []stageNode `yaml:"stages"`
}

type stageNode struct {
	Name        string            `yaml:"name"`
	Kind        string            `yaml:"kind"`
	Command     string            `yaml:"command"`
	Environment map[string]string `yaml:"environment"`
	Branch      string            `yaml:"branch"`
	Timeout     string            `yaml:"timeout"`
}

// Load reads and validates a pipeline definition from path.
func Load(path string) (*domain.Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a pipeline definition.
func Parse(data []byte) (*domain.Pipeline, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPipeline, err)
	}

	p := &domain.Pipeline{
		Name:   f.Name,
		Target: f.Target,
		Stages: make([]domain.Stage, 0, len(f.Stages)),
	}
	for _, sn := range f.Stages {
		st := domain.Stage{
			Name:        sn.Name,
			Kind:        domain.StageKind(sn.Kind),
			Command:     sn.Command,
			Environment: sn.Environment,
			Branch:      sn.Branch,
		}
		// Bare stages default to command kind when a command is given.
		if sn.Kind == "" && sn.Command != "" {
			st.Kind = domain.StageKindCommand
		}
		if sn.Timeout != "" {
			d, err := time.ParseDuration(sn.Timeout)
			if err != nil {
				return nil, fmt.Errorf("%w: stage %q timeout: %v", domain.ErrInvalidPipeline, sn.Name, err)
			}
			st.Timeout = d
		}
		p.Stages = append(p.Stages, st)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Default returns the built-in pipeline: checkout, lint, and a sync
// stage guarded to the main branch.
func Default(target string) *domain.Pipeline {
	return &domain.Pipeline{
		Name:   "default",
		Target: target,
		Stages: []domain.Stage{
			{Name: "checkout", Kind: domain.StageKindCheckout},
			{Name: "lint", Kind: domain.StageKindCommand, Command: "ghlog-lint ./..."},
			{Name: "sync", Kind: domain.StageKindSync, Branch: "main"},
		},
	}
}
