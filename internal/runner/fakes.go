package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nbr23/github-log/internal/domain"
	"github.com/nbr23/github-log/internal/storage"
)

// Fakes for testing the runner without git, a shell, or SQLite.

// FakeGit implements gitx.Client with canned responses.
type FakeGit struct {
	mu sync.Mutex

	Branch      string
	Commit      string
	CheckoutErr error
	PushErr     error

	// Calls records operations in order: "checkout <url> <branch>",
	// "push <url> <branch>".
	Calls []string
}

func (g *FakeGit) record(format string, args ...any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls = append(g.Calls, fmt.Sprintf(format, args...))
}

func (g *FakeGit) CurrentBranch(ctx context.Context) (string, error) {
	return g.Branch, nil
}

func (g *FakeGit) Head(ctx context.Context) (string, error) {
	if g.Commit == "" {
		return "deadbeef", nil
	}
	return g.Commit, nil
}

func (g *FakeGit) Checkout(ctx context.Context, remoteURL, branch string) error {
	g.record("checkout %s %s", remoteURL, branch)
	return g.CheckoutErr
}

func (g *FakeGit) PushBranch(ctx context.Context, remoteURL, branch string) error {
	g.record("push %s %s", remoteURL, branch)
	return g.PushErr
}

// FakeShell implements CommandRunner with per-command canned results.
type FakeShell struct {
	mu sync.Mutex

	// Results maps command strings to results. Commands not present
	// succeed with exit 0.
	Results map[string]CommandResult

	// Err, when set, is returned for every command.
	Err error

	// Commands records every command executed, in order.
	Commands []string
}

func (s *FakeShell) Run(ctx context.Context, spec CommandSpec) (*CommandResult, error) {
	s.mu.Lock()
	s.Commands = append(s.Commands, spec.Command)
	s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}
	if res, ok := s.Results[spec.Command]; ok {
		return &res, nil
	}
	return &CommandResult{ExitCode: 0, Output: "ok"}, nil
}

// MemStorage is an in-memory storage.Storage for tests. Transactions
// are not isolated; Commit and Rollback are no-ops.
type MemStorage struct {
	mu     sync.Mutex
	runs   map[string]*domain.Run
	leases map[string]memLease
}

type memLease struct {
	holder  string
	expires time.Time
}

// NewMemStorage creates an empty in-memory storage.
func NewMemStorage() *MemStorage {
	return &MemStorage{
		runs:   make(map[string]*domain.Run),
		leases: make(map[string]memLease),
	}
}

func (s *MemStorage) Begin(ctx context.Context) (storage.UnitOfWork, error) {
	return &memUow{s: s}, nil
}

func (s *MemStorage) Close() error                      { return nil }
func (s *MemStorage) Migrate(ctx context.Context) error { return nil }

// Run returns a stored run by ID for assertions.
func (s *MemStorage) Run(id string) *domain.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id]
}

type memUow struct {
	s *MemStorage
}

func (u *memUow) Runs() storage.RunRepository     { return &memRunRepo{s: u.s} }
func (u *memUow) Leases() storage.LeaseRepository { return &memLeaseRepo{s: u.s} }
func (u *memUow) Commit() error                   { return nil }
func (u *memUow) Rollback() error                 { return nil }

type memRunRepo struct {
	s *MemStorage
}

func copyRun(run *domain.Run) *domain.Run {
	cp := *run
	cp.Stages = make([]domain.StageResult, len(run.Stages))
	copy(cp.Stages, run.Stages)
	return &cp
}

func (r *memRunRepo) Create(ctx context.Context, run *domain.Run) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.runs[run.ID]; ok {
		return domain.ErrAlreadyExists
	}
	r.s.runs[run.ID] = copyRun(run)
	return nil
}

func (r *memRunRepo) Get(ctx context.Context, id string) (*domain.Run, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	run, ok := r.s.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyRun(run), nil
}

func (r *memRunRepo) Update(ctx context.Context, run *domain.Run) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.runs[run.ID]; !ok {
		return domain.ErrNotFound
	}
	r.s.runs[run.ID] = copyRun(run)
	return nil
}

func (r *memRunRepo) List(ctx context.Context, opts storage.ListOptions) ([]*domain.Run, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Run
	for _, run := range r.s.runs {
		if opts.Target != "" && run.Target != opts.Target {
			continue
		}
		out = append(out, copyRun(run))
	}
	return out, nil
}

func (r *memRunRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.runs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.runs, id)
	return nil
}

type memLeaseRepo struct {
	s *MemStorage
}

func (r *memLeaseRepo) Acquire(ctx context.Context, target, holder string, ttl time.Duration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	if l, ok := r.s.leases[target]; ok && l.holder != holder && l.expires.After(now) {
		return fmt.Errorf("%w: target %q held by %s", domain.ErrLeaseHeld, target, l.holder)
	}
	r.s.leases[target] = memLease{holder: holder, expires: now.Add(ttl)}
	return nil
}

func (r *memLeaseRepo) Release(ctx context.Context, target, holder string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if l, ok := r.s.leases[target]; ok && l.holder == holder {
		delete(r.s.leases, target)
	}
	return nil
}

func (r *memLeaseRepo) Holder(ctx context.Context, target string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.leases[target]
	if !ok || !l.expires.After(time.Now().UTC()) {
		return "", nil
	}
	return l.holder, nil
}
