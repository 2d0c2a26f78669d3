package storage

import (
	"context"
	"time"

	"github.com/nbr23/github-log/internal/domain"
)

// ListOptions provides filtering options for list operations.
type ListOptions struct {
	// Target filters runs by pipeline target (empty = all).
	Target string

	// States to filter by (empty = all).
	States []domain.RunState

	// Pagination
	Limit  int
	Offset int
}

// RunRepository provides access to pipeline run storage.
type RunRepository interface {
	// Create creates a new Run with its stage results.
	Create(ctx context.Context, run *domain.Run) error

	// Get retrieves a Run by ID.
	Get(ctx context.Context, id string) (*domain.Run, error)

	// Update persists the run's state and stage results.
	Update(ctx context.Context, run *domain.Run) error

	// List lists runs, newest first, with optional filtering.
	List(ctx context.Context, opts ListOptions) ([]*domain.Run, error)

	// Delete deletes a Run by ID.
	Delete(ctx context.Context, id string) error
}

// LeaseRepository coordinates single-flight execution per target.
type LeaseRepository interface {
	// Acquire takes the lease for target on behalf of holder. Returns
	// domain.ErrLeaseHeld if another live holder has it. An expired
	// lease is stolen.
	Acquire(ctx context.Context, target, holder string, ttl time.Duration) error

	// Release frees the lease if holder still owns it.
	Release(ctx context.Context, target, holder string) error

	// Holder returns the current live holder of the target lease, or
	// "" when the lease is free or expired.
	Holder(ctx context.Context, target string) (string, error)
}

// UnitOfWork provides transactional access to all repositories.
type UnitOfWork interface {
	Runs() RunRepository
	Leases() LeaseRepository

	// Transaction control
	Commit() error
	Rollback() error
}

// Storage provides the main entry point for storage operations.
type Storage interface {
	// Begin starts a new transaction and returns a UnitOfWork.
	Begin(ctx context.Context) (UnitOfWork, error)

	// Close closes the storage connection.
	Close() error

	// Migrate runs database migrations.
	Migrate(ctx context.Context) error
}
