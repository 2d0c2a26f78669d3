package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nbr23/github-log/internal/domain"
)

type leaseRepo struct {
	tx *sql.Tx
}

// Acquire takes the target lease for holder. An existing lease is
// stolen only when expired; a live lease owned by someone else yields
// domain.ErrLeaseHeld so the caller can wait and retry.
func (r *leaseRepo) Acquire(ctx context.Context, target, holder string, ttl time.Duration) error {
	now := time.Now().UTC()
	expires := now.Add(ttl)

	row := r.tx.QueryRowContext(ctx, `
		SELECT holder, expires_at FROM leases WHERE target = ?
	`, target)

	var current string
	var expiresAt time.Time
	err := row.Scan(&current, &expiresAt)
	switch {
	case err == sql.ErrNoRows:
		_, err = r.tx.ExecContext(ctx, `
			INSERT INTO leases (target, holder, acquired_at, expires_at)
			VALUES (?, ?, ?, ?)
		`, target, holder, now, expires)
		return err
	case err != nil:
		return err
	}

	if current != holder && expiresAt.After(now) {
		return fmt.Errorf("%w: target %q held by %s", domain.ErrLeaseHeld, target, current)
	}

	// Re-acquire (extend) or steal an expired lease.
	_, err = r.tx.ExecContext(ctx, `
		UPDATE leases SET holder = ?, acquired_at = ?, expires_at = ?
		WHERE target = ?
	`, holder, now, expires, target)
	return err
}

func (r *leaseRepo) Release(ctx context.Context, target, holder string) error {
	_, err := r.tx.ExecContext(ctx, `
		DELETE FROM leases WHERE target = ? AND holder = ?
	`, target, holder)
	return err
}

func (r *leaseRepo) Holder(ctx context.Context, target string) (string, error) {
	row := r.tx.QueryRowContext(ctx, `
		SELECT holder, expires_at FROM leases WHERE target = ?
	`, target)

	var holder string
	var expiresAt time.Time
	err := row.Scan(&holder, &expiresAt)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if !expiresAt.After(time.Now().UTC()) {
		return "", nil
	}
	return holder, nil
}
