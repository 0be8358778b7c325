package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// JobKindCreateTeam provisions a team and seeded roster for a newly
// registered user.
const JobKindCreateTeam = "CREATE_TEAM"

// claimLease is how long a claimed job stays invisible to other
// workers. A worker that dies mid-job forfeits the lease and the job
// is redelivered.
const claimLease = 30 * time.Second

type Job struct {
	ID       uuid.UUID
	Kind     string
	UserID   int64
	TeamName string
	Attempts int32
}

// ErrNoJob means the queue has nothing runnable right now.
var ErrNoJob = errors.New("no pending job")

func (s *Store) EnqueueJob(ctx context.Context, kind string, userID int64, teamName string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO provisioning_jobs (id, kind, user_id, team_name)
		VALUES ($1, $2, $3, $4)
	`, uuid.New(), kind, userID, teamName)
	if err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// ClaimJob picks the oldest runnable job, bumps its attempt counter,
// and leases it. SKIP LOCKED keeps concurrent workers off each
// other's claims.
func (s *Store) ClaimJob(ctx context.Context) (*Job, error) {
	var j Job
	err := s.pool.QueryRow(ctx, `
		UPDATE provisioning_jobs
		SET attempts = attempts + 1, run_at = now() + $1::interval
		WHERE id = (
			SELECT id FROM provisioning_jobs
			WHERE status = 'pending' AND run_at <= now()
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, kind, user_id, team_name, attempts
	`, claimLease.String()).Scan(&j.ID, &j.Kind, &j.UserID, &j.TeamName, &j.Attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoJob
		}
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return &j, nil
}

func (s *Store) CompleteJob(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE provisioning_jobs SET status = 'done', last_error = NULL WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

// FailJob records the error. Below maxAttempts the job stays pending
// and reruns when its lease expires; at the cap it is parked as failed.
func (s *Store) FailJob(ctx context.Context, id uuid.UUID, jobErr error, maxAttempts int32) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE provisioning_jobs
		SET last_error = $2,
		    status = CASE WHEN attempts >= $3 THEN 'failed' ELSE status END
		WHERE id = $1
	`, id, jobErr.Error(), maxAttempts)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}
