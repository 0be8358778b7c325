// Package provision creates teams and seeded rosters for newly
// registered users, decoupled from the registration request through a
// durable job queue.
package provision

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"squadmarket/internal/market"
	"squadmarket/internal/store"
)

// Store is what provisioning needs from the roster store.
type Store interface {
	EnqueueJob(ctx context.Context, kind string, userID int64, teamName string) error
	ClaimJob(ctx context.Context) (*store.Job, error)
	CompleteJob(ctx context.Context, id uuid.UUID) error
	FailJob(ctx context.Context, id uuid.UUID, jobErr error, maxAttempts int32) error
	CreateTeamWithPlayers(ctx context.Context, ownerID int64, name string, budget int64, seeds []market.PlayerSeed) (bool, error)
}

type Service struct {
	store Store
	log   *slog.Logger

	mu   sync.Mutex
	rand *rand.Rand
}

func NewService(st Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store: st,
		log:   logger,
		rand:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// RequestTeam queues team creation for a user. The caller gets an
// acknowledgement, not a team; the worker materializes it later.
func (s *Service) RequestTeam(ctx context.Context, userID int64, teamName string) error {
	if err := s.store.EnqueueJob(ctx, store.JobKindCreateTeam, userID, teamName); err != nil {
		return fmt.Errorf("queue team creation: %w", err)
	}
	s.log.Info("team creation queued", "user_id", userID, "team_name", teamName)
	return nil
}

// ProcessNext claims and runs one job. Returns store.ErrNoJob when the
// queue is empty.
func (s *Service) ProcessNext(ctx context.Context, maxAttempts int32) error {
	job, err := s.store.ClaimJob(ctx)
	if err != nil {
		return err
	}

	if err := s.runJob(ctx, job); err != nil {
		s.log.Error("provisioning job failed", "job_id", job.ID, "attempt", job.Attempts, "err", err)
		if failErr := s.store.FailJob(ctx, job.ID, err, maxAttempts); failErr != nil {
			return failErr
		}
		return nil
	}

	if err := s.store.CompleteJob(ctx, job.ID); err != nil {
		return err
	}
	return nil
}

func (s *Service) runJob(ctx context.Context, job *store.Job) error {
	switch job.Kind {
	case store.JobKindCreateTeam:
		created, err := s.store.CreateTeamWithPlayers(ctx, job.UserID, job.TeamName, market.StartingBudget, s.SeedRoster())
		if err != nil {
			return err
		}
		if !created {
			// Redelivered job for an already provisioned user.
			s.log.Info("team already exists, skipping", "user_id", job.UserID)
			return nil
		}
		s.log.Info("team provisioned", "user_id", job.UserID, "team_name", job.TeamName)
		return nil
	default:
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}
}

// SeedRoster builds the 20-player starting squad: 3 goalkeepers,
// 6 defenders, 6 midfielders, 5 attackers.
func (s *Service) SeedRoster() []market.PlayerSeed {
	plan := []struct {
		position market.Position
		count    int
	}{
		{market.Goalkeeper, 3},
		{market.Defender, 6},
		{market.Midfielder, 6},
		{market.Attacker, 5},
	}

	seeds := make([]market.PlayerSeed, 0, market.StartingSquadSize)
	for _, p := range plan {
		for i := 0; i < p.count; i++ {
			seeds = append(seeds, market.PlayerSeed{
				Name:     s.randomName(),
				Position: p.position,
			})
		}
	}
	return seeds
}

func (s *Service) randomName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return firstNames[s.rand.Intn(len(firstNames))] + " " + lastNames[s.rand.Intn(len(lastNames))]
}

var firstNames = []string{
	"John", "Mike", "David", "James", "Robert", "William", "Richard", "Joseph",
	"Thomas", "Christopher", "Daniel", "Matthew", "Anthony", "Mark", "Donald",
	"Steven", "Paul", "Andrew", "Kenneth", "Joshua", "Kevin", "Brian", "George",
	"Timothy", "Ronald", "Jason", "Edward", "Jeffrey", "Ryan", "Jacob",
}

var lastNames = []string{
	"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis",
	"Rodriguez", "Martinez", "Hernandez", "Lopez", "Gonzalez", "Wilson", "Anderson",
	"Thomas", "Taylor", "Moore", "Jackson", "Martin", "Lee", "Perez", "Thompson",
	"White", "Harris", "Sanchez", "Clark", "Ramirez", "Lewis", "Robinson",
}
